package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"certledger/internal/audit"
	audithandler "certledger/internal/audit/handler"
	jwttoken "certledger/internal/jwt_token"
	"certledger/internal/platform/config"
	"certledger/internal/platform/httpserver"
	"certledger/internal/platform/logger"
	platformmetrics "certledger/internal/platform/metrics"
	platformredis "certledger/internal/platform/redis"
	"certledger/internal/registry/cache"
	"certledger/internal/registry/handler"
	registrymetrics "certledger/internal/registry/metrics"
	"certledger/internal/registry/service"
	"certledger/internal/registry/store"
	httptransport "certledger/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in internal packages; everything here is construction and shutdown.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := platformmetrics.New()
	regMetrics := registrymetrics.New()
	auditMetrics := audit.NewMetrics()

	// Persistence: PostgreSQL when a DSN is configured, in-memory otherwise.
	var (
		institutions store.InstitutionStore
		certificates store.CertificateStore
		auditStore   audit.Store
	)
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := store.EnsureSchema(ctx, pool); err != nil {
			log.Error("registry schema setup failed", "error", err)
			os.Exit(1)
		}
		institutions = store.NewPostgresInstitutionStore(pool)
		certificates = store.NewPostgresCertificateStore(pool)

		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("audit postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pgAudit := audit.NewPostgresStore(db)
		if err := pgAudit.EnsureSchema(ctx); err != nil {
			log.Error("audit schema setup failed", "error", err)
			os.Exit(1)
		}
		auditStore = pgAudit
	} else {
		log.Warn("no postgres DSN configured, registry state is in-memory")
		institutions = store.NewInMemoryInstitutionStore()
		certificates = store.NewInMemoryCertificateStore()
		auditStore = audit.NewInMemoryStore()
	}

	var checkers []httptransport.HealthChecker

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		checkers = append(checkers, redisClient)
	}

	var kafkaSink *audit.KafkaSink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err = audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log, auditMetrics)
		if err != nil {
			log.Error("kafka connect failed", "error", err)
			os.Exit(1)
		}
	}

	publisher := audit.NewChannelPublisher(1024, log, auditMetrics)
	worker := audit.NewWorker(auditStore, kafkaSink, publisher.Inbox(), log, auditMetrics)

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(regMetrics),
		service.WithAuditPublisher(publisher),
	}
	if redisClient != nil {
		opts = append(opts, service.WithCertificateCache(cache.New(redisClient.Client, cfg.CacheTTL)))
	}
	registry := service.New(cfg.OwnerAddress, institutions, certificates, opts...)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	router := httptransport.NewRouter(httptransport.Options{
		Logger:         log,
		Metrics:        httpMetrics,
		AdminTokenHash: cfg.AdminTokenHash,
		AdminHandlers:  []httptransport.Registrar{audithandler.New(auditStore, log)},
		Checkers:       checkers,
	}, handler.New(registry, jwtService, log))

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting certledger", "addr", cfg.Addr, "owner", cfg.OwnerAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	if kafkaSink != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := kafkaSink.Close(flushCtx); err != nil {
			log.Warn("kafka flush on shutdown failed", "error", err)
		}
	}
	log.Info("certledger stopped")
}
