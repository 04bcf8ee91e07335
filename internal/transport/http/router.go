// Package httptransport assembles the full HTTP surface: the registry
// routes, health checking, and the Prometheus scrape endpoint.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certledger/internal/platform/metrics"
	"certledger/internal/platform/middleware"
)

// Registrar is anything that mounts routes on the router; the registry
// handler implements it.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports backend liveness for /healthz.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Options carries everything the router wires besides the domain handlers.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// AdminTokenHash guards /admin/* routes; empty leaves them unmounted.
	AdminTokenHash string
	AdminHandlers  []Registrar

	// Checkers run on /healthz; any failure turns the response 503.
	Checkers []HealthChecker
}

// NewRouter builds the process router with the shared middleware chain.
func NewRouter(opts Options, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)
	if opts.Metrics != nil {
		r.Use(middleware.Latency(opts.Metrics))
	}

	for _, h := range handlers {
		h.Register(r)
	}

	if opts.AdminTokenHash != "" && len(opts.AdminHandlers) > 0 {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(middleware.RequireAdminToken(opts.AdminTokenHash, opts.Logger))
			for _, h := range opts.AdminHandlers {
				h.Register(admin)
			}
		})
	}

	r.Get("/healthz", healthHandler(opts.Checkers))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func healthHandler(checkers []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, checker := range checkers {
			if err := checker.Health(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
