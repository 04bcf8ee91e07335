// Package config builds runtime configuration from the environment so main
// stays lean. Every variable carries the CERTLEDGER_ prefix; unset optional
// backends (Postgres, Redis, Kafka) leave their fields empty and the server
// falls back to in-memory implementations.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"certledger/pkg/domain"
)

// Server captures everything the process needs at startup.
type Server struct {
	Addr          string
	OwnerAddress  domain.Address
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// AdminTokenHash is the bcrypt hash admin requests are checked against.
	// Empty disables the admin surface entirely.
	AdminTokenHash string

	// PostgresDSN selects pgx-backed stores when set; empty keeps registry
	// state in memory.
	PostgresDSN string

	// RedisURL enables the certificate read cache when set.
	RedisURL string
	CacheTTL time.Duration

	// KafkaBrokers enables audit event streaming when non-empty.
	KafkaBrokers []string
	AuditTopic   string
}

// RegistryCacheTTL bounds certificate cache staleness when the environment
// does not override it.
var RegistryCacheTTL = 5 * time.Minute

// FromEnv builds a Server config from environment variables.
func FromEnv() (Server, error) {
	addr := os.Getenv("CERTLEDGER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	owner := domain.Address(strings.TrimSpace(os.Getenv("CERTLEDGER_OWNER_ADDRESS")))
	if owner.IsZero() {
		return Server{}, fmt.Errorf("CERTLEDGER_OWNER_ADDRESS is required")
	}

	jwtSigningKey := os.Getenv("CERTLEDGER_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	cacheTTL := RegistryCacheTTL
	if raw := os.Getenv("CERTLEDGER_CACHE_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Server{}, fmt.Errorf("CERTLEDGER_CACHE_TTL: %w", err)
		}
		cacheTTL = parsed
	}

	var brokers []string
	if raw := os.Getenv("CERTLEDGER_KAFKA_BROKERS"); raw != "" {
		for _, broker := range strings.Split(raw, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				brokers = append(brokers, broker)
			}
		}
	}

	auditTopic := os.Getenv("CERTLEDGER_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "certledger.audit"
	}

	return Server{
		Addr:           addr,
		OwnerAddress:   owner,
		JWTSigningKey:  jwtSigningKey,
		JWTIssuer:      envOr("CERTLEDGER_JWT_ISSUER", "certledger"),
		JWTAudience:    envOr("CERTLEDGER_JWT_AUDIENCE", "certledger-api"),
		AdminTokenHash: os.Getenv("CERTLEDGER_ADMIN_TOKEN_HASH"),
		PostgresDSN:    os.Getenv("CERTLEDGER_POSTGRES_DSN"),
		RedisURL:       os.Getenv("CERTLEDGER_REDIS_URL"),
		CacheTTL:       cacheTTL,
		KafkaBrokers:   brokers,
		AuditTopic:     auditTopic,
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
