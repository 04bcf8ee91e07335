// Package cache provides a Redis read-through cache for certificate records.
//
// Only certificates are cached. Caching the computed verification verdict
// would let an institution deactivation go unseen until expiry, so the
// engine always joins against a live institution read; a cached certificate
// is safe because every field except the revocation flag is write-once, and
// revocation invalidates the entry.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"certledger/internal/registry/models"
	"certledger/pkg/domain"
	"certledger/pkg/platform/sentinel"
)

// DefaultTTL bounds staleness for entries that miss an invalidation (for
// example when a revoke commits but the subsequent delete fails).
const DefaultTTL = 5 * time.Minute

type CertificateCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *CertificateCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CertificateCache{client: client, ttl: ttl}
}

func key(id domain.CertificateID) string {
	return fmt.Sprintf("certledger:certificate:%d", uint64(id))
}

// Get returns the cached certificate or sentinel.ErrNotFound on a miss.
func (c *CertificateCache) Get(ctx context.Context, id domain.CertificateID) (*models.Certificate, error) {
	payload, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("cache get certificate %d: %w", id, err)
	}
	var cert models.Certificate
	if err := json.Unmarshal(payload, &cert); err != nil {
		return nil, fmt.Errorf("cache decode certificate %d: %w", id, err)
	}
	return &cert, nil
}

// Set stores the certificate with the configured TTL.
func (c *CertificateCache) Set(ctx context.Context, cert *models.Certificate) error {
	payload, err := json.Marshal(cert)
	if err != nil {
		return fmt.Errorf("cache encode certificate %d: %w", cert.ID, err)
	}
	if err := c.client.Set(ctx, key(cert.ID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set certificate %d: %w", cert.ID, err)
	}
	return nil
}

// Invalidate drops the entry after a revocation commits.
func (c *CertificateCache) Invalidate(ctx context.Context, id domain.CertificateID) error {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("cache invalidate certificate %d: %w", id, err)
	}
	return nil
}
