// Package store provides keyed persistence for institutions and certificates
// plus the two monotonic id allocators. No business logic lives here; stores
// return sentinel errors and leave all validation to the engine.
package store

import (
	"context"

	"certledger/internal/registry/models"
	"certledger/pkg/domain"
)

// Stores are interface-driven to keep the engine testable and to allow
// swapping in-memory and PostgreSQL persistence without rewiring business
// code.
//
// Create allocates the next dense id and invokes build with it; the id is
// consumed only when build succeeds and the record commits, so rejected
// operations never burn a value. Execute atomically loads a record, runs
// validate, applies mutate, and persists — the implementation holds its lock
// (mutex or FOR UPDATE) across the whole callback sequence.

type InstitutionStore interface {
	Create(ctx context.Context, build func(domain.InstitutionID) (*models.Institution, error)) (*models.Institution, error)
	FindByID(ctx context.Context, id domain.InstitutionID) (*models.Institution, error)
	Execute(ctx context.Context, id domain.InstitutionID,
		validate func(*models.Institution) error,
		mutate func(*models.Institution)) (*models.Institution, error)
	Count(ctx context.Context) (uint64, error)
}

type CertificateStore interface {
	Create(ctx context.Context, build func(domain.CertificateID) (*models.Certificate, error)) (*models.Certificate, error)
	FindByID(ctx context.Context, id domain.CertificateID) (*models.Certificate, error)
	Execute(ctx context.Context, id domain.CertificateID,
		validate func(*models.Certificate) error,
		mutate func(*models.Certificate)) (*models.Certificate, error)
	Count(ctx context.Context) (uint64, error)
}
