// Package service implements the registry engine: the state machine guarding
// every mutation of institutions and certificates, and the read path that
// reconstructs trust verdicts without writing.
//
// All authorization, validation, and invariant checks live here. Stores
// persist; the engine decides.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"certledger/internal/audit"
	registrymetrics "certledger/internal/registry/metrics"
	"certledger/internal/registry/models"
	"certledger/internal/registry/store"
	"certledger/pkg/domain"
	dErrors "certledger/pkg/domain-errors"
	"certledger/pkg/platform/sentinel"
)

// Service is the registry engine. The owner address is fixed at
// construction and never transferable; it is the only identity allowed to
// manage institutions.
type Service struct {
	owner        domain.Address
	institutions store.InstitutionStore
	certificates store.CertificateStore
	cache        CertificateCache
	auditor      audit.Publisher
	metrics      *registrymetrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
}

// CertificateCache is the optional read-through cache for certificate
// records. Implementations must return sentinel.ErrNotFound on a miss.
type CertificateCache interface {
	Get(ctx context.Context, id domain.CertificateID) (*models.Certificate, error)
	Set(ctx context.Context, cert *models.Certificate) error
	Invalidate(ctx context.Context, id domain.CertificateID) error
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *registrymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithCertificateCache(c CertificateCache) Option {
	return func(s *Service) { s.cache = c }
}

// New constructs the engine. The owner identity comes from deployment
// configuration; injecting it here keeps tests free to use arbitrary owners.
func New(owner domain.Address, institutions store.InstitutionStore, certificates store.CertificateStore, opts ...Option) *Service {
	s := &Service{
		owner:        owner,
		institutions: institutions,
		certificates: certificates,
		auditor:      audit.NopPublisher{},
		logger:       slog.Default(),
		tracer:       otel.Tracer("certledger/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Owner exposes the fixed owner identity for the info endpoint.
func (s *Service) Owner() domain.Address { return s.owner }

// reject counts and returns a precondition failure. Nothing was written when
// this is called.
func (s *Service) reject(err error) error {
	s.metrics.RecordRejection(string(dErrors.CodeOf(err)))
	return err
}

func wrapInstitutionErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeInstitutionNotRegistered, "institution is not registered")
	}
	var de *dErrors.DomainError
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "institution store failed")
}

func wrapCertificateErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeCertificateNotFound, "certificate not found")
	}
	var de *dErrors.DomainError
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "certificate store failed")
}
