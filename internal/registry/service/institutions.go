package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"certledger/internal/audit"
	"certledger/internal/registry/models"
	"certledger/pkg/domain"
	dErrors "certledger/pkg/domain-errors"
	"certledger/pkg/requestcontext"
)

// RegisterInstitution creates a new active institution. Only the registry
// owner may call it; the id is allocated by the store on commit so rejected
// requests never consume one.
func (s *Service) RegisterInstitution(ctx context.Context, caller domain.Address, name string, controlling domain.Address) (*models.Institution, error) {
	ctx, span := s.tracer.Start(ctx, "registry.RegisterInstitution")
	defer span.End()

	if caller != s.owner {
		return nil, s.reject(dErrors.New(dErrors.CodeNotAuthorized, "only the registry owner may register institutions"))
	}

	now := requestcontext.Now(ctx)
	inst, err := s.institutions.Create(ctx, func(id domain.InstitutionID) (*models.Institution, error) {
		return models.NewInstitution(id, name, controlling, now)
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return nil, s.reject(err)
		}
		return nil, wrapInstitutionErr(err)
	}
	span.SetAttributes(attribute.Int64("institution.id", int64(inst.ID)))

	if s.metrics != nil {
		s.metrics.InstitutionsRegistered.Inc()
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:     audit.ActionInstitutionRegistered,
		Actor:      caller,
		EntityKind: audit.EntityInstitution,
		EntityID:   uint64(inst.ID),
	})
	return inst, nil
}

// DeactivateInstitution marks an institution inactive. Owner only.
// Deactivating an already-inactive institution succeeds; the transition is
// idempotent and one-way.
func (s *Service) DeactivateInstitution(ctx context.Context, caller domain.Address, id domain.InstitutionID) (*models.Institution, error) {
	ctx, span := s.tracer.Start(ctx, "registry.DeactivateInstitution",
		trace.WithAttributes(attribute.Int64("institution.id", int64(id))))
	defer span.End()

	if caller != s.owner {
		return nil, s.reject(dErrors.New(dErrors.CodeNotAuthorized, "only the registry owner may deactivate institutions"))
	}

	inst, err := s.institutions.Execute(ctx, id, nil, func(i *models.Institution) {
		i.ApplyDeactivation()
	})
	if err != nil {
		return nil, s.reject(wrapInstitutionErr(err))
	}

	if s.metrics != nil {
		s.metrics.InstitutionsDeactivated.Inc()
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:     audit.ActionInstitutionDeactivated,
		Actor:      caller,
		EntityKind: audit.EntityInstitution,
		EntityID:   uint64(inst.ID),
	})
	return inst, nil
}

// GetInstitution is a pure read.
func (s *Service) GetInstitution(ctx context.Context, id domain.InstitutionID) (*models.Institution, error) {
	inst, err := s.institutions.FindByID(ctx, id)
	if err != nil {
		return nil, wrapInstitutionErr(err)
	}
	return inst, nil
}

// Info summarizes registry state: record totals plus the owner identity.
func (s *Service) Info(ctx context.Context) (*models.RegistryInfo, error) {
	institutions, err := s.institutions.Count(ctx)
	if err != nil {
		return nil, wrapInstitutionErr(err)
	}
	certificates, err := s.certificates.Count(ctx)
	if err != nil {
		return nil, wrapCertificateErr(err)
	}
	return &models.RegistryInfo{
		TotalInstitutions: institutions,
		TotalCertificates: certificates,
		Owner:             s.owner,
	}, nil
}
