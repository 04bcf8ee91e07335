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

// IssueRequest carries the caller-supplied certificate fields. Grade and
// MetadataURI stay pointers so "absent" survives to the stored record.
type IssueRequest struct {
	Recipient     domain.Address
	InstitutionID domain.InstitutionID
	Title         string
	Description   string
	Grade         *string
	MetadataURI   *string
}

// IssueCertificate mints a certificate under an institution. Preconditions
// are checked in contract order — institution existence, then caller
// authorization, then field validation, then the self-issuance rule — so
// the first failing check determines the error code. The institution's
// active flag is deliberately not consulted: authorization binds to the
// controlling address alone, and verification reports certificates of
// inactive institutions as invalid.
func (s *Service) IssueCertificate(ctx context.Context, caller domain.Address, req IssueRequest) (*models.Certificate, error) {
	ctx, span := s.tracer.Start(ctx, "registry.IssueCertificate",
		trace.WithAttributes(attribute.Int64("institution.id", int64(req.InstitutionID))))
	defer span.End()

	inst, err := s.institutions.FindByID(ctx, req.InstitutionID)
	if err != nil {
		return nil, s.reject(wrapInstitutionErr(err))
	}
	if caller != inst.ControllingAddress {
		return nil, s.reject(dErrors.New(dErrors.CodeNotAuthorized, "caller does not control this institution"))
	}

	now := requestcontext.Now(ctx)
	cert, err := s.certificates.Create(ctx, func(id domain.CertificateID) (*models.Certificate, error) {
		c, err := models.NewCertificate(id, inst.ID, req.Recipient, req.Title, req.Description, req.Grade, req.MetadataURI, now)
		if err != nil {
			return nil, err
		}
		if c.Recipient == caller {
			return nil, dErrors.New(dErrors.CodeInvalidRecipient, "institution cannot issue a certificate to itself")
		}
		return c, nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) || dErrors.HasCode(err, dErrors.CodeInvalidRecipient) {
			return nil, s.reject(err)
		}
		return nil, wrapCertificateErr(err)
	}
	span.SetAttributes(attribute.Int64("certificate.id", int64(cert.ID)))

	if s.metrics != nil {
		s.metrics.CertificatesIssued.Inc()
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:     audit.ActionCertificateIssued,
		Actor:      caller,
		EntityKind: audit.EntityCertificate,
		EntityID:   uint64(cert.ID),
	})
	return cert, nil
}

// RevokeCertificate flips the one mutable certificate field. Only the
// controlling address of the issuing institution may revoke; revoking an
// already-revoked certificate is a no-op success.
func (s *Service) RevokeCertificate(ctx context.Context, caller domain.Address, id domain.CertificateID) (*models.Certificate, error) {
	ctx, span := s.tracer.Start(ctx, "registry.RevokeCertificate",
		trace.WithAttributes(attribute.Int64("certificate.id", int64(id))))
	defer span.End()

	cert, err := s.certificates.FindByID(ctx, id)
	if err != nil {
		return nil, s.reject(wrapCertificateErr(err))
	}
	// The institution existed at issuance and is never deleted; a miss here
	// is store corruption, not a caller error.
	inst, err := s.institutions.FindByID(ctx, cert.InstitutionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "certificate references unknown institution")
	}
	if caller != inst.ControllingAddress {
		return nil, s.reject(dErrors.New(dErrors.CodeNotAuthorized, "caller does not control the issuing institution"))
	}

	revoked, err := s.certificates.Execute(ctx, id, nil, func(c *models.Certificate) {
		c.ApplyRevocation()
	})
	if err != nil {
		return nil, wrapCertificateErr(err)
	}

	s.invalidateCache(ctx, id)
	if s.metrics != nil {
		s.metrics.CertificatesRevoked.Inc()
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:     audit.ActionCertificateRevoked,
		Actor:      caller,
		EntityKind: audit.EntityCertificate,
		EntityID:   uint64(id),
	})
	return revoked, nil
}

// GetCertificate is a pure read, served through the cache when one is wired.
func (s *Service) GetCertificate(ctx context.Context, id domain.CertificateID) (*models.Certificate, error) {
	cert, err := s.readCertificate(ctx, id)
	if err != nil {
		return nil, wrapCertificateErr(err)
	}
	return cert, nil
}

// OwnsCertificate reports whether address holds the certificate. Nonexistent
// certificates yield false, never an error.
func (s *Service) OwnsCertificate(ctx context.Context, address domain.Address, id domain.CertificateID) (bool, error) {
	cert, err := s.readCertificate(ctx, id)
	if err != nil {
		if dErrors.HasCode(wrapCertificateErr(err), dErrors.CodeCertificateNotFound) {
			return false, nil
		}
		return false, wrapCertificateErr(err)
	}
	return cert.Recipient == address, nil
}

// VerifyCertificate joins the certificate with its issuing institution and
// computes the trust verdict. The institution is always read live so a
// deactivation is reflected immediately; only the immutable-except-revoked
// certificate record may come from cache. No state is mutated.
func (s *Service) VerifyCertificate(ctx context.Context, id domain.CertificateID) (*models.Verification, error) {
	ctx, span := s.tracer.Start(ctx, "registry.VerifyCertificate",
		trace.WithAttributes(attribute.Int64("certificate.id", int64(id))))
	defer span.End()

	cert, err := s.readCertificate(ctx, id)
	if err != nil {
		return nil, wrapCertificateErr(err)
	}
	inst, err := s.institutions.FindByID(ctx, cert.InstitutionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "certificate references unknown institution")
	}

	verdict := models.NewVerification(cert, inst)
	span.SetAttributes(attribute.Bool("certificate.valid", verdict.IsValid))
	if s.metrics != nil {
		s.metrics.RecordVerification(verdict.IsValid)
	}
	return verdict, nil
}

// readCertificate consults the cache first, falling back to the store and
// populating the cache on a miss. Cache failures degrade to store reads.
func (s *Service) readCertificate(ctx context.Context, id domain.CertificateID) (*models.Certificate, error) {
	if s.cache != nil {
		if cert, err := s.cache.Get(ctx, id); err == nil {
			return cert, nil
		}
	}
	cert, err := s.certificates.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cert); err != nil {
			s.logger.WarnContext(ctx, "certificate cache set failed", "error", err, "certificate_id", cert.ID)
		}
	}
	return cert, nil
}

func (s *Service) invalidateCache(ctx context.Context, id domain.CertificateID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		// The entry still expires by TTL; log and move on.
		s.logger.WarnContext(ctx, "certificate cache invalidation failed", "error", err, "certificate_id", id)
	}
}
