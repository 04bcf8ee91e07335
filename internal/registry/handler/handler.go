// Package handler exposes the registry over HTTP. It stays thin: decode,
// resolve the caller, delegate to the engine, encode. All authorization and
// invariant checks happen behind the Service interface.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certledger/internal/platform/middleware"
	"certledger/internal/registry/models"
	"certledger/internal/registry/service"
	"certledger/internal/transport/http/shared"
	"certledger/pkg/domain"
	dErrors "certledger/pkg/domain-errors"
	"certledger/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mock_service.go -package=mocks

// Service is the engine surface the handler depends on.
type Service interface {
	RegisterInstitution(ctx context.Context, caller domain.Address, name string, controlling domain.Address) (*models.Institution, error)
	DeactivateInstitution(ctx context.Context, caller domain.Address, id domain.InstitutionID) (*models.Institution, error)
	GetInstitution(ctx context.Context, id domain.InstitutionID) (*models.Institution, error)
	IssueCertificate(ctx context.Context, caller domain.Address, req service.IssueRequest) (*models.Certificate, error)
	RevokeCertificate(ctx context.Context, caller domain.Address, id domain.CertificateID) (*models.Certificate, error)
	GetCertificate(ctx context.Context, id domain.CertificateID) (*models.Certificate, error)
	OwnsCertificate(ctx context.Context, address domain.Address, id domain.CertificateID) (bool, error)
	VerifyCertificate(ctx context.Context, id domain.CertificateID) (*models.Verification, error)
	Info(ctx context.Context) (*models.RegistryInfo, error)
}

// Handler handles the registry endpoints.
type Handler struct {
	logger    *slog.Logger
	registry  Service
	validator middleware.TokenValidator
}

// New creates a registry Handler.
func New(registry Service, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		registry:  registry,
		validator: validator,
	}
}

// Register mounts the registry routes. Reads are public; mutations require a
// bearer token resolving to a caller address.
func (h *Handler) Register(r chi.Router) {
	r.Get("/institutions/{id}", h.handleGetInstitution)
	r.Get("/certificates/{id}", h.handleGetCertificate)
	r.Get("/certificates/{id}/verify", h.handleVerifyCertificate)
	r.Get("/certificates/{id}/owner", h.handleOwnsCertificate)
	r.Get("/registry/info", h.handleRegistryInfo)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCaller(h.validator, h.logger))
		r.Post("/institutions", h.handleRegisterInstitution)
		r.Post("/institutions/{id}/deactivate", h.handleDeactivateInstitution)
		r.Post("/certificates", h.handleIssueCertificate)
		r.Post("/certificates/{id}/revoke", h.handleRevokeCertificate)
	})
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	caller := requestcontext.Caller(r.Context())
	if caller.IsZero() {
		// Unreachable when RequireCaller is mounted; guard anyway.
		h.logger.ErrorContext(r.Context(), "caller missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(r.Context()),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return caller, true
}

func (h *Handler) handleRegisterInstitution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req registerInstitutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid register institution request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	inst, err := h.registry.RegisterInstitution(ctx, caller, req.Name, domain.Address(req.ControllingAddress))
	if err != nil {
		h.writeServiceError(ctx, w, "register institution", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, inst)
}

func (h *Handler) handleDeactivateInstitution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseInstitutionID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid institution id"))
		return
	}

	inst, err := h.registry.DeactivateInstitution(ctx, caller, id)
	if err != nil {
		h.writeServiceError(ctx, w, "deactivate institution", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, inst)
}

func (h *Handler) handleGetInstitution(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseInstitutionID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid institution id"))
		return
	}

	inst, err := h.registry.GetInstitution(r.Context(), id)
	if err != nil {
		h.writeServiceError(r.Context(), w, "get institution", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, inst)
}

func (h *Handler) handleIssueCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req issueCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid issue certificate request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	cert, err := h.registry.IssueCertificate(ctx, caller, service.IssueRequest{
		Recipient:     domain.Address(req.Recipient),
		InstitutionID: domain.InstitutionID(req.InstitutionID),
		Title:         req.Title,
		Description:   req.Description,
		Grade:         req.Grade,
		MetadataURI:   req.MetadataURI,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "issue certificate", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, cert)
}

func (h *Handler) handleRevokeCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid certificate id"))
		return
	}

	cert, err := h.registry.RevokeCertificate(ctx, caller, id)
	if err != nil {
		h.writeServiceError(ctx, w, "revoke certificate", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, cert)
}

func (h *Handler) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid certificate id"))
		return
	}

	cert, err := h.registry.GetCertificate(r.Context(), id)
	if err != nil {
		h.writeServiceError(r.Context(), w, "get certificate", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, cert)
}

func (h *Handler) handleVerifyCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid certificate id"))
		return
	}

	verdict, err := h.registry.VerifyCertificate(r.Context(), id)
	if err != nil {
		h.writeServiceError(r.Context(), w, "verify certificate", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, verdict)
}

func (h *Handler) handleOwnsCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid certificate id"))
		return
	}
	address := domain.Address(r.URL.Query().Get("address"))
	if address.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "address query parameter is required"))
		return
	}

	owns, err := h.registry.OwnsCertificate(r.Context(), address, id)
	if err != nil {
		h.writeServiceError(r.Context(), w, "check certificate ownership", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, ownershipResponse{
		CertificateID: uint64(id),
		Address:       string(address),
		Owns:          owns,
	})
}

func (h *Handler) handleRegistryInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.registry.Info(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "registry info", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, info)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "registry operation failed",
			"operation", operation,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
		return
	}
	h.logger.WarnContext(ctx, "registry operation rejected",
		"operation", operation,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
	shared.WriteError(w, err)
}
