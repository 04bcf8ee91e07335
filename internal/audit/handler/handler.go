// Package handler exposes the audit trail on the admin surface.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"certledger/internal/audit"
	"certledger/internal/platform/middleware"
	"certledger/internal/transport/http/shared"
	dErrors "certledger/pkg/domain-errors"
)

// Store is the read side of the audit trail the handler depends on.
type Store interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// Handler serves the audit trail read endpoints.
type Handler struct {
	logger *slog.Logger
	store  Store
}

func New(store Store, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, store: store}
}

// Register mounts the audit routes; the caller decides which router (and
// which auth) they sit behind.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/events", h.handleListEvents)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	events, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "audit trail read failed",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}
