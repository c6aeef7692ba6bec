package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"screener/internal/auth/models"
	"screener/pkg/platform/httputil"
	"screener/pkg/requestcontext"
)

// Service defines the credential lifecycle operations exposed to operators.
type Service interface {
	Register(ctx context.Context, name, email string) (string, error)
	Revoke(ctx context.Context, apiKey string) error
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterAdmin mounts the key management routes. Callers guard them with the
// admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/api-keys", h.HandleCreate)
	r.Delete("/admin/api-keys", h.HandleRevoke)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	key, err := h.svc.Register(ctx, req.Name, req.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to register api key",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, &models.RegisterResponse{
		APIKey: key,
		Name:   req.Name,
		Email:  req.Email,
	})
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RevokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.svc.Revoke(ctx, req.APIKey); err != nil {
		h.logger.WarnContext(ctx, "failed to revoke api key",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &models.RevokeResponse{Revoked: true})
}
