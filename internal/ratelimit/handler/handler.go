package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"screener/internal/ratelimit/models"
	dErrors "screener/pkg/domain-errors"
	"screener/pkg/platform/httputil"
	"screener/pkg/requestcontext"
)

// Service is the subset of the limiter the handler exposes.
type Service interface {
	Status(ctx context.Context, credential string) (*models.Status, error)
	Reset(ctx context.Context, credential string) error
	ResetAll(ctx context.Context) error
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the caller-facing status route. It must sit behind API-key
// auth but outside the rate-limit middleware so reading status is free.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/v1/rate-limit", h.HandleStatus)
}

// RegisterAdmin mounts the operator reset routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/rate-limit/reset", h.HandleReset)
	r.Post("/admin/rate-limit/reset-all", h.HandleResetAll)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credential := requestcontext.Credential(ctx)
	if credential == "" {
		h.logger.ErrorContext(ctx, "credential missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	status, err := h.svc.Status(ctx, credential)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read rate limit status",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &models.StatusResponse{
		APIKey:    models.MaskCredential(credential),
		RateLimit: *status,
		Timestamp: requestcontext.Now(ctx),
	})
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.ResetRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.svc.Reset(ctx, req.APIKey); err != nil {
		h.logger.ErrorContext(ctx, "failed to reset rate limit",
			"request_id", requestID,
			"api_key", models.MaskCredential(req.APIKey),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "rate limit reset",
		"request_id", requestID,
		"api_key", models.MaskCredential(req.APIKey),
	)
	httputil.WriteJSON(w, http.StatusOK, &models.ResetResponse{Reset: true, Scope: "credential"})
}

func (h *Handler) HandleResetAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := h.svc.ResetAll(ctx); err != nil {
		h.logger.ErrorContext(ctx, "failed to reset all rate limits",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "all rate limits reset", "request_id", requestID)
	httputil.WriteJSON(w, http.StatusOK, &models.ResetResponse{Reset: true, Scope: "all"})
}
