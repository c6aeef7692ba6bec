package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"screener/internal/screening/models"
	"screener/internal/screening/ports"
	"screener/internal/screening/sources/debarment"
	dErrors "screener/pkg/domain-errors"
	"screener/pkg/platform/audit"
	"screener/pkg/platform/httputil"
	"screener/pkg/platform/useragent"
	"screener/pkg/requestcontext"
)

const DefaultVersion = "1.0.0"

// Searcher runs instrumented, panic-isolated source searches.
type Searcher interface {
	SearchAll(ctx context.Context, query string) (*models.MultiSourceResponse, error)
	Search(ctx context.Context, src ports.Source, query string) (models.SearchResult, error)
}

// FilteredRegistry is a registry source that also accepts field filters.
type FilteredRegistry interface {
	ports.Source
	SearchFiltered(ctx context.Context, f debarment.Filters) models.SearchResult
}

// Sources are the adapters behind the single-source routes.
type Sources struct {
	Sanctions ports.Source
	Offshore  ports.Source
	Registry  FilteredRegistry
}

type Handler struct {
	searcher Searcher
	sources  Sources
	auditor  ports.AuditPublisher
	logger   *slog.Logger
	version  string
}

type Option func(*Handler)

func WithVersion(v string) Option {
	return func(h *Handler) {
		h.version = v
	}
}

func New(searcher Searcher, src Sources, auditor ports.AuditPublisher, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		searcher: searcher,
		sources:  src,
		auditor:  auditor,
		logger:   logger,
		version:  DefaultVersion,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterPublic mounts the unauthenticated routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/health", h.HandleHealth)
}

// Register mounts the search routes. Callers guard them with API-key auth
// and the rate limiter.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/search/ofac", h.HandleSanctions)
	r.Post("/api/v1/search/offshore-leaks", h.HandleOffshore)
	r.Post("/api/v1/search/world-bank", h.HandleRegistry)
	r.Post("/api/v1/search/all", h.HandleSearchAll)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, &models.HealthResponse{
		Status:    "healthy",
		Timestamp: requestcontext.Now(r.Context()),
		Version:   h.version,
	})
}

func (h *Handler) HandleSanctions(w http.ResponseWriter, r *http.Request) {
	h.handleSingle(w, r, h.sources.Sanctions)
}

func (h *Handler) HandleOffshore(w http.ResponseWriter, r *http.Request) {
	h.handleSingle(w, r, h.sources.Offshore)
}

func (h *Handler) handleSingle(w http.ResponseWriter, r *http.Request, src ports.Source) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SearchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	h.searchOne(ctx, w, src, req.EntityName)
}

func (h *Handler) HandleRegistry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegistrySearchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	src := filteredSource{
		registry: h.sources.Registry,
		filters: debarment.Filters{
			Name:        req.EntityName,
			Country:     req.Country,
			CountryCode: req.CountryCode,
			Status:      req.Status,
		},
	}
	h.searchOne(ctx, w, src, req.EntityName)
}

func (h *Handler) searchOne(ctx context.Context, w http.ResponseWriter, src ports.Source, query string) {
	requestID := requestcontext.RequestID(ctx)
	h.logger.InfoContext(ctx, "screening search requested",
		"request_id", requestID,
		"source", src.Name(),
		"query", query,
	)

	result, err := h.searcher.Search(ctx, src, query)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.emit(ctx, query, []models.SearchResult{result})

	if result.Failed() {
		h.logger.ErrorContext(ctx, "screening source failed",
			"request_id", requestID,
			"source", result.Source,
			"error", result.Error,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeSourceUnavailable, result.Error))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &result)
}

func (h *Handler) HandleSearchAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SearchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	h.logger.InfoContext(ctx, "multi-source search requested",
		"request_id", requestID,
		"query", req.EntityName,
	)

	resp, err := h.searcher.SearchAll(ctx, req.EntityName)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.emit(ctx, resp.Query, resp.Sources)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) emit(ctx context.Context, query string, results []models.SearchResult) {
	if h.auditor == nil {
		return
	}
	event := audit.Event{
		Action:      string(audit.EventScreeningPerformed),
		Subject:     requestcontext.OwnerName(ctx),
		Query:       query,
		RequestID:   requestcontext.RequestID(ctx),
		ClientIP:    requestcontext.ClientIP(ctx),
		ClientAgent: useragent.Describe(requestcontext.UserAgent(ctx)),
	}
	for _, r := range results {
		event.TotalHits += r.Hits
		if r.Failed() {
			event.FailedSources = append(event.FailedSources, string(r.Source))
		}
		if r.ChallengeDetected {
			event.ChallengedSources = append(event.ChallengedSources, string(r.Source))
		}
	}
	if err := h.auditor.Emit(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "failed to emit screening audit event",
			"request_id", event.RequestID,
			"error", err,
		)
	}
}

// filteredSource presents a filtered registry search as a plain source so
// it runs through the same instrumentation as the others.
type filteredSource struct {
	registry FilteredRegistry
	filters  debarment.Filters
}

func (s filteredSource) Name() models.SourceName {
	return s.registry.Name()
}

func (s filteredSource) Search(ctx context.Context, query string) models.SearchResult {
	f := s.filters
	f.Name = query
	return s.registry.SearchFiltered(ctx, f)
}
