package debarment

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"screener/internal/screening/models"
	"screener/internal/screening/sources"
)

// PayloadFetcher downloads the raw registry payload.
type PayloadFetcher interface {
	Fetch(ctx context.Context, params url.Values) (any, error)
}

// Adapter downloads the registry, or reuses a cached snapshot, and filters
// it locally.
type Adapter struct {
	fetcher PayloadFetcher
	cache   SnapshotCache
	logger  *slog.Logger
	now     func() time.Time
}

type AdapterOption func(*Adapter)

func WithCache(c SnapshotCache) AdapterOption {
	return func(a *Adapter) {
		a.cache = c
	}
}

func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) {
		a.now = now
	}
}

func NewAdapter(fetcher PayloadFetcher, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		fetcher: fetcher,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() models.SourceName {
	return models.SourceDebarment
}

// Search matches query against firm names only.
func (a *Adapter) Search(ctx context.Context, query string) models.SearchResult {
	return a.render(ctx, query, func(recs []Record) []Record {
		return FilterByName(query, recs)
	})
}

// SearchFiltered applies name, country, country code and status filters.
func (a *Adapter) SearchFiltered(ctx context.Context, f Filters) models.SearchResult {
	return a.render(ctx, f.Name, func(recs []Record) []Record {
		return FilterByFields(f, recs)
	})
}

func (a *Adapter) render(ctx context.Context, query string, filter func([]Record) []Record) models.SearchResult {
	recs, err := a.snapshot(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "registry search failed",
			"source", models.SourceDebarment,
			"query", query,
			"error", err,
		)
		return models.Failure(err).Result(models.SourceDebarment, query, a.now())
	}

	matched := filter(recs)
	out := make([]models.Record, 0, len(matched))
	for _, r := range matched {
		out = append(out, r.Firm())
	}
	return models.Found(out).Result(models.SourceDebarment, query, a.now())
}

func (a *Adapter) snapshot(ctx context.Context) ([]Record, error) {
	if a.cache != nil {
		recs, ok, err := a.cache.Get(ctx)
		if err != nil {
			a.logger.WarnContext(ctx, "registry snapshot cache read failed", "error", err)
		}
		if ok {
			return recs, nil
		}
	}

	payload, err := a.fetcher.Fetch(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	if payload == nil {
		return nil, sources.NewSourceError(sources.ErrorBadData, models.SourceDebarment, "registry returned no data", nil)
	}

	recs := Normalize(payload)
	if a.cache != nil {
		if err := a.cache.Put(ctx, recs); err != nil {
			a.logger.WarnContext(ctx, "registry snapshot cache write failed", "error", err)
		}
	}
	return recs, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrMalformedPayload):
		return sources.NewSourceError(sources.ErrorBadData, models.SourceDebarment, "registry payload unreadable", err)
	case errors.Is(err, ErrRetriesExhausted):
		return sources.NewSourceError(sources.ErrorProviderOutage, models.SourceDebarment, "registry unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		return sources.NewSourceError(sources.ErrorTimeout, models.SourceDebarment, "registry timed out", err)
	default:
		return sources.NewSourceError(sources.ErrorInternal, models.SourceDebarment, "registry request failed", err)
	}
}
