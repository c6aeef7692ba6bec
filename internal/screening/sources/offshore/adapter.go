package offshore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"screener/internal/browser"
	"screener/internal/screening/models"
	"screener/internal/screening/sources"
)

// Adapter exposes the Extractor as a screening source.
type Adapter struct {
	extractor *Extractor
	maxPages  int
	logger    *slog.Logger
	now       func() time.Time
}

type AdapterOption func(*Adapter)

func WithAdapterLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func WithAdapterClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) {
		a.now = now
	}
}

// NewAdapter reads at most maxPages result pages per search.
func NewAdapter(extractor *Extractor, maxPages int, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		extractor: extractor,
		maxPages:  maxPages,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() models.SourceName {
	return models.SourceOffshore
}

func (a *Adapter) Search(ctx context.Context, query string) models.SearchResult {
	outcome := a.search(ctx, query)
	if outcome.Kind == models.OutcomeFailure {
		a.logger.WarnContext(ctx, "offshore search failed",
			"source", models.SourceOffshore,
			"query", query,
			"error", outcome.Err,
		)
	}
	return outcome.Result(models.SourceOffshore, query, a.now())
}

func (a *Adapter) search(ctx context.Context, query string) models.Outcome {
	run, err := a.extractor.Extract(ctx, query, a.maxPages)
	if err != nil {
		return models.Failure(sources.NewSourceError(sources.ErrorInternal, models.SourceOffshore, "browser unavailable", err))
	}

	records := make([]models.Record, 0, len(run.Entities))
	for _, e := range run.Entities {
		records = append(records, e)
	}

	if run.Final == StateFaulted {
		if len(records) == 0 {
			out := models.Failure(classify(run.Fault))
			out.Challenge = run.ChallengeDetected
			return out
		}
		a.logger.WarnContext(ctx, "offshore extraction faulted after partial results",
			"query", query,
			"pages", run.Pages,
			"entities", len(records),
			"error", run.Fault,
		)
	}

	out := models.Found(records)
	out.Challenge = run.ChallengeDetected
	return out
}

func classify(err error) error {
	switch {
	case errors.Is(err, browser.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return sources.NewSourceError(sources.ErrorTimeout, models.SourceOffshore, "search timed out", err)
	case errors.Is(err, context.Canceled):
		return sources.NewSourceError(sources.ErrorInternal, models.SourceOffshore, "search cancelled", err)
	default:
		return sources.NewSourceError(sources.ErrorProviderOutage, models.SourceOffshore, "search failed", err)
	}
}
