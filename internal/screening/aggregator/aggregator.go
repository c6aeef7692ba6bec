// Package aggregator fans a query out to every screening source.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"screener/internal/screening/metrics"
	"screener/internal/screening/models"
	"screener/internal/screening/ports"
	"screener/internal/screening/sources"
)

const tracerName = "screener/internal/screening/aggregator"

// Sources are the three screening sources in response order.
type Sources struct {
	Sanctions ports.Source
	Offshore  ports.Source
	Registry  ports.Source
}

type Aggregator struct {
	sources Sources
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Aggregator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(a *Aggregator) {
		a.tracer = t
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

func New(src Sources, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources: src,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SearchAll queries every source concurrently. One source failing never
// affects the others; its failure is reported inside its own result. The
// only error is an invalid query.
func (a *Aggregator) SearchAll(ctx context.Context, query string) (*models.MultiSourceResponse, error) {
	q, err := models.ValidateQuery(query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "screening.search_all")
	defer span.End()

	ordered := []ports.Source{a.sources.Sanctions, a.sources.Offshore, a.sources.Registry}
	results := make([]models.SearchResult, len(ordered))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range ordered {
		g.Go(func() error {
			results[i] = a.run(gctx, src, q)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, r := range results {
		total += r.Hits
	}
	a.metrics.ObserveSearchAllLatency(time.Since(start))
	span.SetAttributes(attribute.Int("screening.total_hits", total))

	a.logger.InfoContext(ctx, "multi-source search completed",
		"query", q,
		"total_hits", total,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &models.MultiSourceResponse{
		Query:     q,
		TotalHits: total,
		Sources:   results,
		Timestamp: a.now(),
	}, nil
}

// Search queries a single source with the same panic isolation and
// instrumentation SearchAll applies.
func (a *Aggregator) Search(ctx context.Context, src ports.Source, query string) (models.SearchResult, error) {
	q, err := models.ValidateQuery(query)
	if err != nil {
		return models.SearchResult{}, err
	}
	return a.run(ctx, src, q), nil
}

func (a *Aggregator) run(ctx context.Context, src ports.Source, query string) (result models.SearchResult) {
	name := src.Name()
	ctx, span := a.tracer.Start(ctx, "screening.source",
		trace.WithAttributes(attribute.String("screening.source", string(name))))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "source panicked",
				"source", name,
				"query", query,
				"panic", r,
			)
			err := sources.NewSourceError(sources.ErrorInternal, name, "source panicked", fmt.Errorf("%v", r))
			result = models.Failure(err).Result(name, query, a.now())
		}
		a.record(span, name, result, time.Since(start))
	}()

	return src.Search(ctx, query)
}

func (a *Aggregator) record(span trace.Span, name models.SourceName, r models.SearchResult, d time.Duration) {
	outcome := models.OutcomeSuccess
	switch {
	case r.Failed():
		outcome = models.OutcomeFailure
	case r.Hits == 0:
		outcome = models.OutcomeEmpty
	}

	a.metrics.ObserveSourceLatency(string(name), d)
	a.metrics.IncrementOutcome(string(name), outcome.String())
	if r.ChallengeDetected {
		a.metrics.IncrementChallenge(string(name))
	}

	span.SetAttributes(
		attribute.Int("screening.hits", r.Hits),
		attribute.String("screening.outcome", outcome.String()),
		attribute.Bool("screening.challenge", r.ChallengeDetected),
	)
	if r.Failed() {
		span.SetStatus(codes.Error, r.Error)
	}
}
