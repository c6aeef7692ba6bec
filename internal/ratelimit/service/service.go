package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"screener/internal/ratelimit/metrics"
	"screener/internal/ratelimit/models"
	"screener/internal/ratelimit/ports"
	dErrors "screener/pkg/domain-errors"
	"screener/pkg/platform/audit"
	"screener/pkg/requestcontext"
)

const (
	DefaultMaxRequests = 20
	DefaultWindow      = 60 * time.Second
)

// Limiter enforces a fixed sliding-window quota per credential. The quota is
// fixed at construction.
type Limiter struct {
	store       ports.WindowStore
	maxRequests int
	window      time.Duration
	now         func(ctx context.Context) time.Time
	logger      *slog.Logger
	metrics     *metrics.Metrics
	audit       ports.AuditPublisher
}

type Option func(*Limiter)

// WithQuota overrides the default 20 requests per 60 seconds.
func WithQuota(maxRequests int, window time.Duration) Option {
	return func(l *Limiter) {
		l.maxRequests = maxRequests
		l.window = window
	}
}

// WithClock replaces the request-scoped clock; tests use it to simulate time.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = func(context.Context) time.Time { return now() }
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(l *Limiter) {
		l.audit = publisher
	}
}

func New(store ports.WindowStore, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("window store is required")
	}

	l := &Limiter{
		store:       store,
		maxRequests: DefaultMaxRequests,
		window:      DefaultWindow,
		now:         requestcontext.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.maxRequests <= 0 {
		return nil, errors.New("max requests must be positive")
	}
	if l.window < time.Second {
		return nil, errors.New("window must be at least one second")
	}
	return l, nil
}

// MaxRequests returns the configured quota.
func (l *Limiter) MaxRequests() int { return l.maxRequests }

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

func (l *Limiter) WindowSeconds() int { return int(l.window / time.Second) }

// Check admits or rejects one request for credential. A rejected decision is
// not an error; errors come only from the window store.
func (l *Limiter) Check(ctx context.Context, credential string) (*models.Decision, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential is required")
	}

	d, err := l.store.Admit(ctx, models.WindowKey(credential), l.now(ctx), l.maxRequests, l.window)
	if err != nil {
		l.metrics.IncrementStoreErrors()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}
	l.metrics.RecordDecision(d.Allowed)

	if !d.Allowed {
		l.logger.WarnContext(ctx, "rate limit exceeded",
			"request_id", requestcontext.RequestID(ctx),
			"owner", requestcontext.OwnerName(ctx),
			"current_usage", d.CurrentUsage,
			"limit", d.Limit,
			"retry_after", d.RetryAfter,
		)
		l.emit(ctx, audit.EventRateLimitExceeded, "quota_exhausted")
	}
	return d, nil
}

// Status reports the credential's window without consuming quota.
func (l *Limiter) Status(ctx context.Context, credential string) (*models.Status, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential is required")
	}

	now := l.now(ctx)
	u, err := l.store.Usage(ctx, models.WindowKey(credential), now, l.window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read rate limit status")
	}
	status := models.NewStatus(*u, l.maxRequests, l.window, now)
	return &status, nil
}

// Reset clears one credential's window.
func (l *Limiter) Reset(ctx context.Context, credential string) error {
	if strings.TrimSpace(credential) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "api_key is required")
	}
	if err := l.store.Reset(ctx, models.WindowKey(credential)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset rate limit")
	}
	l.metrics.IncrementResets("credential")
	l.emit(ctx, audit.EventRateLimitReset, "credential")
	return nil
}

// ResetAll clears every window.
func (l *Limiter) ResetAll(ctx context.Context) error {
	if err := l.store.ResetAll(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset rate limits")
	}
	l.metrics.IncrementResets("all")
	l.emit(ctx, audit.EventRateLimitReset, "all")
	return nil
}

func (l *Limiter) emit(ctx context.Context, action audit.AuditEvent, reason string) {
	if l.audit == nil {
		return
	}
	_ = l.audit.Emit(ctx, audit.Event{
		Action:    string(action),
		Subject:   requestcontext.OwnerName(ctx),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
	})
}
