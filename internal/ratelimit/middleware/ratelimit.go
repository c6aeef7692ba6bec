package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"screener/internal/ratelimit/models"
	"screener/pkg/platform/httputil"
	"screener/pkg/requestcontext"
)

type Limiter interface {
	Check(ctx context.Context, credential string) (*models.Decision, error)
	MaxRequests() int
	WindowSeconds() int
}

type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for local runs and demos).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit charges one request against the verified credential's window.
// It must run after the API-key middleware. Store failures fail open.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		credential := requestcontext.Credential(ctx)
		if credential == "" {
			next.ServeHTTP(w, r)
			return
		}

		d, err := m.limiter.Check(ctx, credential)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to check rate limit",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, d)

		if !d.Allowed {
			writeRateLimitExceeded(w, d, m.limiter.WindowSeconds())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, d *models.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, d *models.Decision, windowSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:         "rate_limit_exceeded",
		Message:       fmt.Sprintf("Maximum %d requests per %d seconds allowed", d.Limit, windowSeconds),
		RetryAfter:    d.RetryAfter,
		CurrentUsage:  d.CurrentUsage,
		Limit:         d.Limit,
		WindowSeconds: windowSeconds,
	})
}
