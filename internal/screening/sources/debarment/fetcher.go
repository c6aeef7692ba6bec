// Package debarment searches the World Bank debarred-firms registry API.
package debarment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrRetriesExhausted is returned when every attempt failed at the
	// transport or HTTP status level.
	ErrRetriesExhausted = errors.New("debarment: retries exhausted")
	// ErrMalformedPayload is returned as soon as a response body is not JSON.
	// It is never retried.
	ErrMalformedPayload = errors.New("debarment: malformed payload")
)

const (
	DefaultRetries   = 3
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	maxBodyBytes = 64 << 20
)

type FetcherConfig struct {
	URL       string
	APIKey    string
	UserAgent string
	Retries   int
	Timeout   time.Duration
	// RequestsPerSecond throttles outbound calls. Zero disables throttling.
	RequestsPerSecond float64
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fetcher downloads the registry payload with bounded retries and
// exponential backoff.
type Fetcher struct {
	cfg     FetcherConfig
	client  *http.Client
	limiter *rate.Limiter
	sleep   SleepFunc
	logger  *slog.Logger
}

type FetcherOption func(*Fetcher)

func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithSleep replaces the backoff sleep, which tests use to avoid waiting.
func WithSleep(sleep SleepFunc) FetcherOption {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

func NewFetcher(cfg FetcherConfig, opts ...FetcherOption) *Fetcher {
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	f := &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		sleep:  sleepContext,
		logger: slog.Default(),
	}
	if cfg.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the decoded JSON payload. A JSON null body yields a nil
// payload and no error. After attempt n (counting from zero) fails, Fetch
// sleeps 2^n seconds unless it was the last attempt.
func (f *Fetcher) Fetch(ctx context.Context, params url.Values) (any, error) {
	var lastErr error
	for attempt := 0; attempt < f.cfg.Retries; attempt++ {
		payload, err := f.once(ctx, params)
		if err == nil {
			return payload, nil
		}
		if errors.Is(err, ErrMalformedPayload) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err

		f.logger.WarnContext(ctx, "registry request failed",
			"attempt", attempt+1,
			"retries", f.cfg.Retries,
			"error", err,
		)
		if attempt < f.cfg.Retries-1 {
			if err := f.sleep(ctx, time.Duration(1<<attempt)*time.Second); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, f.cfg.Retries, lastErr)
}

func (f *Fetcher) once(ctx context.Context, params url.Values) (any, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	target := f.cfg.URL
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	if f.cfg.APIKey != "" {
		req.Header.Set("apikey", f.cfg.APIKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("registry responded %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read registry body: %w", err)
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return payload, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
