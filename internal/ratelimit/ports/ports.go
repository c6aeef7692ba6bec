package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"screener/internal/ratelimit/models"
	"screener/pkg/platform/audit"
)

// WindowStore holds per-credential sliding windows. Admit must run its
// purge-count-append sequence as one atomic step.
type WindowStore interface {
	Admit(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (*models.Decision, error)
	Usage(ctx context.Context, key string, now time.Time, window time.Duration) (*models.Usage, error)
	Reset(ctx context.Context, key string) error
	ResetAll(ctx context.Context) error
}

// AuditPublisher receives rate-limit audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
