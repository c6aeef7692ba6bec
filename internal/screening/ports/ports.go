package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"screener/internal/screening/models"
	"screener/pkg/platform/audit"
)

// Source answers a screening query for one external source. Search never
// returns an error: every fault is rendered into the result.
type Source interface {
	Name() models.SourceName
	Search(ctx context.Context, query string) models.SearchResult
}

// AuditPublisher receives screening audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
