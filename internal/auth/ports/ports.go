package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"screener/internal/auth/models"
	"screener/pkg/platform/audit"
)

// CredentialStore persists API key records by digest.
type CredentialStore interface {
	Save(ctx context.Context, cred *models.Credential) error
	FindByDigest(ctx context.Context, digest string) (*models.Credential, error)
	SetActive(ctx context.Context, digest string, active bool) error
}

// AuditPublisher receives credential lifecycle and rejection events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
