package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"screener/internal/auth/models"
	"screener/internal/auth/ports"
	dErrors "screener/pkg/domain-errors"
	"screener/pkg/platform/audit"
	"screener/pkg/platform/sentinel"
	"screener/pkg/requestcontext"
)

const keyBytes = 32

// Service verifies and manages API keys.
type Service struct {
	store   ports.CredentialStore
	logger  *slog.Logger
	audit   ports.AuditPublisher
	entropy io.Reader
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

// WithEntropy replaces crypto/rand as the key source.
func WithEntropy(r io.Reader) Option {
	return func(s *Service) {
		s.entropy = r
	}
}

func New(store ports.CredentialStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("credential store is required")
	}
	s := &Service{
		store:   store,
		logger:  slog.Default(),
		entropy: rand.Reader,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Verify resolves an API key to its active credential. A missing key is
// unauthorized; an unknown or deactivated key is forbidden.
func (s *Service) Verify(ctx context.Context, apiKey string) (*models.Credential, error) {
	if apiKey == "" {
		s.reject(ctx, "missing_key")
		return nil, dErrors.New(dErrors.CodeUnauthorized,
			"API Key is required. Please provide a valid API key in the X-API-KEY header.")
	}

	cred, err := s.store.FindByDigest(ctx, models.Digest(apiKey))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.reject(ctx, "unknown_key")
			return nil, dErrors.New(dErrors.CodeForbidden, "Invalid API Key. Please check your credentials.")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify API key")
	}
	if !cred.Active {
		s.reject(ctx, "inactive_key")
		return nil, dErrors.New(dErrors.CodeForbidden, "API Key has been deactivated. Please contact support.")
	}
	return cred, nil
}

// GenerateKey returns 32 random bytes as unpadded URL-safe base64.
func (s *Service) GenerateKey() (string, error) {
	buf := make([]byte, keyBytes)
	if _, err := io.ReadFull(s.entropy, buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Register issues a new active key for name and email and returns the raw key.
func (s *Service) Register(ctx context.Context, name, email string) (string, error) {
	key, err := s.GenerateKey()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate API key")
	}

	err = s.store.Save(ctx, &models.Credential{
		Digest:    models.Digest(key),
		Name:      name,
		Email:     email,
		Active:    true,
		CreatedAt: s.now(),
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to register API key")
	}

	s.logger.InfoContext(ctx, "api key registered",
		"request_id", requestcontext.RequestID(ctx),
		"name", name,
	)
	s.emit(ctx, audit.Event{Action: string(audit.EventCredentialRegistered), Subject: name})
	return key, nil
}

// Revoke deactivates a key. The record is kept so later use reports
// deactivation rather than an unknown key.
func (s *Service) Revoke(ctx context.Context, apiKey string) error {
	digest := models.Digest(apiKey)
	cred, err := s.store.FindByDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "API key not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke API key")
	}
	if err := s.store.SetActive(ctx, digest, false); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke API key")
	}

	s.logger.InfoContext(ctx, "api key revoked",
		"request_id", requestcontext.RequestID(ctx),
		"name", cred.Name,
	)
	s.emit(ctx, audit.Event{Action: string(audit.EventCredentialRevoked), Subject: cred.Name})
	return nil
}

func (s *Service) reject(ctx context.Context, reason string) {
	s.logger.WarnContext(ctx, "api key rejected",
		"request_id", requestcontext.RequestID(ctx),
		"reason", reason,
	)
	s.emit(ctx, audit.Event{Action: string(audit.EventAuthRejected), Reason: reason})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	_ = s.audit.Emit(ctx, event)
}

// Authenticate verifies apiKey and returns the owner's display name.
func (s *Service) Authenticate(ctx context.Context, apiKey string) (string, error) {
	cred, err := s.Verify(ctx, apiKey)
	if err != nil {
		return "", err
	}
	return cred.Name, nil
}
