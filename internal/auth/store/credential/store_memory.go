package credential

import (
	"context"
	"fmt"
	"sync"

	"screener/internal/auth/models"
	"screener/pkg/platform/sentinel"
)

// InMemoryCredentialStore keeps credentials keyed by digest.
type InMemoryCredentialStore struct {
	mu    sync.RWMutex
	creds map[string]*models.Credential
}

func New() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{creds: make(map[string]*models.Credential)}
}

// Save inserts or replaces the credential with the same digest.
func (s *InMemoryCredentialStore) Save(_ context.Context, cred *models.Credential) error {
	if cred == nil || cred.Digest == "" {
		return fmt.Errorf("credential digest is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cred
	s.creds[cred.Digest] = &c
	return nil
}

func (s *InMemoryCredentialStore) FindByDigest(_ context.Context, digest string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creds[digest]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *InMemoryCredentialStore) SetActive(_ context.Context, digest string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creds[digest]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Active = active
	return nil
}

func (s *InMemoryCredentialStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.creds)
}
