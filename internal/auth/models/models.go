package models

import (
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"strings"
	"time"

	dErrors "screener/pkg/domain-errors"
)

// Credential is a registered API key. Only the key's digest is held.
type Credential struct {
	Digest    string
	Name      string
	Email     string
	Active    bool
	CreatedAt time.Time
}

// Digest returns the lookup digest for a raw API key.
func Digest(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// RegisterRequest is the admin body for issuing a new API key.
type RegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r *RegisterRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)

	if len(r.Name) > 100 {
		return dErrors.New(dErrors.CodeInvalidInput, "name must be 100 characters or less")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "email is not a valid address")
	}
	return nil
}

// RegisterResponse carries the raw key. It is shown once and never stored.
type RegisterResponse struct {
	APIKey string `json:"api_key"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type RevokeRequest struct {
	APIKey string `json:"api_key"`
}

func (r *RevokeRequest) Validate() error {
	r.APIKey = strings.TrimSpace(r.APIKey)
	if r.APIKey == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "api_key is required")
	}
	return nil
}

type RevokeResponse struct {
	Revoked bool `json:"revoked"`
}
