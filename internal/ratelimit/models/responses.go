package models

import (
	"strings"
	"time"

	dErrors "screener/pkg/domain-errors"
)

// RateLimitExceededResponse is the API response when the quota is exhausted.
type RateLimitExceededResponse struct {
	Error         string `json:"error"` // "rate_limit_exceeded"
	Message       string `json:"message"`
	RetryAfter    int    `json:"retry_after"` // seconds
	CurrentUsage  int    `json:"current_usage"`
	Limit         int    `json:"limit"`
	WindowSeconds int    `json:"window_seconds"`
}

// StatusResponse is the API response for GET /api/v1/rate-limit.
type StatusResponse struct {
	APIKey    string    `json:"api_key"`
	RateLimit Status    `json:"rate_limit"`
	Timestamp time.Time `json:"timestamp"`
}

// ResetRequest is the admin request body for resetting one credential.
type ResetRequest struct {
	APIKey string `json:"api_key"`
}

// ResetResponse acknowledges an admin reset.
type ResetResponse struct {
	Reset bool   `json:"reset"`
	Scope string `json:"scope"` // "credential" or "all"
}

func (r *ResetRequest) Validate() error {
	r.APIKey = strings.TrimSpace(r.APIKey)
	if r.APIKey == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "api_key is required")
	}
	return nil
}
