// Package sources holds what the screening source adapters share.
package sources

import (
	"errors"
	"fmt"

	"screener/internal/screening/models"
)

// ErrorCategory is the normalized failure taxonomy for source adapters.
type ErrorCategory string

const (
	// ErrorTimeout indicates the source took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the source returned markup or JSON we could not read
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorProviderOutage indicates the source is unreachable or failing
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorChallenge indicates a bot-verification page replaced the results
	ErrorChallenge ErrorCategory = "challenge"

	// ErrorInternal indicates an unexpected fault on our side
	ErrorInternal ErrorCategory = "internal"
)

// SourceError wraps a source failure with its category.
type SourceError struct {
	Category   ErrorCategory
	Source     models.SourceName
	Message    string
	Underlying error
	Retryable  bool
}

func (e *SourceError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Source, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Source, e.Category, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Underlying
}

// NewSourceError creates a categorized source error.
func NewSourceError(category ErrorCategory, source models.SourceName, message string, underlying error) *SourceError {
	return &SourceError{
		Category:   category,
		Source:     source,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == ErrorTimeout || category == ErrorProviderOutage,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error.
func GetCategory(err error) ErrorCategory {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Category
	}
	return ErrorInternal
}
