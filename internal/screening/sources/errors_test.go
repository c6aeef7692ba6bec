package sources

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"screener/internal/screening/models"
)

func TestSourceError(t *testing.T) {
	timeout := NewSourceError(ErrorTimeout, models.SourceSanctions, "search form never appeared", context.DeadlineExceeded)
	assert.True(t, timeout.Retryable)
	assert.True(t, errors.Is(timeout, context.DeadlineExceeded))
	assert.Equal(t, "OFAC [timeout]: search form never appeared: context deadline exceeded", timeout.Error())

	bad := NewSourceError(ErrorBadData, models.SourceDebarment, "payload is not JSON", nil)
	assert.False(t, IsRetryable(bad))
	assert.Equal(t, ErrorBadData, GetCategory(fmt.Errorf("wrapped: %w", bad)))

	assert.Equal(t, ErrorInternal, GetCategory(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
