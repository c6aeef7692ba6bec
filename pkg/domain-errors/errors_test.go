package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	t.Run("wrapped domain error keeps its code", func(t *testing.T) {
		base := errors.New("dial tcp: refused")
		err := fmt.Errorf("search: %w", Wrap(base, CodeSourceUnavailable, "registry unreachable"))

		assert.Equal(t, CodeSourceUnavailable, CodeOf(err))
		assert.True(t, HasCode(err, CodeSourceUnavailable))
		assert.ErrorIs(t, err, base)
	})

	t.Run("plain error is internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}
