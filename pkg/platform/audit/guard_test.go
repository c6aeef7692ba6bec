package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screener/pkg/platform/circuit"
)

type flakyStore struct {
	err   error
	calls int
}

func (f *flakyStore) Append(context.Context, Event) error {
	f.calls++
	return f.err
}

func TestGuardedStoreShedsWhileOpen(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	store := &flakyStore{err: errors.New("connection refused")}
	breaker := circuit.New("audit",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	g := NewGuardedStore(store, breaker, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()
	event := Event{Action: string(EventScreeningPerformed)}

	assert.Error(t, g.Append(ctx, event))
	assert.Error(t, g.Append(ctx, event))
	assert.ErrorIs(t, g.Append(ctx, event), ErrStoreUnavailable)
	assert.Equal(t, 2, store.calls)

	store.err = nil
	now = now.Add(time.Minute)
	require.NoError(t, g.Append(ctx, event))
	assert.Equal(t, 3, store.calls)
	assert.Equal(t, circuit.StateClosed, breaker.State())
}
