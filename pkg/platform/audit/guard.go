package audit

import (
	"context"
	"errors"
	"log/slog"

	"screener/pkg/platform/circuit"
)

// ErrStoreUnavailable is returned while the guarded store's circuit is open.
var ErrStoreUnavailable = errors.New("audit store unavailable")

// GuardedStore sheds appends while its backend keeps failing, so a dead
// database or broker costs the worker nothing per event.
type GuardedStore struct {
	store   Store
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuardedStore(store Store, breaker *circuit.Breaker, logger *slog.Logger) *GuardedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuardedStore{store: store, breaker: breaker, logger: logger}
}

func (g *GuardedStore) Append(ctx context.Context, event Event) error {
	if !g.breaker.Allow() {
		return ErrStoreUnavailable
	}
	if err := g.store.Append(ctx, event); err != nil {
		if g.breaker.RecordFailure() {
			g.logger.WarnContext(ctx, "audit store circuit opened",
				"breaker", g.breaker.Name(),
				"error", err,
			)
		}
		return err
	}
	if g.breaker.RecordSuccess() {
		g.logger.InfoContext(ctx, "audit store circuit closed", "breaker", g.breaker.Name())
	}
	return nil
}
