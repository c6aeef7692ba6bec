package window

import (
	"context"
	"slices"
	"sync"
	"time"

	"screener/internal/ratelimit/models"
)

// InMemoryWindowStore implements WindowStore with one mutex over all windows.
// Suitable for a single process; use RedisWindowStore when running replicas.
type InMemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
}

// slidingWindow tracks admitted request timestamps, oldest first.
type slidingWindow struct {
	timestamps []time.Time
}

// NewInMemoryWindowStore creates a new in-memory window store.
func NewInMemoryWindowStore() *InMemoryWindowStore {
	return &InMemoryWindowStore{
		windows: make(map[string]*slidingWindow),
	}
}

// Admit purges expired timestamps and appends now if the window has room.
func (s *InMemoryWindowStore) Admit(_ context.Context, key string, now time.Time, limit int, window time.Duration) (*models.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sw := s.getOrCreate(key)
	sw.purge(now, window)
	count := len(sw.timestamps)

	if count >= limit {
		oldest := sw.timestamps[0]
		return &models.Decision{
			Allowed:      false,
			Limit:        limit,
			Remaining:    0,
			CurrentUsage: count,
			RetryAfter:   models.RetryAfterSeconds(oldest, window, now),
			ResetAt:      oldest.Add(window),
		}, nil
	}

	sw.insert(now)
	return &models.Decision{
		Allowed:      true,
		Limit:        limit,
		Remaining:    limit - len(sw.timestamps),
		CurrentUsage: len(sw.timestamps),
		ResetAt:      sw.timestamps[0].Add(window),
	}, nil
}

// Usage counts live timestamps without mutating the window.
func (s *InMemoryWindowStore) Usage(_ context.Context, key string, now time.Time, window time.Duration) (*models.Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sw := s.windows[key]
	if sw == nil {
		return &models.Usage{}, nil
	}

	cutoff := now.Add(-window)
	u := &models.Usage{}
	for _, ts := range sw.timestamps {
		if !ts.After(cutoff) {
			continue
		}
		if u.Count == 0 {
			u.Oldest = ts
		}
		u.Count++
	}
	return u, nil
}

// Reset clears the window for a key.
func (s *InMemoryWindowStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// ResetAll clears every window.
func (s *InMemoryWindowStore) ResetAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.windows)
	return nil
}

// purge drops timestamps at or before now-window.
func (sw *slidingWindow) purge(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// insert keeps timestamps sorted when callers hand in slightly skewed clocks.
func (sw *slidingWindow) insert(ts time.Time) {
	i, _ := slices.BinarySearchFunc(sw.timestamps, ts, func(a, b time.Time) int {
		return a.Compare(b)
	})
	if i == len(sw.timestamps) {
		sw.timestamps = append(sw.timestamps, ts)
		return
	}
	sw.timestamps = slices.Insert(sw.timestamps, i, ts)
}

// getOrCreate must be called while holding s.mu.
func (s *InMemoryWindowStore) getOrCreate(key string) *slidingWindow {
	if sw := s.windows[key]; sw != nil {
		return sw
	}
	sw := &slidingWindow{}
	s.windows[key] = sw
	return sw
}
