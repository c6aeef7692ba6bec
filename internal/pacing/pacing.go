// Package pacing inserts human-like pauses between automated browser steps.
package pacing

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Interval is an inclusive range of pause lengths.
type Interval struct {
	Min time.Duration
	Max time.Duration
}

// Between is shorthand for an Interval.
func Between(lo, hi time.Duration) Interval {
	return Interval{Min: lo, Max: hi}
}

// Fixed is an Interval with no jitter.
func Fixed(d time.Duration) Interval {
	return Interval{Min: d, Max: d}
}

// Pacer pauses for a duration drawn from an interval. Pause returns early
// with ctx.Err() when ctx is cancelled.
type Pacer interface {
	Pause(ctx context.Context, iv Interval) error
}

// Random draws uniformly from each interval and sleeps on a real timer.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandom() *Random {
	return &Random{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded returns a Random with reproducible draws.
func NewSeeded(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Draw picks a duration from iv without sleeping.
func (r *Random) Draw(iv Interval) time.Duration {
	if iv.Max <= iv.Min {
		return max(iv.Min, 0)
	}
	r.mu.Lock()
	jitter := time.Duration(r.rng.Int64N(int64(iv.Max-iv.Min) + 1))
	r.mu.Unlock()
	return iv.Min + jitter
}

func (r *Random) Pause(ctx context.Context, iv Interval) error {
	d := r.Draw(iv)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// None never sleeps. Tests and the CLI dry-run use it.
type None struct{}

func (None) Pause(ctx context.Context, _ Interval) error {
	return ctx.Err()
}

// Recorder never sleeps and keeps every requested interval.
type Recorder struct {
	mu        sync.Mutex
	Intervals []Interval
}

func (r *Recorder) Pause(ctx context.Context, iv Interval) error {
	r.mu.Lock()
	r.Intervals = append(r.Intervals, iv)
	r.mu.Unlock()
	return ctx.Err()
}
