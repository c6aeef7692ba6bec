package models

import (
	"time"
)

// Decision is the outcome of one quota check for a credential.
type Decision struct {
	Allowed      bool
	Limit        int
	Remaining    int
	CurrentUsage int
	// RetryAfter is whole seconds until the oldest request leaves the
	// window. Only set when Allowed is false.
	RetryAfter int
	ResetAt    time.Time
}

// Usage is a read-only view of one credential's window.
type Usage struct {
	Count  int
	Oldest time.Time // zero when Count is 0
}

// Status is the quota report returned by GET /api/v1/rate-limit.
type Status struct {
	Limit         int   `json:"limit"`
	Remaining     int   `json:"remaining"`
	Reset         int64 `json:"reset"`
	Used          int   `json:"used"`
	WindowSeconds int   `json:"window_seconds"`
}

// RetryAfterSeconds returns the whole seconds until oldest falls out of the
// window, always at least 1 so a client retrying on time is admitted.
func RetryAfterSeconds(oldest time.Time, window time.Duration, now time.Time) int {
	wait := oldest.Add(window).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return int(wait/time.Second) + 1
}

// NewStatus derives a Status from a window snapshot.
func NewStatus(u Usage, limit int, window time.Duration, now time.Time) Status {
	reset := now.Add(window)
	if u.Count > 0 {
		reset = u.Oldest.Add(window)
	}
	return Status{
		Limit:         limit,
		Remaining:     max(0, limit-u.Count),
		Reset:         reset.Unix(),
		Used:          u.Count,
		WindowSeconds: int(window / time.Second),
	}
}
