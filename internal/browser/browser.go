// Package browser defines the automated browser capability the screening
// sources drive. Sessions are isolated: no cookies or storage are shared
// between two Open calls.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout reports that a navigation or wait exceeded its deadline.
var ErrTimeout = errors.New("browser: timed out")

// Identity is the fingerprint a session presents to the remote site.
type Identity struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	Timezone       string
}

// Launcher opens new isolated sessions.
type Launcher interface {
	Open(ctx context.Context) (Session, error)
}

// Session is one browser tab. Close is idempotent and must be called on
// every exit path.
type Session interface {
	// Navigate loads url and waits for the document body. A deadline
	// overrun returns ErrTimeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// WaitVisible reports whether selector became visible within timeout.
	// A timeout is not an error.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	// Evaluate runs a script and decodes its result into out.
	Evaluate(ctx context.Context, expression string, out any) error
	// Content returns the rendered document markup.
	Content(ctx context.Context) (string, error)
	Close() error
}
