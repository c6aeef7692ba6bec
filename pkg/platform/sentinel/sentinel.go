// Package sentinel holds infrastructure errors that stores return and
// services translate into domain errors.
package sentinel

import "errors"

// ErrNotFound reports a lookup that matched nothing.
var ErrNotFound = errors.New("not found")
