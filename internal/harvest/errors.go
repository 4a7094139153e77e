package harvest

import "errors"

// Sentinel errors shared across storage and pipeline packages.
var (
	// ErrNotFound is returned by store lookups that match no row.
	ErrNotFound = errors.New("not found")
	// ErrNoWork is returned when no unprocessed article link remains.
	ErrNoWork = errors.New("no pending article links")
	// ErrNoContainer is returned when an article page is missing its
	// canonical content container.
	ErrNoContainer = errors.New("content container not found")
)
