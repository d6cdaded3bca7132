package repository

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrNotFound marks a lookup for an unknown entity id.
	ErrNotFound = errors.New("entity not found")

	// ErrUnavailable marks a store that cannot be reached. Unlike
	// per-observation errors it is fatal to the current pass.
	ErrUnavailable = errors.New("store unavailable")
)
