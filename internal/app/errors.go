package service

import "errors"

// Sentinel kinds for coordinator errors.
var (
	// ErrAlreadyRunning rejects a pass start while one is in flight.
	ErrAlreadyRunning = errors.New("a scouting pass is already running")

	// ErrNotStarted rejects operations before Start.
	ErrNotStarted = errors.New("service not started")
)
