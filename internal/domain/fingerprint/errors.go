package fingerprint

import "errors"

// Sentinel error kinds for this package. These allow errors.Is from callers.
var (
	// ErrInvalidObservation marks a malformed raw observation. The pass
	// skips the one record and continues.
	ErrInvalidObservation = errors.New("invalid observation")
)
