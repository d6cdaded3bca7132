package jobs

import "errors"

// Sentinel kinds for scheduler errors.
var (
	ErrSchedule = errors.New("schedule registration failed")
)
