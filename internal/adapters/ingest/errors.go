package ingest

import "errors"

// Sentinel kinds for ingestion errors. Implementations wrap one of these
// so the coordinator can pick a retry-or-skip policy with errors.Is.
var (
	// ErrTransient marks a failure worth retrying, e.g. a network timeout.
	ErrTransient = errors.New("transient ingestion failure")

	// ErrPermanent marks a failure that retrying will not fix; the
	// assignment is skipped for this pass.
	ErrPermanent = errors.New("permanent ingestion failure")
)
