// Package ingest defines the contract to the external ingestion
// collaborator that turns an assignment into raw competitor observations.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandlin/cma-scout/internal/domain/model"
	"github.com/sandlin/cma-scout/pkg/logger"
	"github.com/sandlin/cma-scout/pkg/metrics"
)

// Ingestor fetches zero or more raw observations for one assignment.
// Failures classify as transient (ErrTransient, worth retrying) or
// permanent (ErrPermanent, recorded and skipped for the pass).
type Ingestor interface {
	FetchObservations(ctx context.Context, a model.Assignment) ([]model.RawObservation, error)
}

// Default retry behavior for transient failures.
const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

// RetryingIngestor wraps an Ingestor with exponential back-off retries on
// transient failures. Permanent failures pass through immediately.
type RetryingIngestor struct {
	inner       Ingestor
	maxAttempts int
	baseDelay   time.Duration
	logger      logger.Logger
}

// RetryOption applies a configuration option to the RetryingIngestor.
type RetryOption func(*RetryingIngestor)

// WithMaxAttempts sets the total attempt budget per assignment.
func WithMaxAttempts(n int) RetryOption {
	return func(r *RetryingIngestor) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the first back-off delay; each retry doubles it.
func WithBaseDelay(d time.Duration) RetryOption {
	return func(r *RetryingIngestor) {
		if d > 0 {
			r.baseDelay = d
		}
	}
}

// WithRetryLogger sets a custom logger.
func WithRetryLogger(l logger.Logger) RetryOption {
	return func(r *RetryingIngestor) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRetry wraps inner with the default retry policy plus options.
func WithRetry(inner Ingestor, opts ...RetryOption) *RetryingIngestor {
	r := &RetryingIngestor{
		inner:       inner,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("ingest")
	}
	return r
}

// FetchObservations retries transient failures up to the attempt budget.
func (r *RetryingIngestor) FetchObservations(ctx context.Context, a model.Assignment) ([]model.RawObservation, error) {
	var lastErr error
	delay := r.baseDelay

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		obs, err := r.inner.FetchObservations(ctx, a)
		if err == nil {
			return obs, nil
		}
		lastErr = err

		if !errors.Is(err, ErrTransient) {
			metrics.RecordIngestFailure("permanent")
			return nil, err
		}
		if attempt == r.maxAttempts {
			break
		}

		metrics.RecordIngestRetry()
		r.logger.Warn(ctx, "transient ingestion failure; retrying",
			logger.String("assignment", a.ID),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	metrics.RecordIngestFailure("transient")
	return nil, fmt.Errorf("ingestion failed after %d attempts: %w", r.maxAttempts, lastErr)
}
