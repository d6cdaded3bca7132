package service

import (
	"time"

	"github.com/sandlin/cma-scout/internal/adapters/ingest"
	"github.com/sandlin/cma-scout/internal/adapters/repository"
	"github.com/sandlin/cma-scout/internal/domain/dedupe"
	"github.com/sandlin/cma-scout/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence store. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithIngestor sets the ingestion collaborator. Defaults to the
// simulated ingestor wrapped in the retry policy.
func WithIngestor(ing ingest.Ingestor) Option {
	return func(s *Service) {
		if ing != nil {
			s.ingestor = ing
		}
	}
}

// WithDeduper replaces the alert cool-down gate. Intended for tests.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkerCount sets the per-pass ingestion concurrency.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithQueueSize bounds the pass work queue.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithSearchRadius sets the matcher radius in miles.
func WithSearchRadius(miles float64) Option {
	return func(s *Service) {
		if miles > 0 {
			s.radiusMiles = miles
		}
	}
}

// WithScoreWeights sets the name/price/distance scoring weights.
func WithScoreWeights(name, price, distance float64) Option {
	return func(s *Service) {
		s.nameWeight = name
		s.priceWeight = price
		s.distanceWeight = distance
	}
}

// WithScoreDelta sets the drift threshold on score movement.
func WithScoreDelta(delta int) Option {
	return func(s *Service) {
		if delta > 0 {
			s.scoreDelta = delta
		}
	}
}

// WithSeverityFloor sets the score under which drift turns high severity.
func WithSeverityFloor(floor int) Option {
	return func(s *Service) {
		if floor > 0 {
			s.severityFloor = floor
		}
	}
}

// WithFreshnessWindow sets the staleness cutoff for competitors.
func WithFreshnessWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.freshnessWindow = window
		}
	}
}

// WithCooldown sets the alert dedupe window.
func WithCooldown(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.cooldown = window
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
