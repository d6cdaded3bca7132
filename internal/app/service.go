// Package service provides the run coordinator: the core business service
// that drives scouting passes and implements the dependencies required by
// the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/sandlin/cma-scout/internal/adapters/ingest"
	"github.com/sandlin/cma-scout/internal/adapters/repository"
	"github.com/sandlin/cma-scout/internal/adapters/status"
	"github.com/sandlin/cma-scout/internal/domain/alerting"
	"github.com/sandlin/cma-scout/internal/domain/dedupe"
	"github.com/sandlin/cma-scout/internal/domain/fingerprint"
	"github.com/sandlin/cma-scout/internal/domain/model"
	"github.com/sandlin/cma-scout/internal/domain/scoring"
	"github.com/sandlin/cma-scout/pkg/logger"
	"github.com/sandlin/cma-scout/pkg/metrics"
)

// Default coordinator configuration.
const (
	defaultWorkerCount = 5
	defaultQueueSize   = 256
)

// Service coordinates scouting passes over the assignment worklist. One
// pass runs as a single background task at a time; a second StartPass
// while one is in flight is rejected with ErrAlreadyRunning.
type Service struct {
	mu         sync.Mutex
	started    bool
	running    bool
	cancelPass context.CancelFunc

	store    repository.Store
	ingestor ingest.Ingestor
	deduper  dedupe.Deduper

	matcher    *fingerprint.Matcher
	scorer     *scoring.Scorer
	classifier *alerting.Classifier
	pub        *status.Publisher

	identityLocks *keyedMutex

	// Configuration
	workerCount     int
	queueSize       int
	radiusMiles     float64
	nameWeight      float64
	priceWeight     float64
	distanceWeight  float64
	scoreDelta      int
	severityFloor   int
	freshnessWindow time.Duration
	cooldown        time.Duration

	now    func() time.Time
	logger logger.Logger

	summaryMu   sync.RWMutex
	lastSummary model.RunSummary
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   defaultWorkerCount,
		queueSize:     defaultQueueSize,
		identityLocks: newKeyedMutex(),
		pub:           status.NewPublisher(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// backfiller is the optional deduper extension used to seed cool-downs
// from alerts already persisted before this process started.
type backfiller interface {
	RecordAt(key string, fired time.Time)
}

// Start initializes the service components and seeds the alert cool-down
// window from persisted alerts.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("coordinator")
	}
	if s.store == nil {
		s.store = repository.NewMemStore()
	}
	if s.ingestor == nil {
		s.ingestor = ingest.WithRetry(ingest.NewSimulatedIngestor())
	}
	if s.deduper == nil {
		var opts []dedupe.Option
		if s.cooldown > 0 {
			opts = append(opts, dedupe.WithWindow(s.cooldown))
		}
		opts = append(opts, dedupe.WithClock(s.now))
		s.deduper = dedupe.NewWindowDeduper(opts...)
	}

	var matcherOpts []fingerprint.Option
	var scorerOpts []scoring.Option
	if s.radiusMiles > 0 {
		matcherOpts = append(matcherOpts, fingerprint.WithRadius(s.radiusMiles))
		scorerOpts = append(scorerOpts, scoring.WithRadius(s.radiusMiles))
	}
	if s.nameWeight+s.priceWeight+s.distanceWeight > 0 {
		scorerOpts = append(scorerOpts, scoring.WithWeights(s.nameWeight, s.priceWeight, s.distanceWeight))
	}
	s.matcher = fingerprint.NewMatcher(matcherOpts...)
	s.scorer = scoring.NewScorer(scorerOpts...)

	var clsOpts []alerting.Option
	if s.scoreDelta > 0 {
		clsOpts = append(clsOpts, alerting.WithScoreDelta(s.scoreDelta))
	}
	if s.severityFloor > 0 {
		clsOpts = append(clsOpts, alerting.WithSeverityFloor(s.severityFloor))
	}
	if s.freshnessWindow > 0 {
		clsOpts = append(clsOpts, alerting.WithFreshnessWindow(s.freshnessWindow))
	}
	s.classifier = alerting.NewClassifier(clsOpts...)

	if err := s.seedCooldowns(ctx); err != nil {
		return err
	}

	s.started = true
	s.logger.Info(ctx, "coordinator started",
		logger.Int("workers", s.workerCount),
		logger.Float64("radiusMiles", s.matcher.Radius()),
	)
	return nil
}

// seedCooldowns replays recent persisted alerts into the dedupe window so
// a restart does not reopen cool-downs.
func (s *Service) seedCooldowns(ctx context.Context) error {
	bf, ok := s.deduper.(backfiller)
	if !ok {
		return nil
	}
	alerts, err := s.store.ListAlerts(ctx)
	if err != nil {
		return err
	}
	for _, a := range alerts {
		bf.RecordAt(dedupe.Key(a.CompetitorID, string(a.Type)), a.Date)
	}
	return nil
}

// Stop cancels any in-flight pass and marks the service stopped.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelPass != nil {
		s.cancelPass()
	}
	s.started = false
}

// StartPass launches one scouting pass in the background. It returns
// ErrAlreadyRunning while a pass is in flight.
func (s *Service) StartPass(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	if s.running {
		return ErrAlreadyRunning
	}

	passCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.running = true
	s.cancelPass = cancel

	go s.runPass(passCtx)
	return nil
}

// StopPass asks an in-flight pass to stop after its current assignment.
// Whatever was persisted stands; nothing is rolled back.
func (s *Service) StopPass() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running && s.cancelPass != nil {
		s.cancelPass()
	}
}

// Running reports whether a pass is in flight.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// GetStatus returns the published status snapshot.
func (s *Service) GetStatus() model.AgentStatus {
	return s.pub.Get()
}

// LastSummary returns the summary of the most recently finished pass.
func (s *Service) LastSummary() model.RunSummary {
	s.summaryMu.RLock()
	defer s.summaryMu.RUnlock()
	return s.lastSummary
}

// ListAssignments is a read-only projection for the API layer.
func (s *Service) ListAssignments(ctx context.Context) ([]model.Assignment, error) {
	return s.store.ListAssignments(ctx)
}

// ListCompetitors is a read-only projection for the API layer.
func (s *Service) ListCompetitors(ctx context.Context) ([]model.Competitor, error) {
	return s.store.ListCompetitors(ctx)
}

// ListAlerts is a read-only projection for the API layer.
func (s *Service) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	return s.store.ListAlerts(ctx)
}

// PingStore verifies the persistence store is reachable.
func (s *Service) PingStore(ctx context.Context) error {
	if s.store == nil {
		return ErrNotStarted
	}
	return s.store.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"running":     s.Running(),
		"workerCount": s.workerCount,
		"cooldowns":   int64(0),
		"summary":     s.LastSummary(),
	}
	if s.deduper != nil {
		stats["cooldowns"] = s.deduper.Size()
	}

	if s.store != nil {
		if assignments, err := s.store.ListAssignments(ctx); err == nil {
			stats["assignments"] = len(assignments)
			if competitors, err := s.store.ListCompetitors(ctx); err == nil {
				stats["competitors"] = len(competitors)
				metrics.UpdateEntityCounts(len(assignments), len(competitors))
			}
		}
	}
	return stats
}

// publish pushes a fresh status snapshot and mirrors progress to metrics.
func (s *Service) publish(st model.AgentStatus) {
	s.pub.Publish(st)
	metrics.UpdatePassProgress(st.Progress)
}

func (s *Service) finishPass(summary model.RunSummary) {
	s.summaryMu.Lock()
	s.lastSummary = summary
	s.summaryMu.Unlock()

	s.mu.Lock()
	s.running = false
	s.cancelPass = nil
	s.mu.Unlock()
}
