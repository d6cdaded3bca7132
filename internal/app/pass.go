package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sandlin/cma-scout/internal/adapters/mq/queue"
	"github.com/sandlin/cma-scout/internal/adapters/mq/worker"
	"github.com/sandlin/cma-scout/internal/adapters/repository"
	"github.com/sandlin/cma-scout/internal/domain/alerting"
	"github.com/sandlin/cma-scout/internal/domain/dedupe"
	"github.com/sandlin/cma-scout/internal/domain/fingerprint"
	"github.com/sandlin/cma-scout/internal/domain/model"
	"github.com/sandlin/cma-scout/internal/domain/scoring"
	"github.com/sandlin/cma-scout/pkg/logger"
	"github.com/sandlin/cma-scout/pkg/metrics"
)

// scoutingProgressCeiling leaves headroom for the scoring phase before
// the pass reports done.
const scoutingProgressCeiling = 90

// passState carries the per-pass counters and the assignment snapshot the
// matcher works against. Assignments are only created by provisioning, so
// a snapshot taken at pass start stays valid for the whole pass.
type passState struct {
	startedAt   time.Time
	total       int
	assignments []model.Assignment

	processed atomic.Int64
	errCount  atomic.Int64

	cancel   context.CancelFunc
	fatalMu  sync.Mutex
	fatalErr error
}

// fail records the first fatal error and cancels the rest of the pass.
func (st *passState) fail(err error) {
	st.fatalMu.Lock()
	if st.fatalErr == nil {
		st.fatalErr = err
		if st.cancel != nil {
			st.cancel()
		}
	}
	st.fatalMu.Unlock()
}

func (st *passState) fatal() error {
	st.fatalMu.Lock()
	defer st.fatalMu.Unlock()
	return st.fatalErr
}

// runPass drives one full scouting pass: worklist, worker pool, stale
// sweep, terminal status.
func (s *Service) runPass(ctx context.Context) {
	passCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	startedAt := s.now()
	st := &passState{startedAt: startedAt, cancel: cancel}

	summary := model.RunSummary{}
	defer func() { s.finishPass(summary) }()

	s.publish(model.AgentStatus{
		Phase:     model.PhaseScouting,
		Progress:  0,
		Message:   "Loading assignment worklist...",
		StartedAt: &startedAt,
	})

	assignments, err := s.store.ListAssignments(passCtx)
	if err != nil {
		s.logger.Error(ctx, "pass aborted: worklist load failed", logger.Error(err))
		s.publishError(startedAt, fmt.Sprintf("Pass failed: %v", err))
		metrics.RecordPassFinished("error")
		return
	}

	st.total = len(assignments)
	st.assignments = assignments
	summary.TotalItems = st.total

	if st.total == 0 {
		s.publish(model.AgentStatus{
			Phase:     model.PhaseDone,
			Progress:  100,
			Message:   "No assignments to scout",
			StartedAt: &startedAt,
		})
		metrics.RecordPassFinished("done")
		return
	}

	qSize := s.queueSize
	if qSize < st.total {
		qSize = st.total
	}
	q := queue.NewInMemoryQueue(queue.WithCapacity(qSize))
	for _, a := range assignments {
		q.Enqueue(passCtx, a)
	}
	_ = q.Close()

	s.publishProgress(st, fmt.Sprintf("Scouting %d assignments...", st.total))

	runner := &passRunner{svc: s, st: st}
	pool := worker.NewPool(s.workerCount, q, runner)
	pool.Start(passCtx)
	pool.Wait(passCtx)

	summary.ItemsProcessed = int(st.processed.Load())
	summary.Errors = int(st.errCount.Load())

	if err := st.fatal(); err != nil {
		s.logger.Error(ctx, "pass aborted", logger.Error(err))
		s.publishError(startedAt, fmt.Sprintf("Pass failed: %v", err))
		metrics.RecordPassFinished("error")
		return
	}
	if passCtx.Err() != nil {
		s.logger.Warn(ctx, "pass canceled",
			logger.Int("processed", summary.ItemsProcessed),
			logger.Int("total", summary.TotalItems),
		)
		s.publish(model.AgentStatus{
			Phase:          model.PhaseIdle,
			Progress:       0,
			Message:        fmt.Sprintf("Pass canceled after %d/%d assignments", summary.ItemsProcessed, summary.TotalItems),
			ItemsProcessed: summary.ItemsProcessed,
			TotalItems:     summary.TotalItems,
		})
		metrics.RecordPassFinished("canceled")
		return
	}

	s.publish(model.AgentStatus{
		Phase:          model.PhaseScoring,
		Progress:       scoutingProgressCeiling + 5,
		Message:        "Reconciling stale competitors...",
		ItemsProcessed: summary.ItemsProcessed,
		TotalItems:     summary.TotalItems,
		StartedAt:      &startedAt,
	})
	s.staleSweep(passCtx, st)

	if err := st.fatal(); err != nil {
		s.logger.Error(ctx, "pass aborted during stale sweep", logger.Error(err))
		s.publishError(startedAt, fmt.Sprintf("Pass failed: %v", err))
		metrics.RecordPassFinished("error")
		return
	}

	summary.Errors = int(st.errCount.Load())
	s.publish(model.AgentStatus{
		Phase:          model.PhaseDone,
		Progress:       100,
		Message:        fmt.Sprintf("Pass complete: %d/%d assignments, %d errors", summary.ItemsProcessed, summary.TotalItems, summary.Errors),
		ItemsProcessed: summary.ItemsProcessed,
		TotalItems:     summary.TotalItems,
		StartedAt:      &startedAt,
	})
	metrics.RecordPassFinished("done")
	metrics.RecordPassDuration(s.now().Sub(startedAt).Seconds())
}

func (s *Service) publishError(startedAt time.Time, msg string) {
	s.publish(model.AgentStatus{
		Phase:     model.PhaseError,
		Progress:  0,
		Message:   msg,
		StartedAt: &startedAt,
	})
}

func (s *Service) publishProgress(st *passState, msg string) {
	processed := int(st.processed.Load())
	progress := 0
	if st.total > 0 {
		progress = processed * scoutingProgressCeiling / st.total
	}
	s.publish(model.AgentStatus{
		Phase:          model.PhaseScouting,
		Progress:       progress,
		Message:        msg,
		ItemsProcessed: processed,
		TotalItems:     st.total,
		StartedAt:      &st.startedAt,
	})
}

// staleSweep walks tracked assignments whose competitor has not been
// observed inside the freshness window and emits stale_data alerts.
func (s *Service) staleSweep(ctx context.Context, st *passState) {
	assignments, err := s.store.ListAssignments(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrUnavailable) {
			st.fail(err)
		}
		return
	}

	now := s.now()
	for _, a := range assignments {
		if ctx.Err() != nil {
			return
		}
		if !a.Tracked() {
			continue
		}
		comp, err := s.store.GetCompetitor(ctx, a.CompetitorID)
		if err != nil {
			if errors.Is(err, repository.ErrUnavailable) {
				st.fail(err)
				return
			}
			continue
		}

		prev := pairStateFor(a, comp)
		out := s.classifier.ClassifyStale(prev, now)
		if out == nil {
			continue
		}

		if err := s.persistOutcome(ctx, a, comp, *out, nil, now, false); err != nil {
			if errors.Is(err, repository.ErrUnavailable) {
				st.fail(err)
				return
			}
			st.errCount.Add(1)
		}
	}
}

// passRunner binds the per-assignment pipeline to one pass's state.
type passRunner struct {
	svc *Service
	st  *passState
}

// ProcessAssignment ingests one assignment's observations and threads
// each through match, score, classify, persist. Per-assignment failures
// are counted and never abort the pass; only a store outage does.
func (r *passRunner) ProcessAssignment(ctx context.Context, a model.Assignment) error {
	s := r.svc
	defer func() {
		r.st.processed.Add(1)
		s.publishProgress(r.st, fmt.Sprintf("Scouted %q", a.Community))
	}()

	observations, err := s.ingestor.FetchObservations(ctx, a)
	if err != nil {
		r.st.errCount.Add(1)
		metrics.RecordObservation("error")
		return fmt.Errorf("ingest assignment %s: %w", a.ID, err)
	}

	for _, obs := range observations {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.processObservation(ctx, a, obs); err != nil {
			if errors.Is(err, repository.ErrUnavailable) {
				r.st.fail(err)
				return err
			}
			r.st.errCount.Add(1)
			metrics.RecordObservation("error")
			s.logger.Error(ctx, "observation processing failed",
				logger.String("assignment", a.ID),
				logger.String("observed", obs.ObservedName),
				logger.Error(err),
			)
		}
	}
	return nil
}

// processObservation runs match -> score -> classify -> persist for one
// raw observation under the pair-identity locks.
func (r *passRunner) processObservation(ctx context.Context, assigned model.Assignment, obs model.RawObservation) error {
	s := r.svc

	unlock, err := r.lockObservation(ctx, assigned, obs)
	if err != nil {
		if errors.Is(err, fingerprint.ErrInvalidObservation) {
			metrics.RecordObservation("invalid")
			s.logger.Warn(ctx, "skipping invalid observation",
				logger.String("observed", obs.ObservedName),
				logger.Error(err),
			)
			return nil
		}
		return err
	}
	defer unlock()

	// Re-read and re-match under the locks so the decide-write sequence
	// sees any write a concurrent observation of the same pair just made.
	competitors, err := s.store.ListCompetitors(ctx)
	if err != nil {
		return err
	}

	match, err := s.matcher.Match(ctx, obs, r.st.assignments, competitors)
	if err != nil {
		return err
	}

	assignment := assigned
	var comp model.Competitor
	var isNewCompetitor bool
	var distance float64

	switch match.Kind {
	case fingerprint.MatchedAssignment:
		if match.AssignmentID != assignment.ID {
			assignment, err = s.store.GetAssignment(ctx, match.AssignmentID)
			if err != nil {
				return err
			}
		}
		distance = match.DistanceMiles
		comp, isNewCompetitor, err = r.competitorFor(ctx, assignment, obs)
		if err != nil {
			return err
		}
	case fingerprint.MatchedCompetitor:
		comp, err = s.store.GetCompetitor(ctx, match.CompetitorID)
		if err != nil {
			return err
		}
		distance = fingerprint.DistanceMiles(
			obs.Location.Lat, obs.Location.Lon,
			assignment.Location.Lat, assignment.Location.Lon,
		)
	case fingerprint.NoMatch:
		comp = newCompetitor(obs)
		isNewCompetitor = true
		distance = fingerprint.DistanceMiles(
			obs.Location.Lat, obs.Location.Lon,
			assignment.Location.Lat, assignment.Location.Lon,
		)
	}

	// Re-read the assignment under the identity lock so two observations
	// of the same builder see each other's writes.
	if fresh, err := s.store.GetAssignment(ctx, assignment.ID); err == nil {
		assignment = fresh
	} else if errors.Is(err, repository.ErrUnavailable) {
		return err
	}

	score := s.scorer.Score(scoringInput(assignment, obs, distance))

	prev := alerting.PairState{}
	if assignment.CompetitorID == comp.ID && assignment.AlignmentScore != nil {
		prev = pairStateFor(assignment, comp)
	}

	out := s.classifier.Classify(prev, alerting.Observation{
		CompetitorID:   comp.ID,
		CompetitorName: comp.Name,
		DetectedName:   obs.ObservedName,
		Score:          score,
		PriceMin:       obs.PriceMin,
		PriceMax:       obs.PriceMax,
		DistanceMiles:  distance,
	})

	now := s.now()
	assignment.DetectedName = obs.ObservedName
	assignment.CompetitorID = comp.ID
	assignment.AlignmentScore = &score
	assignment.DistanceMiles = distance
	if obs.URL != "" {
		assignment.URL = obs.URL
	}

	if isNewCompetitor {
		comp.Name = obs.ObservedName
	}
	if obs.Builder != "" {
		comp.Builder = obs.Builder
	}
	comp.Location = obs.Location
	comp.LastScraped = now
	comp.PriceMin = obs.PriceMin
	comp.PriceMax = obs.PriceMax
	comp.AlignmentScore = &score

	if err := s.persistOutcome(ctx, assignment, comp, out, &comp, now, true); err != nil {
		return err
	}
	metrics.RecordObservation("processed")
	return nil
}

// lockObservation resolves which assignment the observation's pair belongs
// to with a provisional match, then locks both the normalized-name and
// pair keys in sorted order. Two concurrent observations whose names
// normalize differently still serialize when they fuzzy-match the same
// assignment.
func (r *passRunner) lockObservation(ctx context.Context, assigned model.Assignment, obs model.RawObservation) (func(), error) {
	s := r.svc

	competitors, err := s.store.ListCompetitors(ctx)
	if err != nil {
		return nil, err
	}
	match, err := s.matcher.Match(ctx, obs, r.st.assignments, competitors)
	if err != nil {
		return nil, err
	}

	pairID := assigned.ID
	if match.Kind == fingerprint.MatchedAssignment {
		pairID = match.AssignmentID
	}
	keys := []string{
		"name:" + s.matcher.Normalize(obs.ObservedName),
		"pair:" + pairID,
	}
	sort.Strings(keys)

	unlocks := make([]func(), 0, len(keys))
	for _, key := range keys {
		unlocks = append(unlocks, s.identityLocks.Lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}, nil
}

// competitorFor resolves the competitor side of a matched assignment,
// creating a fresh record on the first observation for the pair.
func (r *passRunner) competitorFor(ctx context.Context, a model.Assignment, obs model.RawObservation) (model.Competitor, bool, error) {
	if a.CompetitorID == "" {
		return newCompetitor(obs), true, nil
	}
	comp, err := r.svc.store.GetCompetitor(ctx, a.CompetitorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newCompetitor(obs), true, nil
		}
		return model.Competitor{}, false, err
	}
	return comp, false, nil
}

func newCompetitor(obs model.RawObservation) model.Competitor {
	return model.Competitor{
		ID:       uuid.NewString(),
		Name:     obs.ObservedName,
		Builder:  obs.Builder,
		Location: obs.Location,
	}
}

// persistOutcome gates drafts through the cool-down window, then writes
// the assignment, competitor, and surviving alerts atomically. On a
// failed write the claimed cool-down keys are released.
func (s *Service) persistOutcome(
	ctx context.Context,
	assignment model.Assignment,
	comp model.Competitor,
	out alerting.Outcome,
	updatedComp *model.Competitor,
	now time.Time,
	updateStatus bool,
) error {
	var alerts []model.Alert
	var claimed []string

	for _, draft := range out.Alerts {
		key := dedupe.Key(comp.ID, string(draft.Type))
		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordAlertSuppressed()
			continue
		}
		claimed = append(claimed, key)
		alerts = append(alerts, model.Alert{
			ID:             uuid.NewString(),
			CompetitorID:   comp.ID,
			CompetitorName: comp.Name,
			Type:           draft.Type,
			Severity:       draft.Severity,
			Message:        draft.Message,
			Date:           now,
		})
	}

	if updateStatus || out.Status == model.StatusStale {
		assignment.Status = out.Status
	}

	outcome := repository.Outcome{
		Assignment: &assignment,
		Alerts:     alerts,
	}
	if updatedComp != nil {
		outcome.Competitor = updatedComp
	}

	start := time.Now()
	err := s.store.ApplyOutcome(ctx, outcome)
	metrics.RecordStoreLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		for _, key := range claimed {
			s.deduper.Unrecord(ctx, key)
		}
		return err
	}

	for _, a := range alerts {
		metrics.RecordAlert(string(a.Type), string(a.Severity))
		s.logger.Info(ctx, "alert emitted",
			logger.String("type", string(a.Type)),
			logger.String("severity", string(a.Severity)),
			logger.String("competitor", a.CompetitorName),
		)
	}
	return nil
}

func pairStateFor(a model.Assignment, c model.Competitor) alerting.PairState {
	st := alerting.PairState{
		Tracked:          a.Tracked() && a.CompetitorID == c.ID,
		LastDetectedName: a.DetectedName,
		LastPriceMin:     c.PriceMin,
		LastPriceMax:     c.PriceMax,
		LastScraped:      c.LastScraped,
	}
	if a.AlignmentScore != nil {
		st.LastScore = *a.AlignmentScore
	}
	return st
}

func scoringInput(a model.Assignment, obs model.RawObservation, distance float64) scoring.Input {
	return scoring.Input{
		BuilderName:      a.BuilderName,
		DetectedName:     obs.ObservedName,
		ExpectedPriceMin: a.PriceMin,
		ExpectedPriceMax: a.PriceMax,
		ObservedPriceMin: obs.PriceMin,
		ObservedPriceMax: obs.PriceMax,
		DistanceMiles:    distance,
	}
}
