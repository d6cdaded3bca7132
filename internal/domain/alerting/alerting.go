// Package alerting decides whether a fresh observation warrants an alert
// for an (assignment, competitor) pair, and at what severity.
//
// Each pair walks a small state machine: unknown -> tracked ->
// mismatched/stale. The classifier is pure; the cool-down gate and the
// atomic persistence of its outcome belong to the caller.
package alerting

import (
	"fmt"
	"time"

	"github.com/sandlin/cma-scout/internal/domain/fingerprint"
	"github.com/sandlin/cma-scout/internal/domain/model"
)

// Default thresholds, exposed as options because they are policy, not
// invariants.
const (
	defaultScoreDelta      = 20
	defaultSeverityFloor   = 40
	defaultFreshnessWindow = 14 * 24 * time.Hour
)

// PairState is the last recorded state of an (assignment, competitor)
// pair, reconstructed from the persisted entities before classification.
type PairState struct {
	// Tracked is false for a pair with no prior successful match.
	Tracked bool

	LastScore        int
	LastDetectedName string
	LastPriceMin     int
	LastPriceMax     int
	LastScraped      time.Time
}

// Observation is the newly computed view of the same pair.
type Observation struct {
	CompetitorID   string
	CompetitorName string
	DetectedName   string
	Score          int
	PriceMin       int
	PriceMax       int
	DistanceMiles  float64
}

// Draft is an alert the classifier wants emitted. The caller assigns the
// id and date when it persists the draft.
type Draft struct {
	Type     model.AlertType
	Severity model.Severity
	Message  string
}

// Outcome bundles the drafted alerts with the assignment status the pair
// should move to.
type Outcome struct {
	Alerts []Draft
	Status model.AssignmentStatus
}

// Classifier evaluates pair transitions. Safe for concurrent use; it
// holds no mutable state.
type Classifier struct {
	scoreDelta      int
	severityFloor   int
	freshnessWindow time.Duration
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithScoreDelta sets the minimum score movement that counts as drift.
func WithScoreDelta(delta int) Option {
	return func(c *Classifier) {
		if delta > 0 {
			c.scoreDelta = delta
		}
	}
}

// WithSeverityFloor sets the score below which a drift becomes high
// severity.
func WithSeverityFloor(floor int) Option {
	return func(c *Classifier) {
		if floor > 0 {
			c.severityFloor = floor
		}
	}
}

// WithFreshnessWindow sets how long a competitor may go unobserved before
// it is considered stale.
func WithFreshnessWindow(window time.Duration) Option {
	return func(c *Classifier) {
		if window > 0 {
			c.freshnessWindow = window
		}
	}
}

// NewClassifier creates a Classifier with the default thresholds.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		scoreDelta:      defaultScoreDelta,
		severityFloor:   defaultSeverityFloor,
		freshnessWindow: defaultFreshnessWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FreshnessWindow returns the configured staleness cutoff.
func (c *Classifier) FreshnessWindow() time.Duration { return c.freshnessWindow }

// Classify compares the previous pair state with the new observation and
// returns at most one draft per alert category plus the next assignment
// status. An unchanged observation yields zero drafts.
func (c *Classifier) Classify(prev PairState, cur Observation) Outcome {
	out := Outcome{Status: model.StatusMatched}

	if !prev.Tracked {
		out.Alerts = append(out.Alerts, Draft{
			Type:     model.AlertNewEntrant,
			Severity: model.SeverityLow,
			Message: fmt.Sprintf("New competitor %q now tracked %.1f mi out (score %d)",
				cur.CompetitorName, cur.DistanceMiles, cur.Score),
		})
		return out
	}

	if d := c.priceDrift(prev, cur); d != nil {
		out.Alerts = append(out.Alerts, *d)
	}

	prevName := fingerprint.NormalizeName(prev.LastDetectedName)
	curName := fingerprint.NormalizeName(cur.DetectedName)
	if prevName != "" && curName != "" && prevName != curName {
		out.Status = model.StatusMismatched
		out.Alerts = append(out.Alerts, Draft{
			Type:     model.AlertNameChange,
			Severity: model.SeverityMedium,
			Message: fmt.Sprintf("Detected builder name changed from %q to %q",
				prev.LastDetectedName, cur.DetectedName),
		})
	}

	return out
}

// priceDrift returns a draft when the score moved past the delta
// threshold and the price band actually changed. Severity is high only
// when the score crossed below the floor on this observation.
func (c *Classifier) priceDrift(prev PairState, cur Observation) *Draft {
	delta := cur.Score - prev.LastScore
	if delta < 0 {
		delta = -delta
	}
	if delta < c.scoreDelta {
		return nil
	}

	priceChanged := cur.PriceMin != prev.LastPriceMin || cur.PriceMax != prev.LastPriceMax
	if !priceChanged {
		return nil
	}

	severity := model.SeverityMedium
	if cur.Score < c.severityFloor && prev.LastScore >= c.severityFloor {
		severity = model.SeverityHigh
	}
	return &Draft{
		Type:     model.AlertPriceDrift,
		Severity: severity,
		Message: fmt.Sprintf("Price band moved to $%d-$%d; alignment score %d -> %d",
			cur.PriceMin, cur.PriceMax, prev.LastScore, cur.Score),
	}
}

// ClassifyStale reports whether a tracked pair has gone unobserved past
// the freshness window as of asOf, and drafts the stale_data alert if so.
func (c *Classifier) ClassifyStale(prev PairState, asOf time.Time) *Outcome {
	if !prev.Tracked || prev.LastScraped.IsZero() {
		return nil
	}
	idle := asOf.Sub(prev.LastScraped)
	if idle <= c.freshnessWindow {
		return nil
	}
	return &Outcome{
		Status: model.StatusStale,
		Alerts: []Draft{{
			Type:     model.AlertStaleData,
			Severity: model.SeverityLow,
			Message: fmt.Sprintf("No fresh observation for %d days",
				int(idle.Hours()/24)),
		}},
	}
}
