// Package model contains domain models passed between layers.
package model

import "time"

// AssignmentStatus tracks where an assignment sits in its review lifecycle.
type AssignmentStatus string

// Assignment statuses.
const (
	StatusPending    AssignmentStatus = "pending"
	StatusMatched    AssignmentStatus = "matched"
	StatusMismatched AssignmentStatus = "mismatched"
	StatusStale      AssignmentStatus = "stale"
)

// AlertType identifies what kind of change an alert reports.
type AlertType string

// Alert types.
const (
	AlertPriceDrift AlertType = "price_drift"
	AlertNameChange AlertType = "name_change"
	AlertNewEntrant AlertType = "new_entrant"
	AlertStaleData  AlertType = "stale_data"
)

// Severity ranks how urgently an alert should be reviewed.
type Severity string

// Alert severities.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Phase is the published stage of a scouting pass.
type Phase string

// Pass phases. Idle is both the initial state and the resting state
// between runs; Done and Error are terminal for a single run.
const (
	PhaseIdle     Phase = "idle"
	PhaseScouting Phase = "scouting"
	PhaseScoring  Phase = "scoring"
	PhaseDone     Phase = "done"
	PhaseError    Phase = "error"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Assignment is a Sandlin-managed community monitored against external
// competition. Created by provisioning; mutated only by the run
// coordinator after each pass; never deleted by the engine.
type Assignment struct {
	ID           string   `json:"id"`
	Community    string   `json:"community"`
	BuilderName  string   `json:"builderName"`
	DetectedName string   `json:"detectedName"`
	URL          string   `json:"url,omitempty"`
	Location     Location `json:"location"`

	// Expected price band for competing product near this community.
	// Zero values mean the band is unknown and price scoring stays neutral.
	PriceMin int `json:"priceMin"`
	PriceMax int `json:"priceMax"`

	// CompetitorID links the assignment to the competitor it last matched.
	// Empty until the first successful match.
	CompetitorID string `json:"competitorId,omitempty"`

	// AlignmentScore is nil until at least one successful match.
	AlignmentScore *int             `json:"alignmentScore"`
	DistanceMiles  float64          `json:"distanceMiles"`
	Status         AssignmentStatus `json:"status"`
}

// Tracked reports whether the assignment has ever matched a competitor.
func (a Assignment) Tracked() bool {
	return a.CompetitorID != "" && a.AlignmentScore != nil
}

// Competitor is an observed builder entity outside the Sandlin portfolio.
// Identified by normalized (name, approximate location); created on first
// observation, updated in place afterwards, never deleted.
type Competitor struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Builder        string    `json:"builder,omitempty"`
	Location       Location  `json:"location"`
	LastScraped    time.Time `json:"lastScraped"`
	PriceMin       int       `json:"priceMin"`
	PriceMax       int       `json:"priceMax"`
	AlignmentScore *int      `json:"alignmentScore"`
}

// Alert is an immutable fact recorded when an observation materially
// changes the relationship between an assignment and a competitor.
type Alert struct {
	ID             string    `json:"id"`
	CompetitorID   string    `json:"competitorId"`
	CompetitorName string    `json:"competitorName"`
	Type           AlertType `json:"type"`
	Severity       Severity  `json:"severity"`
	Message        string    `json:"message"`
	Date           time.Time `json:"date"`
}

// RawObservation is one freshly scraped competitor record, as produced by
// the external ingestion collaborator before any matching has happened.
type RawObservation struct {
	ObservedName string   `json:"observedName"`
	Builder      string   `json:"builder,omitempty"`
	URL          string   `json:"url,omitempty"`
	Location     Location `json:"location"`
	PriceMin     int      `json:"priceMin"`
	PriceMax     int      `json:"priceMax"`
}

// AgentStatus is the process-wide snapshot of the current (or last) pass.
type AgentStatus struct {
	Phase          Phase      `json:"phase"`
	Progress       int        `json:"progress"`
	Message        string     `json:"message"`
	ItemsProcessed int        `json:"itemsProcessed"`
	TotalItems     int        `json:"totalItems"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
}

// RunSummary reports the outcome of one completed scouting pass.
type RunSummary struct {
	ItemsProcessed int `json:"itemsProcessed"`
	TotalItems     int `json:"totalItems"`
	Errors         int `json:"errors"`
}
