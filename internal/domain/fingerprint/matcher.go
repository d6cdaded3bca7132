package fingerprint

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sandlin/cma-scout/internal/domain/model"
)

// MatchKind distinguishes the three possible matcher outcomes.
type MatchKind int

// Matcher outcomes.
const (
	NoMatch MatchKind = iota
	MatchedAssignment
	MatchedCompetitor
)

// Match is the result of resolving one raw observation.
type Match struct {
	Kind          MatchKind
	AssignmentID  string
	CompetitorID  string
	DistanceMiles float64
}

// Matcher resolves observations against the known assignment and
// competitor sets. Candidates beyond the search radius are never
// considered, preventing false positives between same-named builders
// in different markets.
type Matcher struct {
	radiusMiles float64
	suffixes    []string
}

// Option applies a configuration option to the Matcher.
type Option func(*Matcher)

// WithRadius sets the search radius in miles.
func WithRadius(miles float64) Option {
	return func(m *Matcher) {
		if miles > 0 {
			m.radiusMiles = miles
		}
	}
}

// WithSuffixes replaces the corporate suffix tokens dropped during
// normalization.
func WithSuffixes(suffixes []string) Option {
	return func(m *Matcher) {
		if len(suffixes) > 0 {
			m.suffixes = suffixes
		}
	}
}

// defaultRadiusMiles bounds candidate search when no option is given.
const defaultRadiusMiles = 25

// NewMatcher creates a Matcher with the default 25 mile radius.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		radiusMiles: defaultRadiusMiles,
		suffixes:    defaultSuffixes,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Radius returns the configured search radius in miles.
func (m *Matcher) Radius() float64 { return m.radiusMiles }

// Normalize applies the matcher's suffix configuration to a name.
func (m *Matcher) Normalize(name string) string {
	return normalizeWith(name, m.suffixes)
}

// candidate is one in-radius match under consideration.
type candidate struct {
	kind        MatchKind
	id          string
	distance    float64
	similarity  float64
	lastScraped time.Time
}

// Match resolves obs to an existing assignment or competitor, or reports
// NoMatch when nothing lies within the radius. A malformed location is
// rejected with ErrInvalidObservation so the caller can skip the one
// record and continue the pass.
func (m *Matcher) Match(
	ctx context.Context,
	obs model.RawObservation,
	assignments []model.Assignment,
	competitors []model.Competitor,
) (Match, error) {
	if err := ctx.Err(); err != nil {
		return Match{}, err
	}
	if err := validateLocation(obs.Location); err != nil {
		return Match{}, err
	}

	name := m.Normalize(obs.ObservedName)
	var cands []candidate

	for _, a := range assignments {
		d := DistanceMiles(obs.Location.Lat, obs.Location.Lon, a.Location.Lat, a.Location.Lon)
		if d > m.radiusMiles {
			continue
		}
		cands = append(cands, candidate{
			kind:       MatchedAssignment,
			id:         a.ID,
			distance:   d,
			similarity: Similarity(name, m.Normalize(a.BuilderName)),
		})
	}

	for _, c := range competitors {
		d := DistanceMiles(obs.Location.Lat, obs.Location.Lon, c.Location.Lat, c.Location.Lon)
		if d > m.radiusMiles {
			continue
		}
		cands = append(cands, candidate{
			kind:        MatchedCompetitor,
			id:          c.ID,
			distance:    d,
			similarity:  Similarity(name, m.Normalize(c.Name)),
			lastScraped: c.LastScraped,
		})
	}

	if len(cands) == 0 {
		return Match{Kind: NoMatch}, nil
	}

	// Deterministic ordering: best similarity, then smaller distance, then
	// assignments before competitors, then earlier lastScraped, then id.
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.similarity != b.similarity {
			return a.similarity > b.similarity
		}
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.kind != b.kind {
			return a.kind == MatchedAssignment
		}
		if !a.lastScraped.Equal(b.lastScraped) {
			return a.lastScraped.Before(b.lastScraped)
		}
		return a.id < b.id
	})

	best := cands[0]
	result := Match{
		Kind:          best.kind,
		DistanceMiles: best.distance,
	}
	switch best.kind {
	case MatchedAssignment:
		result.AssignmentID = best.id
	case MatchedCompetitor:
		result.CompetitorID = best.id
	}
	return result, nil
}

func validateLocation(loc model.Location) error {
	// Written as a negated range check so NaN coordinates fail too.
	ok := loc.Lat >= -90 && loc.Lat <= 90 && loc.Lon >= -180 && loc.Lon <= 180
	if !ok {
		return fmt.Errorf("%w: lat=%v lon=%v out of range", ErrInvalidObservation, loc.Lat, loc.Lon)
	}
	return nil
}
