// Package scoring computes the 0-100 alignment score between a matched
// assignment and a fresh competitor observation.
package scoring

import (
	"math"

	"github.com/sandlin/cma-scout/internal/domain/fingerprint"
)

// Default weights and bounds. Weights follow the name/price/distance
// split used across the CMA reports.
const (
	defaultNameWeight     = 0.4
	defaultPriceWeight    = 0.4
	defaultDistanceWeight = 0.2
	defaultRadiusMiles    = 25

	maxScore          = 100
	neutralPriceScore = 50
)

// Input carries everything the scorer needs for one observation.
// Price bands with min and max both zero are treated as unknown.
type Input struct {
	BuilderName  string
	DetectedName string

	ExpectedPriceMin int
	ExpectedPriceMax int
	ObservedPriceMin int
	ObservedPriceMax int

	DistanceMiles float64
}

// Scorer computes alignment scores. It is a pure value: identical inputs
// always yield identical scores, with no clock or randomness involved.
type Scorer struct {
	nameWeight     float64
	priceWeight    float64
	distanceWeight float64
	radiusMiles    float64
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights sets the name/price/distance weights. Non-positive totals
// are rejected and leave the defaults in place.
func WithWeights(name, price, distance float64) Option {
	return func(s *Scorer) {
		if name >= 0 && price >= 0 && distance >= 0 && name+price+distance > 0 {
			s.nameWeight = name
			s.priceWeight = price
			s.distanceWeight = distance
		}
	}
}

// WithRadius sets the radius at which the distance sub-score reaches zero.
func WithRadius(miles float64) Option {
	return func(s *Scorer) {
		if miles > 0 {
			s.radiusMiles = miles
		}
	}
}

// NewScorer creates a Scorer with the default weight split.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		nameWeight:     defaultNameWeight,
		priceWeight:    defaultPriceWeight,
		distanceWeight: defaultDistanceWeight,
		radiusMiles:    defaultRadiusMiles,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns the weighted alignment score in [0, 100], rounded to the
// nearest integer.
func (s *Scorer) Score(in Input) int {
	total := s.nameWeight + s.priceWeight + s.distanceWeight
	weighted := s.nameWeight*nameScore(in.BuilderName, in.DetectedName) +
		s.priceWeight*priceScore(in) +
		s.distanceWeight*s.distanceScore(in.DistanceMiles)

	score := int(math.Round(weighted / total))
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// nameScore is 100 on normalized equality, otherwise token overlap scaled
// to [0, 100].
func nameScore(builderName, detectedName string) float64 {
	a := fingerprint.NormalizeName(builderName)
	b := fingerprint.NormalizeName(detectedName)
	if a == b {
		return maxScore
	}
	return fingerprint.Similarity(a, b) * maxScore
}

// priceScore is 100 when the observed band sits fully inside the expected
// band, degrading linearly with the contained fraction; 50 when either
// band is unknown.
func priceScore(in Input) float64 {
	if !validBand(in.ExpectedPriceMin, in.ExpectedPriceMax) ||
		!validBand(in.ObservedPriceMin, in.ObservedPriceMax) {
		return neutralPriceScore
	}

	lo := math.Max(float64(in.ExpectedPriceMin), float64(in.ObservedPriceMin))
	hi := math.Min(float64(in.ExpectedPriceMax), float64(in.ObservedPriceMax))
	overlap := hi - lo
	if overlap < 0 {
		return 0
	}

	span := float64(in.ObservedPriceMax - in.ObservedPriceMin)
	if span == 0 {
		// Point band: either inside the expected band or not.
		if overlap >= 0 {
			return maxScore
		}
		return 0
	}
	return overlap / span * maxScore
}

func validBand(min, max int) bool {
	return max > 0 && max >= min
}

// distanceScore is 100 at distance zero, falling linearly to 0 at the
// configured radius and clamped beyond it.
func (s *Scorer) distanceScore(miles float64) float64 {
	if miles <= 0 {
		return maxScore
	}
	if miles >= s.radiusMiles {
		return 0
	}
	return (1 - miles/s.radiusMiles) * maxScore
}
