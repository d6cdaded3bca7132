// Package fingerprint resolves raw competitor observations to known
// assignment or competitor identities using normalized name comparison
// and great-circle distance.
package fingerprint

import (
	"math"
	"strings"
)

// earthRadiusMiles is the mean Earth radius used for haversine distance.
const earthRadiusMiles = 3958.8

// defaultSuffixes are corporate suffix tokens dropped during name
// normalization so "Acme Homes LLC" and "Acme Homes" share an identity.
var defaultSuffixes = []string{
	"llc", "inc", "ltd", "lp", "llp", "co", "corp", "company", "incorporated",
}

// NormalizeName lower-cases a builder name, strips punctuation, and drops
// corporate suffix tokens. The result is the canonical identity string.
func NormalizeName(name string) string {
	return normalizeWith(name, defaultSuffixes)
}

func normalizeWith(name string, suffixes []string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	kept := tokens[:0]
	for _, t := range tokens {
		if isSuffix(t, suffixes) {
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, " ")
}

func isSuffix(token string, suffixes []string) bool {
	for _, s := range suffixes {
		if token == s {
			return true
		}
	}
	return false
}

// Similarity returns the token-set overlap of two already-normalized names
// in [0, 1]. Identical token sets score 1; disjoint sets score 0.
func Similarity(a, b string) float64 {
	at := tokenSet(a)
	bt := tokenSet(b)
	if len(at) == 0 && len(bt) == 0 {
		return 1
	}
	if len(at) == 0 || len(bt) == 0 {
		return 0
	}

	inter := 0
	for t := range at {
		if _, ok := bt[t]; ok {
			inter++
		}
	}
	union := len(at) + len(bt) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range strings.Fields(s) {
		set[t] = struct{}{}
	}
	return set
}

// DistanceMiles returns the great-circle distance in miles between two
// coordinate pairs.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*sinLon*sinLon

	return 2 * earthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(h)))
}
