// Package drift scores candidate embeddings against a stored style vector
// and classifies the result into a drift tier. No provider calls are made here.
package drift

import (
	"fmt"
	"math"

	"github.com/dshills/styletwin/internal/schema"
	"github.com/dshills/styletwin/internal/vecmath"
)

// Tier thresholds are inclusive lower bounds on the similarity score.
const (
	LowDriftThreshold    = 0.85
	MediumDriftThreshold = 0.75
)

// Score returns the cosine similarity of candidate and reference, in [-1, 1].
// A length mismatch is a data error and returns an error matching
// vecmath.ErrDimensionMismatch. A zero-magnitude vector scores 0, as does
// any vector holding a non-finite component.
func Score(candidate, reference []float64) (float64, error) {
	if err := vecmath.CheckDims(candidate, reference); err != nil {
		return 0, fmt.Errorf("drift: score: %w", err)
	}
	a, okA := normalized(candidate)
	b, okB := normalized(reference)
	if !okA || !okB {
		return 0, nil
	}
	magA := vecmath.Magnitude(a)
	magB := vecmath.Magnitude(b)
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	score := vecmath.Dot(a, b) / (magA * magB)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, nil
	}
	return vecmath.Clamp(score, -1, 1), nil
}

// normalized divides v by its largest absolute component so the dot products
// neither overflow nor underflow. It reports false for a zero vector or one
// with a NaN or infinite component.
func normalized(v []float64) ([]float64, bool) {
	var peak float64
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, false
		}
		peak = math.Max(peak, math.Abs(x))
	}
	if peak == 0 {
		return nil, false
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / peak
	}
	return out, true
}

// Classify maps a similarity score to a drift tier.
//
//	score >= 0.85        → low (good match)
//	0.75 <= score < 0.85 → medium
//	score < 0.75         → high
func Classify(score float64) schema.DriftTier {
	switch {
	case score >= LowDriftThreshold:
		return schema.DriftLow
	case score >= MediumDriftThreshold:
		return schema.DriftMedium
	default:
		return schema.DriftHigh
	}
}

// DisplayPercentage converts a score to a whole percentage clamped to
// [0, 100]. The clamp is for display only; classification uses the raw score.
func DisplayPercentage(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	return int(vecmath.Clamp(math.Round(score*100), 0, 100))
}

// Detect scores candidate against reference and returns the full result.
func Detect(candidate, reference []float64) (schema.DriftResult, error) {
	score, err := Score(candidate, reference)
	if err != nil {
		return schema.DriftResult{}, err
	}
	return schema.DriftResult{
		Score:      score,
		Tier:       Classify(score),
		Percentage: DisplayPercentage(score),
	}, nil
}

// TierOrdinal orders tiers by severity: low=0, medium=1, high=2.
// Unknown tiers return -1.
func TierOrdinal(t schema.DriftTier) int {
	switch t {
	case schema.DriftLow:
		return 0
	case schema.DriftMedium:
		return 1
	case schema.DriftHigh:
		return 2
	default:
		return -1
	}
}

// ParseTier converts s to a DriftTier constant.
func ParseTier(s string) (schema.DriftTier, error) {
	switch schema.DriftTier(s) {
	case schema.DriftLow, schema.DriftMedium, schema.DriftHigh:
		return schema.DriftTier(s), nil
	}
	return "", fmt.Errorf("drift: unknown tier %q", s)
}
