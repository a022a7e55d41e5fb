// Package aggregate combines per-chunk embeddings into a single style vector.
// No normalization is applied; cosine similarity downstream is magnitude
// invariant.
package aggregate

import (
	"fmt"

	"github.com/dshills/styletwin/internal/vecmath"
)

// Mode selects how the engine maintains a profile's style vector.
type Mode string

const (
	// ModeFull recomputes the centroid from every stored embedding.
	ModeFull Mode = "full"
	// ModeIncremental folds new embeddings into a persisted running sum.
	ModeIncremental Mode = "incremental"
)

// ParseMode converts s to a Mode. The empty string selects ModeFull.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeFull:
		return ModeFull, nil
	case ModeIncremental:
		return ModeIncremental, nil
	}
	return "", fmt.Errorf("aggregate: unknown mode %q (available: full, incremental)", s)
}

// Average returns the element-wise arithmetic mean of vectors.
// An empty input yields an empty, non-nil vector, which callers treat as
// "no style vector yet". Vectors of differing length yield an error matching
// vecmath.ErrDimensionMismatch.
func Average(vectors [][]float64) ([]float64, error) {
	c, err := Fold(vectors)
	if err != nil {
		return nil, err
	}
	return c.Mean(), nil
}

// Fold adds every vector to a fresh Centroid.
func Fold(vectors [][]float64) (Centroid, error) {
	c := Centroid{}
	for i, v := range vectors {
		if err := c.Add(v); err != nil {
			return Centroid{}, fmt.Errorf("aggregate: vector %d: %w", i, err)
		}
	}
	return c, nil
}

// Centroid is a running (sum, count) pair. The zero value is empty and ready
// to use. Adding the same vectors in any order produces the same mean up to
// floating-point summation order.
type Centroid struct {
	Sum   []float64
	Count int
}

// Resume rebuilds a Centroid from a persisted sum and count.
func Resume(sum []float64, count int) Centroid {
	if count <= 0 || len(sum) == 0 {
		return Centroid{}
	}
	return Centroid{Sum: vecmath.Clone(sum), Count: count}
}

// Add folds v into the running sum.
func (c *Centroid) Add(v []float64) error {
	if c.Count == 0 {
		c.Sum = vecmath.Clone(v)
		if c.Sum == nil {
			c.Sum = []float64{}
		}
		c.Count = 1
		return nil
	}
	if err := vecmath.CheckDims(c.Sum, v); err != nil {
		return err
	}
	for i, x := range v {
		c.Sum[i] += x
	}
	c.Count++
	return nil
}

// Mean returns the current centroid, or an empty vector when nothing has
// been added.
func (c *Centroid) Mean() []float64 {
	if c.Count == 0 {
		return []float64{}
	}
	out := make([]float64, len(c.Sum))
	n := float64(c.Count)
	for i, x := range c.Sum {
		out[i] = x / n
	}
	return out
}
