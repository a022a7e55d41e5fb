// Package vecmath holds the small set of float64 vector helpers shared by the
// aggregation and drift packages.
package vecmath

import (
	"errors"
	"fmt"
	"math"

	"github.com/dshills/styletwin/internal/schema"
)

// ErrDimensionMismatch is matched (via errors.Is) by every error returned when
// two vectors that must share a length do not.
var ErrDimensionMismatch = errors.New("vecmath: dimension mismatch")

// DimensionMismatchError carries the two offending lengths.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vecmath: dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// Is makes errors.Is(err, ErrDimensionMismatch) succeed.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// As lets callers treat a mismatch as a *schema.ValidationError.
func (e *DimensionMismatchError) As(target any) bool {
	ve, ok := target.(**schema.ValidationError)
	if !ok {
		return false
	}
	*ve = &schema.ValidationError{
		Field:   "vector",
		Message: fmt.Sprintf("dimension mismatch: want %d, got %d", e.Want, e.Got),
	}
	return true
}

// CheckDims returns a *DimensionMismatchError when a and b differ in length.
func CheckDims(a, b []float64) error {
	if len(a) != len(b) {
		return &DimensionMismatchError{Want: len(a), Got: len(b)}
	}
	return nil
}

// Dot returns the dot product of a and b. Callers must check lengths first.
func Dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Magnitude returns the Euclidean norm of v.
func Magnitude(v []float64) float64 {
	return math.Sqrt(Dot(v, v))
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Clone returns a copy of v; nil stays nil.
func Clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
