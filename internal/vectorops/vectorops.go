// Package vectorops provides normalization and similarity primitives over
// fixed-length float32 vectors.
//
// All stored and query embeddings in toolscope are unit-length, so cosine
// similarity reduces to a plain dot product.
package vectorops

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch indicates two vectors of differing length were compared.
// This is a configuration error (e.g. registry built with one embedding model,
// query embedded with another) and is never retried.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Magnitude returns the Euclidean magnitude of v.
func Magnitude(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

// Normalize scales v to unit length.
//
// A zero vector is returned unchanged; there is no meaningful direction to
// preserve and dividing by zero magnitude would poison every later score.
//
// With inPlace=true the input buffer is mutated and returned. The caller must
// not hold other references expecting the original values. With inPlace=false
// a new buffer is returned and the input is left untouched.
func Normalize(v []float32, inPlace bool) []float32 {
	mag := Magnitude(v)

	out := v
	if !inPlace {
		out = make([]float32, len(v))
		copy(out, v)
	}
	if mag == 0 {
		return out
	}
	for i := range out {
		out[i] /= mag
	}
	return out
}

// Similarity returns the dot product of a and b.
//
// Both inputs are assumed to already be unit-normalized; the function does not
// re-normalize. Returns ErrDimensionMismatch when the lengths differ.
func Similarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum, nil
}
