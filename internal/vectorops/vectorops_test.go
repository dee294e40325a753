package vectorops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-6

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
	}{
		{name: "unit axis", in: []float32{1, 0, 0}},
		{name: "arbitrary", in: []float32{3, 4}},
		{name: "negative components", in: []float32{-1, 2, -3, 4}},
		{name: "tiny values", in: []float32{1e-5, 2e-5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize(tt.in, false)
			assert.InDelta(t, 1.0, float64(Magnitude(out)), epsilon)
		})
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	zero := []float32{0, 0, 0}
	out := Normalize(zero, false)
	assert.Equal(t, []float32{0, 0, 0}, out)
}

func TestNormalizeInPlace(t *testing.T) {
	v := []float32{3, 4}
	out := Normalize(v, true)

	// Same backing buffer, mutated.
	assert.Equal(t, &v[0], &out[0])
	assert.InDelta(t, 0.6, float64(v[0]), epsilon)
	assert.InDelta(t, 0.8, float64(v[1]), epsilon)
}

func TestNormalizeCopyLeavesInputUntouched(t *testing.T) {
	v := []float32{3, 4}
	out := Normalize(v, false)

	assert.Equal(t, []float32{3, 4}, v)
	assert.NotEqual(t, &v[0], &out[0])
}

func TestSimilaritySelfIsOne(t *testing.T) {
	v := Normalize([]float32{0.2, -1.5, 3.7, 0.01}, false)
	got, err := Similarity(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, float64(got), epsilon)
}

func TestSimilaritySymmetric(t *testing.T) {
	a := Normalize([]float32{1, 2, 3}, false)
	b := Normalize([]float32{-2, 0.5, 1}, false)

	ab, err := Similarity(a, b)
	require.NoError(t, err)
	ba, err := Similarity(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestSimilarityOrthogonal(t *testing.T) {
	got, err := Similarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, float64(got), epsilon)
}

func TestSimilarityDimensionMismatch(t *testing.T) {
	_, err := Similarity([]float32{1, 0}, []float32{1, 0, 0})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMagnitude(t *testing.T) {
	assert.InDelta(t, 5.0, float64(Magnitude([]float32{3, 4})), epsilon)
	assert.Equal(t, float32(0), Magnitude(nil))
	assert.InDelta(t, math.Sqrt(3), float64(Magnitude([]float32{1, 1, 1})), epsilon)
}
