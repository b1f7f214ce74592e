package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorKernels(t *testing.T) {
	const eps = 1e-5

	assert.InDelta(t, 5, magnitude([]float32{3, 4}), eps)
	assert.InDelta(t, 0, magnitude([]float32{0, 0, 0}), eps)

	a := []float32{1, 2, 3}
	assert.InDelta(t, 0, cosineDistance(a, a, magnitude(a), magnitude(a)), eps)

	x := []float32{1, 0}
	y := []float32{0, 1}
	assert.InDelta(t, 1, cosineDistance(x, y, 1, 1), eps)
	assert.InDelta(t, 2, cosineDistance(x, []float32{-1, 0}, 1, 1), eps)

	assert.InDelta(t, 5, euclideanDistance([]float32{0, 0}, []float32{3, 4}), eps)
	assert.InDelta(t, 0, euclideanDistance(a, a), eps)
}
