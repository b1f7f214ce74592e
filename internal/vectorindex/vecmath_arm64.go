//go:build arm64

package vectorindex

import "github.com/viant/vec/search"

// viant/vec ships its SIMD kernels for arm64 only

func magnitude(v []float32) float32 {
	return search.Float32s(v).Magnitude()
}

func cosineDistance(a, b []float32, am, bm float32) float32 {
	return search.Float32s(a).CosineDistanceWithMagnitude(b, am, bm)
}

func euclideanDistance(a, b []float32) float32 {
	return search.Float32s(a).EuclideanDistance(b)
}
