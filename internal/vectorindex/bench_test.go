package vectorindex

import (
	"math/rand"
	"testing"

	"github.com/dshills/codecompanion/pkg/types"
)

func BenchmarkQuery(b *testing.B) {
	const dim = 384
	rng := rand.New(rand.NewSource(1))
	chunks := makeChunks(5000)
	vectors := make([]types.Vector, len(chunks))
	for i, c := range chunks {
		values := make([]float32, dim)
		for j := range values {
			values[j] = rng.Float32()*2 - 1
		}
		vectors[i] = types.NewVector(c.ID, values, testModel)
	}
	snap, err := Build(chunks, vectors, MetricCosine)
	if err != nil {
		b.Fatal(err)
	}
	q := vectors[0].Values

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := snap.Query(q, 4); err != nil {
			b.Fatal(err)
		}
	}
}
