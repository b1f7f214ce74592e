package vectorindex

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/codecompanion/pkg/types"
)

type entry struct {
	chunk     types.Chunk
	values    []float32
	magnitude float32
}

// Snapshot is one immutable generation of the index. It is never modified
// after Build returns, so any number of goroutines may query it.
type Snapshot struct {
	generation string
	builtAt    time.Time
	dim        int
	model      string
	metric     Metric
	entries    []entry
}

// Build validates chunks and their vectors and constructs a snapshot.
// vectors[i] must belong to chunks[i]; all vectors must share one dimension and model.
func Build(chunks []types.Chunk, vectors []types.Vector, metric Metric) (*Snapshot, error) {
	if len(vectors) == 0 {
		return nil, types.ErrEmptyIndex
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks but %d vectors", types.ErrIndexBuild, len(chunks), len(vectors))
	}
	if metric == "" {
		metric = DefaultMetric
	}

	dim := vectors[0].Dim
	model := vectors[0].Model
	seen := make(map[string]struct{}, len(chunks))
	entries := make([]entry, len(vectors))

	for i := range vectors {
		v := &vectors[i]
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrIndexBuild, err)
		}
		if v.Dim != dim {
			return nil, fmt.Errorf("%w: %w: chunk %s has %d dims, expected %d",
				types.ErrIndexBuild, types.ErrDimensionMismatch, v.ChunkID, v.Dim, dim)
		}
		if v.Model != model {
			return nil, fmt.Errorf("%w: %w: chunk %s embedded with %q, expected %q",
				types.ErrIndexBuild, types.ErrModelMismatch, v.ChunkID, v.Model, model)
		}
		if v.ChunkID != chunks[i].ID {
			return nil, fmt.Errorf("%w: vector %d is for chunk %s, not %s",
				types.ErrIndexBuild, i, v.ChunkID, chunks[i].ID)
		}
		if _, dup := seen[v.ChunkID]; dup {
			return nil, fmt.Errorf("%w: duplicate chunk %s", types.ErrIndexBuild, v.ChunkID)
		}
		seen[v.ChunkID] = struct{}{}

		values := make([]float32, dim)
		copy(values, v.Values)
		entries[i] = entry{
			chunk:     chunks[i],
			values:    values,
			magnitude: magnitude(values),
		}
	}

	return &Snapshot{
		generation: uuid.NewString(),
		builtAt:    time.Now(),
		dim:        dim,
		model:      model,
		metric:     metric,
		entries:    entries,
	}, nil
}

// Generation identifies this build
func (s *Snapshot) Generation() string { return s.generation }

// BuiltAt reports when the snapshot was built
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Dim is the shared vector dimension
func (s *Snapshot) Dim() int { return s.dim }

// Model is the embedder identity every vector was produced with
func (s *Snapshot) Model() string { return s.model }

// Metric is the similarity metric used by Query
func (s *Snapshot) Metric() Metric { return s.metric }

// Len is the number of stored vectors
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Query returns up to k chunks nearest to vector, best first. Equal scores
// are ordered by ascending chunk ID. A nil snapshot or k <= 0 yields no results.
func (s *Snapshot) Query(vector []float32, k int) ([]types.SearchResult, error) {
	if s == nil || len(s.entries) == 0 || k <= 0 {
		return []types.SearchResult{}, nil
	}
	if len(vector) != s.dim {
		return nil, fmt.Errorf("%w: query has %d dims, index has %d", types.ErrDimensionMismatch, len(vector), s.dim)
	}
	if k > len(s.entries) {
		k = len(s.entries)
	}

	q := vector
	qm := magnitude(q)

	// Min-heap of the best k seen so far; the root is the weakest.
	h := make(candidateHeap, 0, k)
	for i := range s.entries {
		c := candidate{idx: i, id: s.entries[i].chunk.ID, score: s.metric.score(q, qm, &s.entries[i])}
		if len(h) < k {
			heap.Push(&h, c)
			continue
		}
		if better(c, h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}

	results := make([]types.SearchResult, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		c := heap.Pop(&h).(candidate)
		results[i] = types.SearchResult{
			Chunk: s.entries[c.idx].chunk,
			Score: c.score,
			Rank:  i + 1,
		}
	}
	return results, nil
}

type candidate struct {
	idx   int
	id    string
	score float64
}

// better orders by score descending, then chunk ID ascending
func better(a, b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.id < b.id
}

type candidateHeap []candidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return better(h[j], h[i]) }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
