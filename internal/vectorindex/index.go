package vectorindex

import (
	"sync/atomic"
	"time"

	"github.com/dshills/codecompanion/pkg/types"
)

// Stats describes the published snapshot
type Stats struct {
	Ready      bool
	Generation string
	BuiltAt    time.Time
	Size       int
	Dim        int
	Model      string
	Metric     Metric
}

// Index holds the current snapshot for a session. Publishing swaps a pointer,
// so queries in flight keep the snapshot they started with.
type Index struct {
	metric  Metric
	current atomic.Pointer[Snapshot]
}

// New creates an empty index that builds snapshots with metric
func New(metric Metric) *Index {
	if metric == "" {
		metric = DefaultMetric
	}
	return &Index{metric: metric}
}

// Metric returns the metric used for new builds
func (ix *Index) Metric() Metric {
	return ix.metric
}

// Build constructs a snapshot and publishes it. On error the current snapshot is untouched.
func (ix *Index) Build(chunks []types.Chunk, vectors []types.Vector) (*Snapshot, error) {
	snap, err := Build(chunks, vectors, ix.metric)
	if err != nil {
		return nil, err
	}
	ix.Publish(snap)
	return snap, nil
}

// Publish makes snap the current snapshot. A nil snap resets the index.
func (ix *Index) Publish(snap *Snapshot) {
	ix.current.Store(snap)
}

// Reset drops the current snapshot, returning the index to empty
func (ix *Index) Reset() {
	ix.current.Store(nil)
}

// Current returns the published snapshot, or nil when empty
func (ix *Index) Current() *Snapshot {
	return ix.current.Load()
}

// Ready reports whether a snapshot is published
func (ix *Index) Ready() bool {
	return ix.current.Load() != nil
}

// Query searches the current snapshot. An empty index yields an empty result.
func (ix *Index) Query(vector []float32, k int) ([]types.SearchResult, error) {
	return ix.current.Load().Query(vector, k)
}

// Stats describes the current snapshot
func (ix *Index) Stats() Stats {
	snap := ix.current.Load()
	if snap == nil {
		return Stats{Metric: ix.metric}
	}
	return Stats{
		Ready:      true,
		Generation: snap.generation,
		BuiltAt:    snap.builtAt,
		Size:       len(snap.entries),
		Dim:        snap.dim,
		Model:      snap.model,
		Metric:     snap.metric,
	}
}
