package indexer

import "sync/atomic"

// IndexLock is a non-blocking single-writer guard for ingestion.
// A second ingest fails fast instead of queueing behind the first.
type IndexLock struct {
	state atomic.Int32 // 0 = idle, 1 = ingest running
}

// TryAcquire takes the lock if no ingest is running
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release must only be called by the holder
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// Held reports whether an ingest is running
func (l *IndexLock) Held() bool {
	return l.state.Load() == 1
}
