package embedder

import (
	"context"
	"sync"
)

// Loader constructs an embedder. It runs at most once per successful load.
type Loader func(ctx context.Context) (Embedder, error)

// Handle owns an embedder that is loaded lazily and shared between
// ingestion and retrieval. A failed load is not remembered, so the next
// Get tries again.
type Handle struct {
	load     Loader
	mu       sync.Mutex
	emb      Embedder
	released bool
}

// NewHandle creates a handle that loads its embedder on first Get
func NewHandle(load Loader) *Handle {
	return &Handle{load: load}
}

// HandleFor wraps an already constructed embedder
func HandleFor(emb Embedder) *Handle {
	return &Handle{emb: emb}
}

// Get returns the embedder, loading it if needed
func (h *Handle) Get(ctx context.Context) (Embedder, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil, ErrReleased
	}
	if h.emb != nil {
		return h.emb, nil
	}
	if h.load == nil {
		return nil, ErrNoProviderEnabled
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	emb, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	h.emb = emb
	return emb, nil
}

// Loaded reports whether the embedder has been constructed
func (h *Handle) Loaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.emb != nil
}

// Release closes the embedder. Later calls to Get fail with ErrReleased.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil
	}
	h.released = true
	if h.emb == nil {
		return nil
	}
	err := h.emb.Close()
	h.emb = nil
	return err
}
