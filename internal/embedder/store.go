package embedder

import (
	"context"
	"fmt"
	"log/slog"
)

// Store persists embeddings keyed by embedder identity and content hash
type Store interface {
	GetEmbeddings(ctx context.Context, identity string, hashes []string) (map[string][]float32, error)
	PutEmbeddings(ctx context.Context, identity string, entries map[string][]float32) error
}

// StoreBacked consults a Store before calling the wrapped embedder and
// writes fresh results back. Store failures are logged and never fail a call.
type StoreBacked struct {
	inner  Embedder
	store  Store
	logger *slog.Logger
}

// NewStoreBacked wraps inner with a second-level store
func NewStoreBacked(inner Embedder, store Store, logger *slog.Logger) *StoreBacked {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreBacked{inner: inner, store: store, logger: logger}
}

func (s *StoreBacked) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	resp, err := s.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{req.Text}})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (s *StoreBacked) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	identity := Identity(s.inner)
	hashes := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		hashes[i] = ComputeHash(text)
	}

	stored, err := s.store.GetEmbeddings(ctx, identity, hashes)
	if err != nil {
		s.logger.Warn("embedding store lookup failed", slog.String("identity", identity), slog.Any("error", err))
		stored = nil
	}

	embeddings := make([]*Embedding, len(req.Texts))
	var missing []string
	var missingIdx []int
	for i, hash := range hashes {
		if vec, ok := stored[hash]; ok && len(vec) > 0 {
			embeddings[i] = &Embedding{
				Vector:    vec,
				Dimension: len(vec),
				Provider:  s.inner.Provider(),
				Model:     s.inner.Model(),
				Hash:      hash,
			}
			continue
		}
		missing = append(missing, req.Texts[i])
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		resp, err := s.inner.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: missing})
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(missing) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(resp.Embeddings), len(missing))
		}

		fresh := make(map[string][]float32, len(missing))
		for j, emb := range resp.Embeddings {
			i := missingIdx[j]
			emb.Hash = hashes[i]
			embeddings[i] = emb
			fresh[hashes[i]] = emb.Vector
		}
		if err := s.store.PutEmbeddings(ctx, identity, fresh); err != nil {
			s.logger.Warn("embedding store write failed", slog.String("identity", identity), slog.Any("error", err))
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   s.inner.Provider(),
		Model:      s.inner.Model(),
	}, nil
}

func (s *StoreBacked) Dimension() int  { return s.inner.Dimension() }
func (s *StoreBacked) Provider() string { return s.inner.Provider() }
func (s *StoreBacked) Model() string    { return s.inner.Model() }

// Close closes the wrapped embedder. The store is owned by the caller.
func (s *StoreBacked) Close() error {
	return s.inner.Close()
}
