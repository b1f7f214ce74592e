package embedder

import (
	"context"
	"fmt"

	"github.com/dshills/codecompanion/pkg/types"
)

// Outcome holds per-text results of EmbedTexts, aligned with the input.
// Exactly one of Embeddings[i] and Errors[i] is set.
type Outcome struct {
	Embeddings []*Embedding
	Errors     []error
}

// Failed returns the number of texts that could not be embedded
func (o *Outcome) Failed() int {
	n := 0
	for _, err := range o.Errors {
		if err != nil {
			n++
		}
	}
	return n
}

// EmbedTexts embeds texts as one batch, retrying per the policy. When the
// batch keeps failing it falls back to one call per text so a single bad
// input does not sink its neighbours. Only cancellation of ctx is returned
// as an error; everything else is reported per text.
func EmbedTexts(ctx context.Context, emb Embedder, texts []string, policy RetryConfig) (*Outcome, error) {
	out := &Outcome{
		Embeddings: make([]*Embedding, len(texts)),
		Errors:     make([]error, len(texts)),
	}
	if len(texts) == 0 {
		return out, nil
	}

	resp, err := retryWithBackoff(ctx, policy, func(ctx context.Context) (*BatchEmbeddingResponse, error) {
		resp, err := emb.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(resp.Embeddings), len(texts))
		}
		return resp, nil
	})
	if err == nil {
		copy(out.Embeddings, resp.Embeddings)
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	for i, text := range texts {
		e, err := EmbedQuery(ctx, emb, text, policy)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			out.Errors[i] = err
			continue
		}
		out.Embeddings[i] = e
	}
	return out, nil
}

// EmbedQuery embeds a single text with retry
func EmbedQuery(ctx context.Context, emb Embedder, text string, policy RetryConfig) (*Embedding, error) {
	e, err := retryWithBackoff(ctx, policy, func(ctx context.Context) (*Embedding, error) {
		return emb.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", types.ErrEmbedding, err)
	}
	return e, nil
}

// ToVector converts an embedding into an index vector for the given chunk
func ToVector(chunkID string, e *Embedding) types.Vector {
	return types.NewVector(chunkID, e.Vector, e.Provider+"/"+e.Model)
}
