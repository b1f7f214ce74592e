package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/codecompanion/internal/embedder"
	"github.com/dshills/codecompanion/internal/vectorindex"
	"github.com/dshills/codecompanion/pkg/types"
)

// DefaultTopK matches the number of chunks handed to the answer step
const DefaultTopK = 4

// ErrEmptyQuery is returned for a blank question
var ErrEmptyQuery = errors.New("query cannot be empty")

// Config controls query-time behavior
type Config struct {
	TopK  int
	Retry embedder.RetryConfig
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query string
	Limit int // <= 0 selects Config.TopK
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results      []types.SearchResult
	TotalResults int
	Generation   string // Snapshot the results came from
	Duration     time.Duration
}

// Retriever turns a question into ranked chunks using the same embedder
// handle the index was built with
type Retriever struct {
	handle *embedder.Handle
	index  *vectorindex.Index
	cfg    Config
}

// New creates a Retriever
func New(handle *embedder.Handle, index *vectorindex.Index, cfg Config) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Retriever{handle: handle, index: index, cfg: cfg}
}

// SimilaritySearch returns up to k chunks most similar to question, best first.
// It fails with types.ErrNotReady when nothing has been ingested.
func (r *Retriever) SimilaritySearch(ctx context.Context, question string, k int) ([]types.SearchResult, error) {
	resp, err := r.Search(ctx, SearchRequest{Query: question, Limit: k})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Search performs a similarity search against the current snapshot
func (r *Retriever) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	limit := req.Limit
	if limit <= 0 {
		limit = r.cfg.TopK
	}

	// Pin one snapshot for the whole request
	snap := r.index.Current()
	if snap == nil {
		return nil, types.ErrNotReady
	}

	emb, err := r.handle.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load embedder: %w", err)
	}
	if identity := embedder.Identity(emb); identity != snap.Model() {
		return nil, fmt.Errorf("%w: index built with %q, query embedder is %q",
			types.ErrModelMismatch, snap.Model(), identity)
	}

	qv, err := embedder.EmbedQuery(ctx, emb, req.Query, r.cfg.Retry)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := snap.Query(qv.Vector, limit)
	if err != nil {
		if errors.Is(err, types.ErrDimensionMismatch) {
			return nil, fmt.Errorf("%w: %w", types.ErrModelMismatch, err)
		}
		return nil, err
	}

	return &SearchResponse{
		Results:      results,
		TotalResults: len(results),
		Generation:   snap.Generation(),
		Duration:     time.Since(startTime),
	}, nil
}
