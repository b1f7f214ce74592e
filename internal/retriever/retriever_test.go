package retriever

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codecompanion/internal/embedder"
	"github.com/dshills/codecompanion/internal/vectorindex"
	"github.com/dshills/codecompanion/pkg/types"
)

var corpus = []string{
	"func OpenDatabase(dsn string) (*sql.DB, error) opens the database connection pool",
	"the HTTP router registers handlers for each endpoint",
	"render sprite animation frames on the canvas",
	"database migrations create tables and indexes",
	"logging configuration for structured JSON output",
}

func buildIndex(t *testing.T, emb embedder.Embedder) *vectorindex.Index {
	t.Helper()
	ctx := context.Background()

	chunks := make([]types.Chunk, len(corpus))
	texts := make([]string, len(corpus))
	for i, text := range corpus {
		path := "doc.txt"
		chunks[i] = types.Chunk{ID: types.NewChunkID(path, i*100), DocumentPath: path, StartOffset: i * 100, Text: text}
		texts[i] = text
	}

	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
	require.NoError(t, err)

	vectors := make([]types.Vector, len(chunks))
	for i, e := range resp.Embeddings {
		vectors[i] = embedder.ToVector(chunks[i].ID, e)
	}

	ix := vectorindex.New(vectorindex.MetricCosine)
	_, err = ix.Build(chunks, vectors)
	require.NoError(t, err)
	return ix
}

func newLocal(t *testing.T, dim int) embedder.Embedder {
	t.Helper()
	p, err := embedder.NewLocalProvider(dim, nil)
	require.NoError(t, err)
	return p
}

func TestSimilaritySearch(t *testing.T) {
	emb := newLocal(t, 0)
	ix := buildIndex(t, emb)
	r := New(embedder.HandleFor(emb), ix, Config{})

	results, err := r.SimilaritySearch(context.Background(), "how is the database connection opened?", 0)
	require.NoError(t, err)
	require.Len(t, results, DefaultTopK)
	assert.Equal(t, corpus[0], results[0].Chunk.Text)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}

	all, err := r.SimilaritySearch(context.Background(), "database", 10)
	require.NoError(t, err)
	assert.Len(t, all, len(corpus))
}

func TestSearch_Metadata(t *testing.T) {
	emb := newLocal(t, 0)
	ix := buildIndex(t, emb)
	r := New(embedder.HandleFor(emb), ix, Config{TopK: 2})

	resp, err := r.Search(context.Background(), SearchRequest{Query: "router endpoint"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalResults)
	assert.Equal(t, ix.Stats().Generation, resp.Generation)
	assert.Equal(t, corpus[1], resp.Results[0].Chunk.Text)
}

func TestSearch_NotReady(t *testing.T) {
	emb := newLocal(t, 0)
	r := New(embedder.HandleFor(emb), vectorindex.New(""), Config{})

	_, err := r.SimilaritySearch(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, types.ErrNotReady)
}

func TestSearch_EmptyQuery(t *testing.T) {
	emb := newLocal(t, 0)
	r := New(embedder.HandleFor(emb), buildIndex(t, emb), Config{})

	_, err := r.SimilaritySearch(context.Background(), "   ", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearch_ModelMismatch(t *testing.T) {
	ix := buildIndex(t, newLocal(t, 0))

	other, err := embedder.NewJinaProvider("key", "", "http://127.0.0.1:0", nil)
	require.NoError(t, err)
	r := New(embedder.HandleFor(other), ix, Config{})

	_, err = r.SimilaritySearch(context.Background(), "database", 3)
	assert.ErrorIs(t, err, types.ErrModelMismatch)
}

func TestSearch_DimensionMismatchIsModelMismatch(t *testing.T) {
	// Same identity, different dimension
	ix := buildIndex(t, newLocal(t, 0))
	r := New(embedder.HandleFor(newLocal(t, 64)), ix, Config{})

	_, err := r.SimilaritySearch(context.Background(), "database", 3)
	assert.ErrorIs(t, err, types.ErrModelMismatch)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestSearch_ReleasedHandle(t *testing.T) {
	emb := newLocal(t, 0)
	h := embedder.HandleFor(emb)
	r := New(h, buildIndex(t, emb), Config{})
	require.NoError(t, h.Release())

	_, err := r.SimilaritySearch(context.Background(), "database", 3)
	assert.ErrorIs(t, err, embedder.ErrReleased)
}

func TestSimilaritySearch_ReturnsAllWhenKExceedsHundred(t *testing.T) {
	ctx := context.Background()
	emb := newLocal(t, 64)

	const n = 150
	chunks := make([]types.Chunk, n)
	vectors := make([]types.Vector, n)
	for i := 0; i < n; i++ {
		path := fmt.Sprintf("pkg/file%03d.go", i)
		text := fmt.Sprintf("database helper number %d opens connection %d", i, i*7)
		chunks[i] = types.Chunk{ID: types.NewChunkID(path, 0), DocumentPath: path, Text: text}

		e, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
		require.NoError(t, err)
		vectors[i] = embedder.ToVector(chunks[i].ID, e)
	}

	ix := vectorindex.New(vectorindex.MetricCosine)
	_, err := ix.Build(chunks, vectors)
	require.NoError(t, err)

	r := New(embedder.HandleFor(emb), ix, Config{TopK: DefaultTopK, Retry: embedder.DefaultRetryConfig()})

	results, err := r.SimilaritySearch(ctx, "databases", n)
	require.NoError(t, err)
	assert.Len(t, results, n)
	assert.Equal(t, n, results[n-1].Rank)

	results, err = r.SimilaritySearch(ctx, "databases", n+50)
	require.NoError(t, err)
	assert.Len(t, results, n)
}
