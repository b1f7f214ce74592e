package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codecompanion/internal/chunker"
	"github.com/dshills/codecompanion/internal/embedder"
	"github.com/dshills/codecompanion/internal/vectorindex"
	"github.com/dshills/codecompanion/pkg/types"
)

// mockEmbedder implements embedder.Embedder for testing
type mockEmbedder struct {
	mu        sync.Mutex
	dimension int
	failWhen  func(text string) bool
	block     chan struct{}
	started   chan struct{}
	calls     int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dimension: 8}
}

func (m *mockEmbedder) vector(text string) []float32 {
	v := make([]float32, m.dimension)
	for i, r := range text {
		v[i%m.dimension] += float32(r % 17)
	}
	return v
}

func (m *mockEmbedder) wait(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	block, started := m.block, m.started
	m.mu.Unlock()
	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.failWhen != nil && m.failWhen(req.Text) {
		return nil, errors.New("service unavailable")
	}
	v := m.vector(req.Text)
	return &embedder.Embedding{Vector: v, Dimension: len(v), Provider: "mock", Model: "test-v1"}, nil
}

func (m *mockEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	out := make([]*embedder.Embedding, len(req.Texts))
	for i, text := range req.Texts {
		if m.failWhen != nil && m.failWhen(text) {
			return nil, errors.New("batch contains bad input")
		}
		v := m.vector(text)
		out[i] = &embedder.Embedding{Vector: v, Dimension: len(v), Provider: "mock", Model: "test-v1"}
	}
	return &embedder.BatchEmbeddingResponse{Embeddings: out, Provider: "mock", Model: "test-v1"}, nil
}

func (m *mockEmbedder) Dimension() int   { return m.dimension }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "test-v1" }
func (m *mockEmbedder) Close() error     { return nil }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Chunking = chunker.Config{MaxChunkLength: 100, OverlapLength: 20}
	cfg.BatchSize = 4
	cfg.Workers = 3
	cfg.Retry = embedder.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	return cfg
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newTestIndexer(t *testing.T, cfg Config, emb embedder.Embedder) (*Indexer, *vectorindex.Index) {
	t.Helper()
	ix := vectorindex.New(vectorindex.MetricCosine)
	idx, err := New(cfg, embedder.HandleFor(emb), ix, nil)
	require.NoError(t, err)
	return idx, ix
}

func TestIngest(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"app/main.py":     strings.Repeat("print('hello world')\n", 20),
		"README.md":       "# Project\n\nSome documentation.",
		"app/main.pyc":    "compiled",
		".git/config":     "[core]",
		"docs/notes.txt":  strings.Repeat("note ", 60),
		"web/index.html":  "<html></html>",
		"binary/data.txt": "abc\x00def",
	})

	local, err := embedder.NewLocalProvider(0, nil)
	require.NoError(t, err)
	idx, ix := newTestIndexer(t, testConfig(), local)

	stats, err := idx.Ingest(context.Background(), root, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.FilesCollected)
	assert.Equal(t, 1, stats.SkippedFileCount)
	assert.Greater(t, stats.ChunkCount, 4)
	assert.Equal(t, stats.ChunkCount, stats.VectorCount)
	assert.Equal(t, 0, stats.DroppedChunks)
	assert.NotEmpty(t, stats.Generation)

	st := ix.Stats()
	assert.True(t, st.Ready)
	assert.Equal(t, stats.Generation, st.Generation)
	assert.Equal(t, stats.VectorCount, st.Size)
	assert.Equal(t, embedder.LocalDimension, st.Dim)
	assert.Equal(t, "local/feature-hash-v1", st.Model)

	p := idx.Progress()
	assert.False(t, p.Running)
	assert.Equal(t, int32(stats.ChunkCount), p.EmbeddedChunks)
}

func TestIngest_Deterministic(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"b.py": strings.Repeat("def f():\n    return 1\n", 30),
		"a.md": strings.Repeat("lorem ipsum ", 40),
	})

	local, err := embedder.NewLocalProvider(0, nil)
	require.NoError(t, err)
	idx, ix := newTestIndexer(t, testConfig(), local)

	q := make([]float32, embedder.LocalDimension)
	q[0] = 1

	_, err = idx.Ingest(context.Background(), root, nil)
	require.NoError(t, err)
	first, err := ix.Query(q, 100)
	require.NoError(t, err)

	_, err = idx.Ingest(context.Background(), root, nil)
	require.NoError(t, err)
	second, err := ix.Query(q, 100)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Chunk.ID, second[i].Chunk.ID)
		assert.Equal(t, first[i].Score, second[i].Score)
	}
}

func TestIngest_EmptyDirectoryResetsIndex(t *testing.T) {
	full := writeFiles(t, map[string]string{"a.py": "x = 1"})
	empty := writeFiles(t, map[string]string{"a.pyc": "nope"})

	idx, ix := newTestIndexer(t, testConfig(), newMockEmbedder())

	_, err := idx.Ingest(context.Background(), full, nil)
	require.NoError(t, err)
	require.True(t, ix.Ready())

	stats, err := idx.Ingest(context.Background(), empty, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ChunkCount)
	assert.Empty(t, stats.Generation)
	assert.False(t, ix.Ready())
}

func TestIngest_DropsFailedChunksUnderThreshold(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		files[name+".txt"] = "content of " + name
	}
	files["poison.txt"] = "POISON"
	root := writeFiles(t, files)

	m := newMockEmbedder()
	m.failWhen = func(text string) bool { return strings.Contains(text, "POISON") }

	cfg := testConfig()
	cfg.FailureThreshold = 0.1
	idx, ix := newTestIndexer(t, cfg, m)

	stats, err := idx.Ingest(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, 13, stats.ChunkCount)
	assert.Equal(t, 12, stats.VectorCount)
	assert.Equal(t, 1, stats.DroppedChunks)
	assert.Len(t, stats.Warnings, 1)
	assert.Contains(t, stats.Warnings[0], "poison.txt")
	assert.Equal(t, 12, ix.Stats().Size)
}

func TestIngest_FailsOverThreshold(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"a.txt": "good",
		"b.txt": "POISON one",
		"c.txt": "POISON two",
	})

	m := newMockEmbedder()
	m.failWhen = func(text string) bool { return strings.Contains(text, "POISON") }
	idx, ix := newTestIndexer(t, testConfig(), m)

	prior := []types.Chunk{{ID: types.NewChunkID("old.txt", 0), DocumentPath: "old.txt", Text: "old"}}
	_, err := ix.Build(prior, []types.Vector{types.NewVector(prior[0].ID, []float32{1, 0}, "mock/test-v1")})
	require.NoError(t, err)
	generation := ix.Stats().Generation

	_, err = idx.Ingest(context.Background(), root, nil)
	assert.ErrorIs(t, err, types.ErrBuild)
	assert.Equal(t, generation, ix.Stats().Generation, "prior index stays authoritative")
}

func TestIngest_DiscoveryError(t *testing.T) {
	idx, _ := newTestIndexer(t, testConfig(), newMockEmbedder())
	_, err := idx.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	assert.ErrorIs(t, err, types.ErrDiscovery)
}

func TestIngest_Options(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"a.py": strings.Repeat("z", 250),
		"b.md": "markdown",
	})
	idx, _ := newTestIndexer(t, testConfig(), newMockEmbedder())

	stats, err := idx.Ingest(context.Background(), root, &Options{
		Extensions: []string{".py"},
		Chunking:   &chunker.Config{MaxChunkLength: 100, OverlapLength: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesCollected)
	assert.Equal(t, 3, stats.ChunkCount)

	_, err = idx.Ingest(context.Background(), root, &Options{
		Chunking: &chunker.Config{MaxChunkLength: 10, OverlapLength: 10},
	})
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}

func TestIngest_AnnotatesGoSymbols(t *testing.T) {
	src := "package demo\n\n// Greet says hello\nfunc Greet(name string) string {\n\treturn \"hi \" + name\n}\n\ntype Server struct{}\n\nfunc (s *Server) Run() error { return nil }\n"
	root := writeFiles(t, map[string]string{"demo.go": src})

	cfg := testConfig()
	cfg.Chunking = chunker.Config{MaxChunkLength: 1000, OverlapLength: 0}
	idx, ix := newTestIndexer(t, cfg, newMockEmbedder())

	_, err := idx.Ingest(context.Background(), root, nil)
	require.NoError(t, err)

	results, err := ix.Query(newMockEmbedder().vector("x"), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Chunk.Symbols, "Greet")
	assert.Contains(t, results[0].Chunk.Symbols, "Server")
	assert.Contains(t, results[0].Chunk.Symbols, "Server.Run")
}

func TestIngest_ConcurrentCallRejected(t *testing.T) {
	root := writeFiles(t, map[string]string{"a.txt": "hello"})

	m := newMockEmbedder()
	m.block = make(chan struct{})
	m.started = make(chan struct{}, 1)
	idx, _ := newTestIndexer(t, testConfig(), m)

	done := make(chan error, 1)
	go func() {
		_, err := idx.Ingest(context.Background(), root, nil)
		done <- err
	}()

	<-m.started
	assert.True(t, idx.Progress().Running)
	_, err := idx.Ingest(context.Background(), root, nil)
	assert.ErrorIs(t, err, types.ErrIngestInProgress)

	close(m.block)
	require.NoError(t, <-done)
}

func TestIngest_CancelKeepsPriorIndex(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files[name+".txt"] = "text " + name
	}
	root := writeFiles(t, files)

	m := newMockEmbedder()
	idx, ix := newTestIndexer(t, testConfig(), m)
	_, err := idx.Ingest(context.Background(), root, nil)
	require.NoError(t, err)
	generation := ix.Stats().Generation

	m.mu.Lock()
	m.block = make(chan struct{})
	m.started = make(chan struct{}, 1)
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := idx.Ingest(ctx, root, nil)
		done <- err
	}()
	<-m.started
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, generation, ix.Stats().Generation)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"batch too large", func(c *Config) { c.BatchSize = embedder.MaxBatchSize + 1 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative threshold", func(c *Config) { c.FailureThreshold = -0.1 }},
		{"threshold above one", func(c *Config) { c.FailureThreshold = 1.5 }},
		{"bad chunking", func(c *Config) { c.Chunking.MaxChunkLength = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), types.ErrInvalidConfig)
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}

func TestIndexLock(t *testing.T) {
	var l IndexLock
	assert.True(t, l.TryAcquire())
	assert.True(t, l.Held())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.False(t, l.Held())
	assert.True(t, l.TryAcquire())
}
