package embedder

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codecompanion/pkg/types"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2,
	}
}

// mockEmbedder fails batch calls and selected texts on demand
type mockEmbedder struct {
	mu          sync.Mutex
	batchErr    error
	failTexts   map[string]bool
	batchCalls  int
	singleCalls int
	closed      bool
	delay       time.Duration
}

func (m *mockEmbedder) vector(text string) []float32 {
	return []float32{float32(len(text)), 1, 0}
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	m.mu.Lock()
	m.singleCalls++
	m.mu.Unlock()
	if m.failTexts[req.Text] {
		return nil, errors.New("bad text")
	}
	v := m.vector(req.Text)
	return &Embedding{Vector: v, Dimension: len(v), Provider: "mock", Model: "m1"}, nil
}

func (m *mockEmbedder) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	m.mu.Lock()
	m.batchCalls++
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		v := m.vector(text)
		out[i] = &Embedding{Vector: v, Dimension: len(v), Provider: "mock", Model: "m1"}
	}
	return &BatchEmbeddingResponse{Embeddings: out, Provider: "mock", Model: "m1"}, nil
}

func (m *mockEmbedder) Dimension() int   { return 3 }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "m1" }
func (m *mockEmbedder) Close() error {
	m.closed = true
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestLocalProvider_Deterministic(t *testing.T) {
	ctx := context.Background()
	a, err := NewLocalProvider(0, nil)
	require.NoError(t, err)
	b, err := NewLocalProvider(0, nil)
	require.NoError(t, err)

	text := "func ParseFile(path string) error"
	ea, err := a.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
	require.NoError(t, err)
	eb, err := b.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
	require.NoError(t, err)

	assert.Equal(t, ea.Vector, eb.Vector)
	assert.Equal(t, LocalDimension, ea.Dimension)
	assert.Equal(t, ProviderLocal, ea.Provider)
	assert.Equal(t, DefaultLocalModel, ea.Model)

	var norm float64
	for _, v := range ea.Vector {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-4)
}

func TestLocalProvider_Similarity(t *testing.T) {
	ctx := context.Background()
	p, err := NewLocalProvider(0, nil)
	require.NoError(t, err)

	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{
		"How do I configure the database connection pool?",
		"database connection pool configuration settings",
		"render the sprite animation frames",
	}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 3)

	related := cosine(resp.Embeddings[0].Vector, resp.Embeddings[1].Vector)
	unrelated := cosine(resp.Embeddings[0].Vector, resp.Embeddings[2].Vector)
	assert.Greater(t, related, unrelated)
}

func TestLocalProvider_CaseFolding(t *testing.T) {
	ctx := context.Background()
	p, err := NewLocalProvider(64, nil)
	require.NoError(t, err)

	upper, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "HELLO World"})
	require.NoError(t, err)
	lower, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello world"})
	require.NoError(t, err)
	assert.Equal(t, lower.Vector, upper.Vector)
	assert.Equal(t, 64, p.Dimension())
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	p, err := NewLocalProvider(0, nil)
	require.NoError(t, err)

	_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: ""})
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = p.GenerateBatch(ctx, BatchEmbeddingRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a", ""}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCache_ReturnsCopies(t *testing.T) {
	c := NewCache(2)
	c.Set("a", &Embedding{Vector: []float32{1, 2}, Dimension: 2})

	got, ok := c.Get("a")
	require.True(t, ok)
	got.Vector[0] = 99

	again, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, float32(1), again.Vector[0])

	c.Set("b", &Embedding{})
	c.Set("c", &Embedding{})
	assert.Equal(t, 2, c.Size())
	_, ok = c.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestLocalProvider_UsesCache(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(10)
	p, err := NewLocalProvider(0, cache)
	require.NoError(t, err)

	_, err = p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"one", "two"}})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Size())

	emb, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "one"})
	require.NoError(t, err)
	assert.Equal(t, ComputeHash("one"), emb.Hash)
	assert.Equal(t, 2, cache.Size())
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("succeeds after failures", func(t *testing.T) {
		var calls int
		got, err := retryWithBackoff(context.Background(), fastRetry(), func(ctx context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var calls int
		_, err := retryWithBackoff(context.Background(), fastRetry(), func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("permanent")
		})
		assert.EqualError(t, err, "permanent")
		assert.Equal(t, 3, calls)
	})

	t.Run("per-attempt timeout", func(t *testing.T) {
		cfg := fastRetry()
		cfg.MaxAttempts = 2
		cfg.Timeout = 5 * time.Millisecond
		var calls int32
		_, err := retryWithBackoff(context.Background(), cfg, func(ctx context.Context) (int, error) {
			atomic.AddInt32(&calls, 1)
			<-ctx.Done()
			return 0, ctx.Err()
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var calls int
		_, err := retryWithBackoff(ctx, fastRetry(), func(ctx context.Context) (int, error) {
			calls++
			cancel()
			return 0, errors.New("boom")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestEmbedTexts_Batch(t *testing.T) {
	m := &mockEmbedder{}
	out, err := EmbedTexts(context.Background(), m, []string{"a", "bb"}, fastRetry())
	require.NoError(t, err)
	assert.Equal(t, 0, out.Failed())
	assert.Equal(t, 1, m.batchCalls)
	assert.Equal(t, float32(2), out.Embeddings[1].Vector[0])
}

func TestEmbedTexts_FallsBackPerText(t *testing.T) {
	m := &mockEmbedder{
		batchErr:  errors.New("batch rejected"),
		failTexts: map[string]bool{"bad": true},
	}
	out, err := EmbedTexts(context.Background(), m, []string{"good", "bad", "fine"}, fastRetry())
	require.NoError(t, err)

	assert.Equal(t, 3, m.batchCalls)
	assert.Equal(t, 1, out.Failed())
	assert.NotNil(t, out.Embeddings[0])
	assert.Nil(t, out.Embeddings[1])
	assert.ErrorIs(t, out.Errors[1], types.ErrEmbedding)
	assert.NotNil(t, out.Embeddings[2])
}

func TestEmbedTexts_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &mockEmbedder{delay: time.Second}
	_, err := EmbedTexts(ctx, m, []string{"a"}, fastRetry())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmbedTexts_Empty(t *testing.T) {
	m := &mockEmbedder{}
	out, err := EmbedTexts(context.Background(), m, nil, fastRetry())
	require.NoError(t, err)
	assert.Empty(t, out.Embeddings)
	assert.Equal(t, 0, m.batchCalls)
}

func TestToVector(t *testing.T) {
	v := ToVector("abc", &Embedding{Vector: []float32{1, 0}, Provider: "local", Model: "feature-hash-v1"})
	assert.Equal(t, "abc", v.ChunkID)
	assert.Equal(t, 2, v.Dim)
	assert.Equal(t, "local/feature-hash-v1", v.Model)
	assert.Equal(t, Identity(&LocalProvider{model: "feature-hash-v1"}), v.Model)
}

func TestHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("loads once", func(t *testing.T) {
		var loads int32
		m := &mockEmbedder{}
		h := NewHandle(func(ctx context.Context) (Embedder, error) {
			atomic.AddInt32(&loads, 1)
			return m, nil
		})
		assert.False(t, h.Loaded())

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				emb, err := h.Get(ctx)
				assert.NoError(t, err)
				assert.Same(t, m, emb)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
		assert.True(t, h.Loaded())

		require.NoError(t, h.Release())
		assert.True(t, m.closed)
		_, err := h.Get(ctx)
		assert.ErrorIs(t, err, ErrReleased)
		assert.NoError(t, h.Release())
	})

	t.Run("retries failed load", func(t *testing.T) {
		var loads int
		h := NewHandle(func(ctx context.Context) (Embedder, error) {
			loads++
			if loads == 1 {
				return nil, errors.New("model unavailable")
			}
			return &mockEmbedder{}, nil
		})
		_, err := h.Get(ctx)
		require.Error(t, err)
		_, err = h.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, loads)
	})

	t.Run("wraps existing", func(t *testing.T) {
		m := &mockEmbedder{}
		h := HandleFor(m)
		emb, err := h.Get(ctx)
		require.NoError(t, err)
		assert.Same(t, m, emb)
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	emb, err := New(ctx, Config{Provider: "LOCAL", CacheSize: 10})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, emb.Provider())

	_, err = New(ctx, Config{Provider: "openai"})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)

	_, err = New(ctx, Config{Provider: "jina"})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)

	_, err = New(ctx, Config{Provider: "gemini"})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)

	_, err = New(ctx, Config{Provider: "word2vec"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
	assert.True(t, strings.Contains(err.Error(), "word2vec"))
}
