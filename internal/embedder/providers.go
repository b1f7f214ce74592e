package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderLocal  = "local"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultGeminiModel = "text-embedding-004"
	DefaultLocalModel  = "feature-hash-v1"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536
	GeminiDimension = 768
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 32
	MaxBatchSize     = 100

	DefaultCacheSize = 10000

	// Retry configuration
	MaxAttempts        = 3
	InitialBackoffMs   = 100
	MaxBackoffMs       = 5000
	BackoffMultiplier  = 2.0
	DefaultCallTimeout = 30 * time.Second
)

// LocalProvider is an offline embedder based on signed feature hashing of
// word tokens and character trigrams. It needs no model download or network
// and produces identical vectors for identical text across runs.
type LocalProvider struct {
	model     string
	dimension int
	cache     *Cache
	folder    cases.Caser
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(dimension int, cache *Cache) (*LocalProvider, error) {
	if dimension <= 0 {
		dimension = LocalDimension
	}
	return &LocalProvider{
		model:     DefaultLocalModel,
		dimension: dimension,
		cache:     cache,
		folder:    cases.Fold(),
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	resp, err := l.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{req.Text}})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings, err := cachedBatch(ctx, l.cache, ProviderLocal, l.model, req.Texts, func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			vectors[i] = l.embed(text)
		}
		return vectors, nil
	})
	if err != nil {
		return nil, err
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) embed(text string) []float32 {
	vector := make([]float32, l.dimension)
	folded := l.folder.String(text)

	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	for _, word := range words {
		l.addFeature(vector, "w:"+word, 1.0)
		runes := []rune(word)
		for i := 0; i+3 <= len(runes); i++ {
			l.addFeature(vector, "t:"+string(runes[i:i+3]), 0.5)
		}
	}

	return NormalizeVector(vector)
}

func (l *LocalProvider) addFeature(vector []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(l.dimension))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vector[bucket] += weight
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}

func checkBatchSize(texts []string) error {
	if len(texts) > MaxBatchSize {
		return fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}
	return nil
}
