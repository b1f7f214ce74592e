package embedder

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements Embedder using Google's Gemini embedding models
type GeminiProvider struct {
	client *genai.Client
	model  string
	cache  *Cache
}

// NewGeminiProvider creates a Gemini embedder.
// The client dials lazily, so ctx only bounds construction.
func NewGeminiProvider(ctx context.Context, apiKey, model string, cache *Cache) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key not set", ErrNoProviderEnabled)
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %v", ErrProviderFailed, err)
	}

	return &GeminiProvider{
		client: client,
		model:  model,
		cache:  cache,
	}, nil
}

func (g *GeminiProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if g.cache != nil {
		if emb, ok := g.cache.Get(hash); ok {
			return emb, nil
		}
	}

	res, err := g.client.EmbeddingModel(g.model).EmbedContent(ctx, genai.Text(req.Text))
	if err != nil {
		return nil, fmt.Errorf("%w: embed content: %v", ErrProviderFailed, err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrProviderFailed)
	}

	emb := &Embedding{
		Vector:    res.Embedding.Values,
		Dimension: len(res.Embedding.Values),
		Provider:  ProviderGemini,
		Model:     g.model,
		Hash:      hash,
	}
	if g.cache != nil {
		g.cache.Set(hash, emb)
	}
	return emb, nil
}

func (g *GeminiProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	if err := checkBatchSize(req.Texts); err != nil {
		return nil, err
	}

	embeddings, err := cachedBatch(ctx, g.cache, ProviderGemini, g.model, req.Texts, g.callAPI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderGemini,
		Model:      g.model,
	}, nil
}

func (g *GeminiProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	em := g.client.EmbeddingModel(g.model)
	batch := em.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("batch embed contents: %w", err)
	}

	vectors := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		if e != nil {
			vectors[i] = e.Values
		}
	}
	return vectors, nil
}

func (g *GeminiProvider) Dimension() int {
	return GeminiDimension
}

func (g *GeminiProvider) Provider() string {
	return ProviderGemini
}

func (g *GeminiProvider) Model() string {
	return g.model
}

func (g *GeminiProvider) Close() error {
	return g.client.Close()
}
