package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
)

const defaultJinaURL = "https://api.jina.ai/v1/embeddings"

// JinaProvider implements Embedder using Jina AI API
type JinaProvider struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	cache      *Cache
}

// NewJinaProvider creates a new Jina AI embedder.
// An empty model or baseURL selects the public defaults.
func NewJinaProvider(apiKey, model, baseURL string, cache *Cache) (*JinaProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: jina api key not set", ErrNoProviderEnabled)
	}
	if model == "" {
		model = DefaultJinaModel
	}
	endpoint := defaultJinaURL
	if baseURL != "" {
		endpoint = baseURL + "/embeddings"
	}

	return &JinaProvider{
		apiKey:     apiKey,
		model:      model,
		endpoint:   endpoint,
		httpClient: &http.Client{},
		cache:      cache,
	}, nil
}

func (j *JinaProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	// Use batch API for consistency
	resp, err := j.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{req.Text}})
	if err != nil {
		return nil, err
	}

	return resp.Embeddings[0], nil
}

func (j *JinaProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	if err := checkBatchSize(req.Texts); err != nil {
		return nil, err
	}

	embeddings, err := cachedBatch(ctx, j.cache, ProviderJina, j.model, req.Texts, j.callAPI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderJina,
		Model:      j.model,
	}, nil
}

func (j *JinaProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": j.model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+j.apiKey)

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	sort.Slice(apiResp.Data, func(a, b int) bool {
		return apiResp.Data[a].Index < apiResp.Data[b].Index
	})

	vectors := make([][]float32, len(apiResp.Data))
	for i, data := range apiResp.Data {
		vectors[i] = data.Embedding
	}
	return vectors, nil
}

func (j *JinaProvider) Dimension() int {
	return JinaDimension
}

func (j *JinaProvider) Provider() string {
	return ProviderJina
}

func (j *JinaProvider) Model() string {
	return j.model
}

func (j *JinaProvider) Close() error {
	j.httpClient.CloseIdleConnections()
	return nil
}
