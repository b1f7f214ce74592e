package embedder

import (
	"context"
	"fmt"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	Dimension int // local provider only
	CacheSize int
}

// New creates an embedder with explicit configuration
func New(ctx context.Context, cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL, cache)
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model, cache)
	case ProviderLocal, "":
		return NewLocalProvider(cfg.Dimension, cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// LoaderFor returns a Loader that builds the configured embedder on first use
func LoaderFor(cfg Config) Loader {
	return func(ctx context.Context) (Embedder, error) {
		return New(ctx, cfg)
	}
}
