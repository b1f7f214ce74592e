package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codecompanion/pkg/types"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix+"_") {
			t.Setenv(key, "")
			_ = os.Unsetenv(key)
		}
	}
	for _, key := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "JINA_API_KEY"} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 4, cfg.TopK)
	assert.Contains(t, cfg.Extensions, "Dockerfile")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("COMPANION_CHUNK_SIZE", "500")
	t.Setenv("COMPANION_CHUNK_OVERLAP", "50")
	t.Setenv("COMPANION_EXTENSIONS", ".go,.md")
	t.Setenv("COMPANION_EMBEDDING_TIMEOUT", "5s")
	t.Setenv("COMPANION_EMBEDDING_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-plain")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, []string{".go", ".md"}, cfg.Extensions)
	assert.Equal(t, 5*time.Second, cfg.EmbeddingTimeout)
	assert.Equal(t, "sk-plain", cfg.EmbeddingAPIKey())

	// Untouched fields keep defaults
	assert.Equal(t, 32, cfg.EmbeddingBatchSize)
}

func TestLoad_PrefixedKeyWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "plain")
	t.Setenv("COMPANION_GEMINI_API_KEY", "prefixed")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.GenerationAPIKey())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chunk_size: 800
chunk_overlap: 100
metric: euclidean
embedding_timeout: 10s
generation_provider: none
top_k: 6
`), 0o644))
	t.Setenv("COMPANION_TOP_K", "9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, "euclidean", cfg.Metric)
	assert.Equal(t, 10*time.Second, cfg.EmbeddingTimeout)
	assert.Equal(t, "none", cfg.GenerationProvider)
	assert.Equal(t, 9, cfg.TopK, "environment overrides the file")
	assert.Equal(t, 0.1, cfg.EmbeddingFailureThreshold, "defaults survive the file")
}

func TestLoad_ConfigFileFromEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_k: 2\n"), 0o644))
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.TopK)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, types.ErrInvalidConfig)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("chunk_size: [1, 2"), 0o644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, types.ErrInvalidConfig)

	t.Setenv("COMPANION_CHUNK_SIZE", "not-a-number")
	_, err = Load("")
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }},
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }},
		{"threshold above one", func(c *Config) { c.EmbeddingFailureThreshold = 1.1 }},
		{"unknown metric", func(c *Config) { c.Metric = "manhattan" }},
		{"zero workers", func(c *Config) { c.EmbeddingWorkers = 0 }},
		{"zero batch", func(c *Config) { c.EmbeddingBatchSize = 0 }},
		{"zero attempts", func(c *Config) { c.EmbeddingMaxAttempts = 0 }},
		{"unknown embedding provider", func(c *Config) { c.EmbeddingProvider = "bert" }},
		{"unknown generation provider", func(c *Config) { c.GenerationProvider = "llama" }},
		{"no extensions", func(c *Config) { c.Extensions = nil }},
		{"zero top k", func(c *Config) { c.TopK = 0 }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), types.ErrInvalidConfig)
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}
