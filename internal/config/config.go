package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/dshills/codecompanion/pkg/types"
)

// EnvPrefix prefixes every environment variable, e.g. COMPANION_CHUNK_SIZE.
// API keys also accept their conventional unprefixed names.
const EnvPrefix = "COMPANION"

// EnvConfigFile names the YAML file to load when no path is given
const EnvConfigFile = "COMPANION_CONFIG_FILE"

// Config is the complete runtime configuration
type Config struct {
	// Collection
	Extensions     []string `yaml:"extensions" envconfig:"EXTENSIONS"`
	IgnoreDirs     []string `yaml:"ignore_dirs" envconfig:"IGNORE_DIRS"`
	MaxFileBytes   int64    `yaml:"max_file_bytes" envconfig:"MAX_FILE_BYTES"`
	DecodeFallback bool     `yaml:"decode_fallback" envconfig:"DECODE_FALLBACK"`

	// Chunking
	ChunkSize       int  `yaml:"chunk_size" envconfig:"CHUNK_SIZE"`
	ChunkOverlap    int  `yaml:"chunk_overlap" envconfig:"CHUNK_OVERLAP"`
	AnnotateSymbols bool `yaml:"annotate_symbols" envconfig:"ANNOTATE_SYMBOLS"`

	// Embedding
	EmbeddingProvider         string        `yaml:"embedding_provider" envconfig:"EMBEDDING_PROVIDER"`
	EmbeddingModel            string        `yaml:"embedding_model" envconfig:"EMBEDDING_MODEL"`
	EmbeddingBaseURL          string        `yaml:"embedding_base_url" envconfig:"EMBEDDING_BASE_URL"`
	EmbeddingDimension        int           `yaml:"embedding_dimension" envconfig:"EMBEDDING_DIMENSION"`
	EmbeddingBatchSize        int           `yaml:"embedding_batch_size" envconfig:"EMBEDDING_BATCH_SIZE"`
	EmbeddingWorkers          int           `yaml:"embedding_workers" envconfig:"EMBEDDING_WORKERS"`
	EmbeddingMaxAttempts      int           `yaml:"embedding_max_attempts" envconfig:"EMBEDDING_MAX_ATTEMPTS"`
	EmbeddingTimeout          time.Duration `yaml:"embedding_timeout" envconfig:"EMBEDDING_TIMEOUT"`
	EmbeddingFailureThreshold float64       `yaml:"embedding_failure_threshold" envconfig:"EMBEDDING_FAILURE_THRESHOLD"`
	CacheSize                 int           `yaml:"cache_size" envconfig:"CACHE_SIZE"`
	CacheDBPath               string        `yaml:"cache_db_path" envconfig:"CACHE_DB_PATH"`

	// Retrieval
	Metric string `yaml:"metric" envconfig:"METRIC"`
	TopK   int    `yaml:"top_k" envconfig:"TOP_K"`

	// Answer generation
	GenerationProvider string  `yaml:"generation_provider" envconfig:"GENERATION_PROVIDER"`
	GenerationModel    string  `yaml:"generation_model" envconfig:"GENERATION_MODEL"`
	GenerationBaseURL  string  `yaml:"generation_base_url" envconfig:"GENERATION_BASE_URL"`
	Temperature        float32 `yaml:"temperature" envconfig:"TEMPERATURE"`

	// Credentials
	OpenAIAPIKey string `yaml:"openai_api_key" envconfig:"OPENAI_API_KEY"`
	GeminiAPIKey string `yaml:"gemini_api_key" envconfig:"GEMINI_API_KEY"`
	JinaAPIKey   string `yaml:"jina_api_key" envconfig:"JINA_API_KEY"`

	// Logging
	LogLevel  string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" envconfig:"LOG_FORMAT"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Extensions:                []string{".py", ".md", ".txt", ".json", ".html", ".css", ".js", ".ipynb", "Dockerfile", ".yml", ".yaml", ".go"},
		IgnoreDirs:                []string{".git", ".hg", ".svn", "node_modules", "vendor", "__pycache__", ".venv"},
		MaxFileBytes:              1 << 20,
		DecodeFallback:            true,
		ChunkSize:                 1000,
		ChunkOverlap:              200,
		AnnotateSymbols:           true,
		EmbeddingProvider:         "local",
		EmbeddingBatchSize:        32,
		EmbeddingWorkers:          4,
		EmbeddingMaxAttempts:      3,
		EmbeddingTimeout:          30 * time.Second,
		EmbeddingFailureThreshold: 0.1,
		CacheSize:                 10000,
		Metric:                    "cosine",
		TopK:                      4,
		GenerationProvider:        "gemini",
		GenerationModel:           "gemini-1.5-flash-latest",
		Temperature:               0.3,
		LogLevel:                  "info",
		LogFormat:                 "text",
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of increasing precedence. A .env file in the
// working directory is loaded first if present. An empty path falls back to
// $COMPANION_CONFIG_FILE.
func Load(path string) (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", types.ErrInvalidConfig, path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parse %s: %v", types.ErrInvalidConfig, path, err)
	}
	return nil
}

var (
	embeddingProviders  = []string{"local", "openai", "gemini", "jina"}
	generationProviders = []string{"gemini", "openai", "none"}
	metrics             = []string{"cosine", "euclidean", "l2"}
	logFormats          = []string{"text", "json"}
)

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(len(c.Extensions) > 0, "extensions must not be empty")
	check(c.ChunkSize > 0, "chunk_size must be positive, got %d", c.ChunkSize)
	check(c.ChunkOverlap >= 0 && c.ChunkOverlap < c.ChunkSize,
		"chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap)
	check(oneOf(c.EmbeddingProvider, embeddingProviders), "unknown embedding_provider %q", c.EmbeddingProvider)
	check(c.EmbeddingBatchSize > 0, "embedding_batch_size must be positive, got %d", c.EmbeddingBatchSize)
	check(c.EmbeddingWorkers > 0, "embedding_workers must be positive, got %d", c.EmbeddingWorkers)
	check(c.EmbeddingMaxAttempts > 0, "embedding_max_attempts must be positive, got %d", c.EmbeddingMaxAttempts)
	check(c.EmbeddingTimeout >= 0, "embedding_timeout must not be negative")
	check(c.EmbeddingFailureThreshold >= 0 && c.EmbeddingFailureThreshold <= 1,
		"embedding_failure_threshold must be in [0, 1], got %v", c.EmbeddingFailureThreshold)
	check(oneOf(c.Metric, metrics), "unknown metric %q", c.Metric)
	check(c.TopK > 0, "top_k must be positive, got %d", c.TopK)
	check(oneOf(c.GenerationProvider, generationProviders), "unknown generation_provider %q", c.GenerationProvider)
	check(oneOf(c.LogFormat, logFormats), "unknown log_format %q", c.LogFormat)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", types.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// EmbeddingAPIKey returns the credential for the configured embedding provider
func (c *Config) EmbeddingAPIKey() string {
	return c.keyFor(c.EmbeddingProvider)
}

// GenerationAPIKey returns the credential for the configured generation provider
func (c *Config) GenerationAPIKey() string {
	return c.keyFor(c.GenerationProvider)
}

func (c *Config) keyFor(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return c.OpenAIAPIKey
	case "gemini":
		return c.GeminiAPIKey
	case "jina":
		return c.JinaAPIKey
	}
	return ""
}

func oneOf(value string, allowed []string) bool {
	value = strings.ToLower(value)
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
