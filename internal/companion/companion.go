package companion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/codecompanion/internal/answer"
	"github.com/dshills/codecompanion/internal/chunker"
	"github.com/dshills/codecompanion/internal/collector"
	"github.com/dshills/codecompanion/internal/config"
	"github.com/dshills/codecompanion/internal/embedder"
	"github.com/dshills/codecompanion/internal/indexer"
	"github.com/dshills/codecompanion/internal/retriever"
	"github.com/dshills/codecompanion/internal/storage"
	"github.com/dshills/codecompanion/internal/vectorindex"
	"github.com/dshills/codecompanion/pkg/types"
)

var _ embedder.Store = (*storage.SQLiteStore)(nil)

// Session states
const (
	StateEmpty     = "empty"
	StateReady     = "ready"
	StateIngesting = "ingesting"
)

// Deps lets callers supply prebuilt components. Nil fields are built from the config.
type Deps struct {
	Logger    *slog.Logger
	Embedder  embedder.Embedder
	Generator answer.Generator
}

// Answer is a generated reply with the chunks it was grounded on
type Answer struct {
	Question  string
	Text      string
	Sources   []types.SearchResult
	Generator string
	Duration  time.Duration
}

// Status is a point-in-time view of the session
type Status struct {
	State          string
	Root           string
	Index          vectorindex.Stats
	LastIngest     *indexer.Statistics
	LastIngestAt   time.Time
	Progress       indexer.Progress
	EmbedderLoaded bool
	Generator      string
	Cache          []storage.IdentityStats
}

// Service is one session: a single repository index with its embedder,
// retriever and optional answer generator
type Service struct {
	cfg       *config.Config
	logger    *slog.Logger
	handle    *embedder.Handle
	store     *storage.SQLiteStore
	index     *vectorindex.Index
	indexer   *indexer.Indexer
	retriever *retriever.Retriever
	generator answer.Generator

	mu           sync.RWMutex
	root         string
	lastIngest   *indexer.Statistics
	lastIngestAt time.Time
}

// New wires a Service from configuration
func New(ctx context.Context, cfg *config.Config, deps Deps) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metric, err := vectorindex.ParseMetric(cfg.Metric)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:    cfg,
		logger: logger,
		index:  vectorindex.New(metric),
	}

	if deps.Embedder != nil {
		s.handle = embedder.HandleFor(deps.Embedder)
	} else {
		store, err := storage.Open(ctx, cfg.CacheDBPath)
		if err != nil {
			return nil, fmt.Errorf("open embedding cache: %w", err)
		}
		s.store = store
		s.handle = embedder.NewHandle(s.loader(EmbedderConfig(cfg)))
	}

	s.indexer, err = indexer.New(IndexerConfig(cfg), s.handle, s.index, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.retriever = retriever.New(s.handle, s.index, retriever.Config{
		TopK:  cfg.TopK,
		Retry: retryConfig(cfg),
	})

	s.generator = deps.Generator
	if s.generator == nil {
		gen, err := answer.New(ctx, AnswerConfig(cfg))
		switch {
		case errors.Is(err, answer.ErrNoGenerator):
			logger.Info("answer generation disabled; retrieval only", slog.String("reason", err.Error()))
		case err != nil:
			_ = s.Close()
			return nil, err
		default:
			s.generator = gen
		}
	}

	return s, nil
}

// loader builds the configured embedder on first use, backed by the SQLite cache
func (s *Service) loader(ecfg embedder.Config) embedder.Loader {
	return func(ctx context.Context) (embedder.Embedder, error) {
		emb, err := embedder.New(ctx, ecfg)
		if err != nil {
			return nil, err
		}
		s.logger.Info("embedder loaded",
			slog.String("provider", emb.Provider()),
			slog.String("model", emb.Model()),
			slog.Int("dimension", emb.Dimension()))
		return embedder.NewStoreBacked(emb, s.store, s.logger), nil
	}
}

// Ingest replaces the session index with the content under root
func (s *Service) Ingest(ctx context.Context, root string, opts *indexer.Options) (*indexer.Statistics, error) {
	stats, err := s.indexer.Ingest(ctx, root, opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.root = root
	s.lastIngest = stats
	s.lastIngestAt = time.Now()
	s.mu.Unlock()

	return stats, nil
}

// AnswerQuestion retrieves the configured number of chunks for question
func (s *Service) AnswerQuestion(ctx context.Context, question string) ([]types.SearchResult, error) {
	return s.retriever.SimilaritySearch(ctx, question, 0)
}

// Search retrieves up to k chunks for query; k <= 0 uses the configured default
func (s *Service) Search(ctx context.Context, query string, k int) (*retriever.SearchResponse, error) {
	return s.retriever.Search(ctx, retriever.SearchRequest{Query: query, Limit: k})
}

// Ask retrieves context for question and generates an answer. Without a
// generator it returns the sources with answer.ErrNoGenerator.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	start := time.Now()

	sources, err := s.AnswerQuestion(ctx, question)
	if err != nil {
		return nil, err
	}

	ans := &Answer{Question: question, Sources: sources}
	if s.generator == nil {
		ans.Duration = time.Since(start)
		return ans, answer.ErrNoGenerator
	}

	ans.Generator = s.generator.Name()
	ans.Text, err = s.generator.Generate(ctx, question, sources)
	ans.Duration = time.Since(start)
	if err != nil {
		return ans, fmt.Errorf("generate answer: %w", err)
	}
	return ans, nil
}

// CanGenerate reports whether an answer generator is configured
func (s *Service) CanGenerate() bool {
	return s.generator != nil
}

// Status reports the session state
func (s *Service) Status(ctx context.Context) Status {
	st := Status{
		Index:          s.index.Stats(),
		Progress:       s.indexer.Progress(),
		EmbedderLoaded: s.handle.Loaded(),
	}
	switch {
	case st.Progress.Running:
		st.State = StateIngesting
	case st.Index.Ready:
		st.State = StateReady
	default:
		st.State = StateEmpty
	}
	if s.generator != nil {
		st.Generator = s.generator.Name()
	}

	s.mu.RLock()
	st.Root = s.root
	st.LastIngest = s.lastIngest
	st.LastIngestAt = s.lastIngestAt
	s.mu.RUnlock()

	if s.store != nil {
		cache, err := s.store.Stats(ctx)
		if err != nil {
			s.logger.Warn("embedding cache stats failed", slog.Any("error", err))
		}
		st.Cache = cache
	}
	return st
}

// Close releases the embedder, generator and cache
func (s *Service) Close() error {
	var errs []error
	if s.handle != nil {
		errs = append(errs, s.handle.Release())
	}
	if s.generator != nil {
		errs = append(errs, s.generator.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}

// EmbedderConfig maps configuration onto the embedder factory
func EmbedderConfig(cfg *config.Config) embedder.Config {
	return embedder.Config{
		Provider:  cfg.EmbeddingProvider,
		Model:     cfg.EmbeddingModel,
		APIKey:    cfg.EmbeddingAPIKey(),
		BaseURL:   cfg.EmbeddingBaseURL,
		Dimension: cfg.EmbeddingDimension,
		CacheSize: cfg.CacheSize,
	}
}

// IndexerConfig maps configuration onto the ingestion pipeline
func IndexerConfig(cfg *config.Config) indexer.Config {
	return indexer.Config{
		Collector: collector.Options{
			Extensions:     cfg.Extensions,
			IgnoreDirs:     cfg.IgnoreDirs,
			MaxFileBytes:   cfg.MaxFileBytes,
			DecodeFallback: cfg.DecodeFallback,
		},
		Chunking: chunker.Config{
			MaxChunkLength: cfg.ChunkSize,
			OverlapLength:  cfg.ChunkOverlap,
		},
		BatchSize:        cfg.EmbeddingBatchSize,
		Workers:          cfg.EmbeddingWorkers,
		Retry:            retryConfig(cfg),
		FailureThreshold: cfg.EmbeddingFailureThreshold,
		AnnotateSymbols:  cfg.AnnotateSymbols,
	}
}

// AnswerConfig maps configuration onto the answer generator
func AnswerConfig(cfg *config.Config) answer.Config {
	return answer.Config{
		Provider:    cfg.GenerationProvider,
		Model:       cfg.GenerationModel,
		APIKey:      cfg.GenerationAPIKey(),
		BaseURL:     cfg.GenerationBaseURL,
		Temperature: cfg.Temperature,
	}
}

func retryConfig(cfg *config.Config) embedder.RetryConfig {
	rc := embedder.DefaultRetryConfig()
	rc.MaxAttempts = cfg.EmbeddingMaxAttempts
	rc.Timeout = cfg.EmbeddingTimeout
	return rc
}
