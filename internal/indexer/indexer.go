package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/codecompanion/internal/chunker"
	"github.com/dshills/codecompanion/internal/collector"
	"github.com/dshills/codecompanion/internal/embedder"
	"github.com/dshills/codecompanion/internal/parser"
	"github.com/dshills/codecompanion/internal/vectorindex"
	"github.com/dshills/codecompanion/pkg/types"
)

// DefaultFailureThreshold is the largest tolerated fraction of chunks that fail to embed
const DefaultFailureThreshold = 0.1

// maxWarnings bounds Statistics.Warnings; the counters stay exact
const maxWarnings = 50

// Config contains configuration for the indexer
type Config struct {
	Collector collector.Options
	Chunking  chunker.Config

	BatchSize int                  // Chunks per embedding call (default: 32)
	Workers   int                  // Concurrent embedding calls (default: runtime.NumCPU(), capped at 8)
	Retry     embedder.RetryConfig // Attempts, backoff and per-call timeout

	// FailureThreshold aborts the build when dropped/total exceeds it
	FailureThreshold float64

	// AnnotateSymbols records overlapping Go declarations on each chunk
	AnnotateSymbols bool
}

// DefaultConfig returns the indexer defaults
func DefaultConfig() Config {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return Config{
		Collector:        collector.DefaultOptions(),
		Chunking:         chunker.DefaultConfig(),
		BatchSize:        embedder.DefaultBatchSize,
		Workers:          workers,
		Retry:            embedder.DefaultRetryConfig(),
		FailureThreshold: DefaultFailureThreshold,
		AnnotateSymbols:  true,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if err := c.Chunking.Validate(); err != nil {
		return err
	}
	if c.BatchSize <= 0 || c.BatchSize > embedder.MaxBatchSize {
		return fmt.Errorf("%w: batch size %d outside [1, %d]", types.ErrInvalidConfig, c.BatchSize, embedder.MaxBatchSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", types.ErrInvalidConfig, c.Workers)
	}
	if c.FailureThreshold < 0 || c.FailureThreshold > 1 {
		return fmt.Errorf("%w: failure threshold %.2f outside [0, 1]", types.ErrInvalidConfig, c.FailureThreshold)
	}
	return nil
}

// Options overrides per-call settings. Nil fields fall back to the Config.
type Options struct {
	Extensions []string
	Chunking   *chunker.Config
}

// Progress tracks the running ingest
type Progress struct {
	Running        bool
	TotalChunks    int32
	EmbeddedChunks int32
	DroppedChunks  int32
	StartTime      time.Time
}

// Statistics contains statistics about one ingest
type Statistics struct {
	FilesCollected   int
	SkippedFileCount int
	ChunkCount       int
	VectorCount      int
	DroppedChunks    int
	Generation       string // Empty when the ingest left the index empty
	Duration         time.Duration
	Warnings         []string
}

// Indexer coordinates the ingestion pipeline: collect -> split -> embed -> build
type Indexer struct {
	cfg    Config
	handle *embedder.Handle
	index  *vectorindex.Index
	parser *parser.Parser
	logger *slog.Logger
	lock   IndexLock

	// Progress of the current run
	total    atomic.Int32
	embedded atomic.Int32
	dropped  atomic.Int32
	started  atomic.Int64
}

// New creates a new Indexer that publishes into index
func New(cfg Config, handle *embedder.Handle, index *vectorindex.Index, logger *slog.Logger) (*Indexer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		cfg:    cfg,
		handle: handle,
		index:  index,
		parser: parser.New(),
		logger: logger,
	}, nil
}

// Progress reports on the running ingest, if any
func (idx *Indexer) Progress() Progress {
	p := Progress{
		Running:        idx.lock.Held(),
		TotalChunks:    idx.total.Load(),
		EmbeddedChunks: idx.embedded.Load(),
		DroppedChunks:  idx.dropped.Load(),
	}
	if ns := idx.started.Load(); ns != 0 {
		p.StartTime = time.Unix(0, ns)
	}
	return p
}

// Ingest builds a new index generation from the files under rootPath.
//
// On success the new snapshot replaces the old one, or the index is reset
// when no chunks were produced. On any error the previous snapshot stays
// published. Only one ingest runs at a time; a concurrent call fails with
// types.ErrIngestInProgress.
func (idx *Indexer) Ingest(ctx context.Context, rootPath string, opts *Options) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, types.ErrIngestInProgress
	}
	defer idx.lock.Release()

	startTime := time.Now()
	idx.resetProgress(startTime)

	collectOpts, chunkCfg := idx.resolve(opts)
	ch, err := chunker.New(chunkCfg)
	if err != nil {
		return nil, err
	}

	collected, err := collector.New(collectOpts, idx.logger).Collect(ctx, rootPath)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		FilesCollected:   len(collected.Documents),
		SkippedFileCount: len(collected.Skipped),
	}
	for _, sk := range collected.Skipped {
		stats.addWarning(fmt.Sprintf("skipped %s: %v", sk.Path, sk.Reason))
	}

	chunks := idx.split(ch, collected.Documents)
	stats.ChunkCount = len(chunks)
	idx.total.Store(int32(len(chunks)))

	if len(chunks) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx.index.Reset()
		stats.Duration = time.Since(startTime)
		idx.logger.Info("ingest produced no chunks; index reset",
			slog.String("root", rootPath),
			slog.Int("files", stats.FilesCollected),
			slog.Int("skipped", stats.SkippedFileCount))
		return stats, nil
	}

	emb, err := idx.handle.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	outcomes, err := idx.embedChunks(ctx, emb, chunks)
	if err != nil {
		return nil, err
	}

	kept, vectors := idx.merge(chunks, outcomes, stats)
	stats.VectorCount = len(vectors)
	stats.DroppedChunks = len(chunks) - len(vectors)

	rate := float64(stats.DroppedChunks) / float64(len(chunks))
	if rate > idx.cfg.FailureThreshold || len(vectors) == 0 {
		return nil, fmt.Errorf("%w: %d of %d chunks failed to embed (threshold %.0f%%)",
			types.ErrBuild, stats.DroppedChunks, len(chunks), idx.cfg.FailureThreshold*100)
	}

	// A cancelled ingest never publishes
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := idx.index.Build(kept, vectors)
	if err != nil {
		return nil, err
	}

	stats.Generation = snap.Generation()
	stats.Duration = time.Since(startTime)
	idx.logger.Info("ingest complete",
		slog.String("root", rootPath),
		slog.String("generation", stats.Generation),
		slog.Int("files", stats.FilesCollected),
		slog.Int("skipped", stats.SkippedFileCount),
		slog.Int("chunks", stats.ChunkCount),
		slog.Int("vectors", stats.VectorCount),
		slog.Int("dropped", stats.DroppedChunks),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

func (idx *Indexer) resolve(opts *Options) (collector.Options, chunker.Config) {
	collectOpts := idx.cfg.Collector
	chunkCfg := idx.cfg.Chunking
	if opts != nil {
		if len(opts.Extensions) > 0 {
			collectOpts.Extensions = opts.Extensions
		}
		if opts.Chunking != nil {
			chunkCfg = *opts.Chunking
		}
	}
	return collectOpts, chunkCfg
}

func (idx *Indexer) resetProgress(start time.Time) {
	idx.total.Store(0)
	idx.embedded.Store(0)
	idx.dropped.Store(0)
	idx.started.Store(start.UnixNano())
}

// split chunks every document in order and annotates Go sources with symbol names
func (idx *Indexer) split(ch *chunker.Chunker, docs []types.Document) []types.Chunk {
	var chunks []types.Chunk
	for _, doc := range docs {
		docChunks := ch.Split(doc)
		if idx.cfg.AnnotateSymbols && parser.Supports(doc.Path) {
			idx.annotate(doc, docChunks)
		}
		chunks = append(chunks, docChunks...)
	}
	return chunks
}

func (idx *Indexer) annotate(doc types.Document, chunks []types.Chunk) {
	result, err := idx.parser.ParseSource(doc.Path, doc.Text)
	if err != nil {
		return
	}
	if result.HasErrors() {
		idx.logger.Debug("partial parse", slog.String("path", doc.Path), slog.String("error", result.Errors[0].Message))
	}
	for i := range chunks {
		chunks[i].Symbols = result.SymbolsIn(chunks[i].ByteStart, chunks[i].ByteEnd)
	}
}

// embedChunks embeds chunks in fixed-size batches on a bounded worker pool.
// Results are stored by batch index, so the merge is in chunk order.
func (idx *Indexer) embedChunks(ctx context.Context, emb embedder.Embedder, chunks []types.Chunk) ([]*embedder.Outcome, error) {
	batchSize := idx.cfg.BatchSize
	numBatches := (len(chunks) + batchSize - 1) / batchSize
	outcomes := make([]*embedder.Outcome, numBatches)

	g, gctx := errgroup.WithContext(ctx)
	semaphore := make(chan struct{}, idx.cfg.Workers)

dispatch:
	for b := 0; b < numBatches; b++ {
		start := b * batchSize
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		// Cancellation is observed between batches
		select {
		case <-gctx.Done():
			break dispatch
		case semaphore <- struct{}{}:
		}

		g.Go(func() error {
			defer func() { <-semaphore }()

			texts := make([]string, len(batch))
			for i := range batch {
				texts[i] = batch[i].Text
			}

			out, err := embedder.EmbedTexts(gctx, emb, texts, idx.cfg.Retry)
			if err != nil {
				return err
			}
			failed := int32(out.Failed())
			idx.embedded.Add(int32(len(batch)) - failed)
			idx.dropped.Add(failed)
			outcomes[b] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// merge reassembles batch outcomes in chunk order, dropping chunks that failed to embed
func (idx *Indexer) merge(chunks []types.Chunk, outcomes []*embedder.Outcome, stats *Statistics) ([]types.Chunk, []types.Vector) {
	kept := make([]types.Chunk, 0, len(chunks))
	vectors := make([]types.Vector, 0, len(chunks))

	i := 0
	for _, out := range outcomes {
		for j, e := range out.Embeddings {
			chunk := chunks[i]
			i++
			if err := out.Errors[j]; err != nil {
				idx.logger.Warn("dropping chunk",
					slog.String("chunk_id", chunk.ID),
					slog.String("path", chunk.DocumentPath),
					slog.Int("offset", chunk.StartOffset),
					slog.Any("error", err))
				stats.addWarning(fmt.Sprintf("dropped chunk %s (%s@%d): %v", chunk.ID, chunk.DocumentPath, chunk.StartOffset, err))
				continue
			}
			kept = append(kept, chunk)
			vectors = append(vectors, embedder.ToVector(chunk.ID, e))
		}
	}
	return kept, vectors
}

func (s *Statistics) addWarning(msg string) {
	if len(s.Warnings) < maxWarnings {
		s.Warnings = append(s.Warnings, msg)
	}
}
