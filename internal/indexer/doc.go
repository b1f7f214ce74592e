// Package indexer runs the ingestion pipeline that turns a source tree into
// a published vector index generation.
//
// # Basic Usage
//
//	ix := vectorindex.New(vectorindex.MetricCosine)
//	idx, err := indexer.New(indexer.DefaultConfig(), handle, ix, logger)
//	if err != nil {
//	    return err
//	}
//
//	stats, err := idx.Ingest(ctx, "/path/to/repo", nil)
//	fmt.Printf("%d chunks, %d vectors, %d files skipped\n",
//	    stats.ChunkCount, stats.VectorCount, stats.SkippedFileCount)
//
// # Pipeline
//
//  1. Collect: walk the tree, filter by extension, decode text (collector)
//  2. Split: overlapping character chunks with stable ids (chunker)
//  3. Annotate: Go sources get the names of overlapping declarations (parser)
//  4. Embed: fixed-size batches on a bounded worker pool (embedder)
//  5. Build: validate and publish one immutable snapshot (vectorindex)
//
// Batches may finish in any order. Each result is stored under its batch
// number and merged in chunk order before the build.
//
// # Failure Policy
//
// Unreadable or undecodable files are skipped and counted. Chunks that still
// fail to embed after retries are dropped with a warning; if the dropped
// fraction exceeds Config.FailureThreshold the ingest fails with
// types.ErrBuild. Cancellation is observed between batches. In every failure
// case the previously published snapshot stays in place.
//
// An ingest that yields zero chunks resets the index, so later queries report
// types.ErrNotReady.
//
// # Concurrency
//
// IndexLock admits one ingest at a time. A concurrent Ingest returns
// types.ErrIngestInProgress immediately. Queries are never blocked.
package indexer
