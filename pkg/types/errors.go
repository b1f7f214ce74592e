package types

import "errors"

// Ingestion errors
var (
	// ErrDiscovery means the collection root is missing or unreadable; ingestion aborts.
	ErrDiscovery = errors.New("discovery failed")

	// File-level errors; the file is skipped and counted.
	ErrRead         = errors.New("file read failed")
	ErrDecode       = errors.New("file decode failed")
	ErrBinaryFile   = errors.New("binary file")
	ErrFileTooLarge = errors.New("file exceeds size limit")
	ErrSymlink      = errors.New("symbolic link not followed")

	// ErrEmbedding is a single-text embedding failure; the chunk is dropped.
	ErrEmbedding = errors.New("embedding failed")

	// ErrBuild means too many chunks failed to embed; the build is aborted.
	ErrBuild = errors.New("build failed")

	// ErrIngestInProgress is returned when a second ingest starts before the first finishes.
	ErrIngestInProgress = errors.New("ingest already in progress")

	ErrInvalidConfig = errors.New("invalid configuration")
)

// Index errors
var (
	ErrIndexBuild        = errors.New("index build failed")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrModelMismatch     = errors.New("embedding model mismatch")
	ErrEmptyIndex        = errors.New("no vectors to index")

	// ErrNotReady means nothing has been ingested, as opposed to "no matches".
	ErrNotReady = errors.New("index not ready")
)

// Search result errors
var (
	ErrInvalidChunkID = errors.New("invalid chunk ID")
	ErrInvalidRank    = errors.New("rank must be >= 1")
	ErrEmptyContent   = errors.New("content cannot be empty")
)
