// Package types provides shared type definitions for the code companion.
//
// This package defines the domain types that flow through the ingestion and
// retrieval pipeline, and the sentinel errors every component wraps.
//
// # Core Types
//
// Document is one collected file decoded to text:
//
//	doc := types.Document{Path: "cmd/main.go", Text: src}
//
// Chunk is an overlapping slice of a document. Its ID is a stable hash of the
// document path and start offset, so re-ingesting unchanged input yields the
// same ids:
//
//	chunk := types.Chunk{DocumentPath: doc.Path, StartOffset: 800, Text: text}
//	chunk.ComputeID()
//
// Vector is the embedding of one chunk. All vectors in one index share the
// same Dim and Model:
//
//	vec := types.NewVector(chunk.ID, values, "local/feature-hash-v1")
//
// SearchResult pairs a chunk with its similarity score, ranked from 1.
//
// # Errors
//
// Components wrap the sentinels declared in errors.go, so callers classify
// failures with errors.Is:
//
//	if errors.Is(err, types.ErrNotReady) {
//	    // nothing ingested yet
//	}
package types
