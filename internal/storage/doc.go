// Package storage persists embedding vectors in SQLite so repeated ingestion
// of unchanged content skips the embedding provider.
//
// Vectors are keyed by embedder identity (provider/model) and the SHA-256 of
// the chunk text. The chunk index itself is never persisted here; it lives in
// memory for the life of a session.
//
// # Basic Usage
//
//	store, err := storage.Open(ctx, "") // in-memory
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	err = store.PutEmbeddings(ctx, "local/feature-hash-v1", map[string][]float32{
//	    hash: vector,
//	})
//	found, err := store.GetEmbeddings(ctx, "local/feature-hash-v1", []string{hash})
//
// # Build Modes
//
// The default build uses the pure Go driver modernc.org/sqlite. Building with
// the sqlite_vec tag switches to github.com/mattn/go-sqlite3, which needs CGO:
//
//	CGO_ENABLED=1 go build -tags "sqlite_vec" ./...
//
// # Schema
//
// Migrations are versioned with semantic versions and recorded in the
// schema_version table. ApplyMigrations is run by Open.
package storage
