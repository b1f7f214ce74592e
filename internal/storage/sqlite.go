package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// MemoryPath selects a private in-memory database
const MemoryPath = ":memory:"

// maxParams keeps IN lists under SQLite's host parameter limit
const maxParams = 500

var (
	// ErrCorruptVector is returned when a stored blob does not match its dimension
	ErrCorruptVector = errors.New("corrupt stored vector")
)

// IdentityStats summarizes cached embeddings for one embedder identity
type IdentityStats struct {
	Identity  string
	Count     int
	Dimension int
}

// SQLiteStore persists embeddings in SQLite, keyed by embedder identity and content hash
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// One connection: a second one would see a different :memory: database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if dbPath != MemoryPath {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	return db, nil
}

// Open opens or creates an embedding store. An empty path keeps the store in memory.
func Open(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = MemoryPath
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Path returns the database location
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetEmbeddings returns the stored vectors among hashes. Missing hashes are absent from the map.
func (s *SQLiteStore) GetEmbeddings(ctx context.Context, identity string, hashes []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(hashes))

	for start := 0; start < len(hashes); start += maxParams {
		end := start + maxParams
		if end > len(hashes) {
			end = len(hashes)
		}
		part := hashes[start:end]

		args := make([]interface{}, 0, len(part)+1)
		args = append(args, identity)
		for _, h := range part {
			args = append(args, h)
		}

		query := `
			SELECT content_hash, dimension, vector
			FROM embedding_cache
			WHERE identity = ? AND content_hash IN (` + placeholders(len(part)) + `)
		`
		if err := s.scanVectors(ctx, query, args, out); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (s *SQLiteStore) scanVectors(ctx context.Context, query string, args []interface{}, out map[string][]float32) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var hash string
		var dim int
		var blob []byte
		if err := rows.Scan(&hash, &dim, &blob); err != nil {
			return fmt.Errorf("failed to scan embedding: %w", err)
		}
		vec, err := decodeVector(blob, dim)
		if err != nil {
			return fmt.Errorf("hash %s: %w", hash, err)
		}
		out[hash] = vec
	}
	return rows.Err()
}

// PutEmbeddings upserts vectors in a single transaction
func (s *SQLiteStore) PutEmbeddings(ctx context.Context, identity string, entries map[string][]float32) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embedding_cache (identity, content_hash, dimension, vector, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(identity, content_hash) DO UPDATE SET
			dimension = excluded.dimension,
			vector = excluded.vector,
			created_at = excluded.created_at
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	now := time.Now()
	for hash, vec := range entries {
		if _, err := stmt.ExecContext(ctx, identity, hash, len(vec), encodeVector(vec), now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to upsert embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit embeddings: %w", err)
	}
	return nil
}

// Stats reports cached embedding counts per identity, ordered by identity
func (s *SQLiteStore) Stats(ctx context.Context) ([]IdentityStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, COUNT(*), MAX(dimension)
		FROM embedding_cache
		GROUP BY identity
		ORDER BY identity
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var stats []IdentityStats
	for rows.Next() {
		var st IdentityStats
		if err := rows.Scan(&st.Identity, &st.Count, &st.Dimension); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// Purge deletes every cached embedding for identity and returns how many were removed
func (s *SQLiteStore) Purge(ctx context.Context, identity string) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM embedding_cache WHERE identity = ?", identity)
	if err != nil {
		return 0, fmt.Errorf("failed to purge embeddings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// encodeVector converts a float32 slice to a little-endian blob
func encodeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// decodeVector converts a blob back to a float32 slice of the recorded dimension
func decodeVector(blob []byte, dim int) ([]float32, error) {
	if len(blob) != dim*4 {
		return nil, fmt.Errorf("%w: %d bytes for dimension %d", ErrCorruptVector, len(blob), dim)
	}
	vector := make([]float32, dim)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}
