package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/codecompanion/internal/answer"
	"github.com/dshills/codecompanion/internal/chunker"
	"github.com/dshills/codecompanion/internal/indexer"
	"github.com/dshills/codecompanion/internal/retriever"
	"github.com/dshills/codecompanion/pkg/types"
)

// MaxSearchLimit bounds the limit argument of search_code
const MaxSearchLimit = 100

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeRepositoryNotFound = -32001 // Path cannot be walked
	ErrorCodeIngestInProgress   = -32002 // Another ingestion is already running
	ErrorCodeNotReady           = -32003 // Nothing has been ingested yet
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
	ErrorCodeModelMismatch      = -32005 // Embedder no longer matches the index
	ErrorCodeEmbeddingFailed    = -32006 // Embedding provider failed
)

// handleIngestRepository handles the ingest_repository tool invocation
func (s *Server) handleIngestRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	opts, err := ingestOptions(args)
	if err != nil {
		return nil, err
	}

	stats, err := s.session.Ingest(ctx, path, opts)
	if err != nil {
		return nil, toMCPError("ingestion failed", err)
	}

	response := map[string]interface{}{
		"indexed":         stats.ChunkCount > 0,
		"files_collected": stats.FilesCollected,
		"files_skipped":   stats.SkippedFileCount,
		"chunks_created":  stats.ChunkCount,
		"vectors_stored":  stats.VectorCount,
		"chunks_dropped":  stats.DroppedChunks,
		"generation":      stats.Generation,
		"duration_ms":     stats.Duration.Milliseconds(),
	}
	if len(stats.Warnings) > 0 {
		warningCount := len(stats.Warnings)
		if warningCount > 5 {
			response["warnings"] = stats.Warnings[:5]
			response["warning_count"] = warningCount
		} else {
			response["warnings"] = stats.Warnings
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, err := requireText(args, "query")
	if err != nil {
		return nil, err
	}

	limit := getIntDefault(args, "limit", retriever.DefaultTopK)
	if limit < 1 || limit > MaxSearchLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", MaxSearchLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	resp, err := s.session.Search(ctx, query, limit)
	if err != nil {
		return nil, toMCPError("search failed", err)
	}

	response := map[string]interface{}{
		"query":         query,
		"results":       formatResults(resp.Results),
		"total_results": resp.TotalResults,
		"generation":    resp.Generation,
		"duration_ms":   resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleAskQuestion handles the ask_question tool invocation
func (s *Server) handleAskQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	question, err := requireText(args, "question")
	if err != nil {
		return nil, err
	}

	ans, err := s.session.Ask(ctx, question)
	if ans == nil {
		return nil, toMCPError("question failed", err)
	}

	response := map[string]interface{}{
		"question":    question,
		"sources":     formatResults(ans.Sources),
		"duration_ms": ans.Duration.Milliseconds(),
	}
	switch {
	case errors.Is(err, answer.ErrNoGenerator):
		response["answer"] = nil
		response["message"] = "No answer generator is configured; returning retrieved context only."
	case err != nil:
		s.logger.Warn("answer generation failed", slog.Any("error", err))
		response["answer"] = nil
		response["message"] = "Answer generation failed: " + err.Error()
	default:
		response["answer"] = ans.Text
		response["generator"] = ans.Generator
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.session.Status(ctx)

	index := map[string]interface{}{
		"ready":      st.Index.Ready,
		"generation": st.Index.Generation,
		"size":       st.Index.Size,
		"dimension":  st.Index.Dim,
		"model":      st.Index.Model,
		"metric":     string(st.Index.Metric),
	}
	if !st.Index.BuiltAt.IsZero() {
		index["built_at"] = st.Index.BuiltAt.Format(time.RFC3339)
	}

	response := map[string]interface{}{
		"state":           st.State,
		"root":            st.Root,
		"embedder_loaded": st.EmbedderLoaded,
		"generator":       st.Generator,
		"index":           index,
	}
	if st.Progress.Running {
		response["progress"] = map[string]interface{}{
			"total_chunks":    st.Progress.TotalChunks,
			"embedded_chunks": st.Progress.EmbeddedChunks,
			"dropped_chunks":  st.Progress.DroppedChunks,
			"elapsed_ms":      time.Since(st.Progress.StartTime).Milliseconds(),
		}
	}
	if st.LastIngest != nil {
		response["last_ingest"] = map[string]interface{}{
			"at":              st.LastIngestAt.Format(time.RFC3339),
			"files_collected": st.LastIngest.FilesCollected,
			"files_skipped":   st.LastIngest.SkippedFileCount,
			"chunks":          st.LastIngest.ChunkCount,
			"vectors":         st.LastIngest.VectorCount,
			"dropped":         st.LastIngest.DroppedChunks,
		}
	}
	if len(st.Cache) > 0 {
		cache := make([]map[string]interface{}, 0, len(st.Cache))
		for _, c := range st.Cache {
			cache = append(cache, map[string]interface{}{
				"identity":  c.Identity,
				"count":     c.Count,
				"dimension": c.Dimension,
			})
		}
		response["embedding_cache"] = cache
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// toMCPError maps a session error onto its protocol code
func toMCPError(message string, err error) error {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, types.ErrNotReady):
		code = ErrorCodeNotReady
		message = "no repository has been ingested; call ingest_repository first"
	case errors.Is(err, types.ErrIngestInProgress):
		code = ErrorCodeIngestInProgress
	case errors.Is(err, retriever.ErrEmptyQuery):
		code = ErrorCodeEmptyQuery
	case errors.Is(err, types.ErrModelMismatch):
		code = ErrorCodeModelMismatch
	case errors.Is(err, types.ErrDiscovery):
		code = ErrorCodeRepositoryNotFound
	case errors.Is(err, types.ErrEmbedding), errors.Is(err, types.ErrBuild):
		code = ErrorCodeEmbeddingFailed
	case errors.Is(err, types.ErrInvalidConfig):
		code = ErrorCodeInvalidParams
	}
	return newMCPError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

func requireText(args map[string]interface{}, key string) (string, error) {
	value, ok := args[key].(string)
	if !ok || value == "" {
		return "", newMCPError(ErrorCodeEmptyQuery, key+" parameter is required and cannot be empty", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return value, nil
}

func ingestOptions(args map[string]interface{}) (*indexer.Options, error) {
	var opts indexer.Options

	if raw, ok := args["extensions"].([]interface{}); ok {
		for _, v := range raw {
			ext, ok := v.(string)
			if !ok || ext == "" {
				return nil, newMCPError(ErrorCodeInvalidParams, "extensions must be non-empty strings", map[string]interface{}{
					"param": "extensions",
				})
			}
			opts.Extensions = append(opts.Extensions, ext)
		}
	}

	_, hasSize := args["chunk_size"]
	_, hasOverlap := args["chunk_overlap"]
	if hasSize || hasOverlap {
		cfg := chunker.DefaultConfig()
		cfg.MaxChunkLength = getIntDefault(args, "chunk_size", cfg.MaxChunkLength)
		cfg.OverlapLength = getIntDefault(args, "chunk_overlap", cfg.OverlapLength)
		if err := cfg.Validate(); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid chunking parameters", map[string]interface{}{
				"param":  "chunk_size",
				"reason": err.Error(),
			})
		}
		opts.Chunking = &cfg
	}

	return &opts, nil
}

func formatResults(results []types.SearchResult) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		entry := map[string]interface{}{
			"rank":         r.Rank,
			"score":        r.Score,
			"path":         r.Chunk.DocumentPath,
			"start_offset": r.Chunk.StartOffset,
			"end_offset":   r.Chunk.EndOffset,
			"chunk_id":     r.Chunk.ID,
			"content":      r.Chunk.Text,
		}
		if len(r.Chunk.Symbols) > 0 {
			entry["symbols"] = r.Chunk.Symbols
		}
		out = append(out, entry)
	}
	return out
}

// validatePath checks that path is an absolute, readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
