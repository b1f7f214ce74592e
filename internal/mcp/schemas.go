package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/codecompanion/internal/retriever"
)

// ingestRepositoryTool returns the tool definition for ingest_repository
func ingestRepositoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_repository",
		Description: "Index a local repository checkout so questions can be asked about it. Replaces the current index.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the repository root",
				},
				"extensions": map[string]interface{}{
					"type":        "array",
					"description": "File extensions to include (e.g. \".py\", \"Dockerfile\"). Defaults to the configured allowlist.",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"chunk_size": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum chunk length in characters",
					"minimum":     1,
				},
				"chunk_overlap": map[string]interface{}{
					"type":        "integer",
					"description": "Characters shared between consecutive chunks (less than chunk_size)",
					"minimum":     0,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Return the indexed chunks most similar to a natural language query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     retriever.DefaultTopK,
					"minimum":     1,
					"maximum":     MaxSearchLimit,
				},
			},
			Required: []string{"query"},
		},
	}
}

// askQuestionTool returns the tool definition for ask_question
func askQuestionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question about the indexed repository using retrieved context",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question about the repository",
				},
			},
			Required: []string{"question"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index state, ingestion progress and embedding cache statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
