// Package mcp implements the Model Context Protocol (MCP) server for CodeCompanion.
//
// The MCP server exposes four tools to AI assistants:
//   - ingest_repository: Index a local repository checkout
//   - search_code: Return the chunks most similar to a query
//   - ask_question: Answer a question from retrieved context
//   - get_status: Report index state and statistics
//
// # Basic Usage
//
// The MCP server is typically started via the serve command:
//
//	companion serve
//
// It then listens on stdin for MCP protocol messages and writes responses to
// stdout. Logs go to stderr.
//
// # Tool: ingest_repository
//
//	Request:
//	{
//	  "name": "ingest_repository",
//	  "arguments": {
//	    "path": "/path/to/repo",
//	    "extensions": [".py", ".md"],
//	    "chunk_size": 1000,
//	    "chunk_overlap": 200
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "files_collected": 42,
//	  "files_skipped": 3,
//	  "chunks_created": 318,
//	  "vectors_stored": 318,
//	  "chunks_dropped": 0,
//	  "generation": "0b6f...",
//	  "duration_ms": 5120
//	}
//
// Ingesting replaces the session index. An ingest that finds no chunks
// returns "indexed": false and leaves the session empty.
//
// # Tool: search_code
//
//	Request:
//	{
//	  "name": "search_code",
//	  "arguments": {"query": "where is the database opened", "limit": 4}
//	}
//
//	Response:
//	{
//	  "results": [
//	    {
//	      "rank": 1,
//	      "score": 0.82,
//	      "path": "app/db.py",
//	      "start_offset": 800,
//	      "end_offset": 1800,
//	      "content": "def connect(): ..."
//	    }
//	  ]
//	}
//
// # Tool: ask_question
//
// Returns the generated answer with its sources. When no generator is
// configured the sources are returned with "answer": null.
//
// # Error Handling
//
// Tool failures are returned as MCPError values with JSON-RPC style codes:
//   - -32602: Invalid params
//   - -32603: Internal error
//   - -32001: Repository not found
//   - -32002: Ingestion in progress
//   - -32003: Not ready (nothing ingested yet)
//   - -32004: Empty query
//   - -32005: Embedder does not match the index
//   - -32006: Embedding failed
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "codecompanion": {
//	      "command": "/usr/local/bin/companion",
//	      "args": ["serve"],
//	      "env": {
//	        "COMPANION_EMBEDDING_PROVIDER": "local",
//	        "GEMINI_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
package mcp
