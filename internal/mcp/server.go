package mcp

import (
	"context"
	"io"
	"log"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/codecompanion/internal/companion"
	"github.com/dshills/codecompanion/internal/indexer"
	"github.com/dshills/codecompanion/internal/retriever"
)

const (
	// ServerName is the MCP server name
	ServerName = "codecompanion"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Session is the part of companion.Service the tools drive
type Session interface {
	Ingest(ctx context.Context, root string, opts *indexer.Options) (*indexer.Statistics, error)
	Search(ctx context.Context, query string, k int) (*retriever.SearchResponse, error)
	Ask(ctx context.Context, question string) (*companion.Answer, error)
	Status(ctx context.Context) companion.Status
}

var _ Session = (*companion.Service)(nil)

// Server wraps the MCP server with the session it serves
type Server struct {
	mcp     *server.MCPServer
	session Session
	logger  *slog.Logger
}

// NewServer creates an MCP server exposing session as tools
func NewServer(session Session, version string, logger *slog.Logger) *Server {
	if version == "" {
		version = ServerVersion
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		session: session,
		logger:  logger,
	}
	s.registerTools()
	return s
}

// Serve speaks MCP over in/out and blocks until ctx is done or in is closed
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(&slogWriter{logger: s.logger}, "", 0))
	return stdio.Listen(ctx, in, out)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(ingestRepositoryTool(), s.handleIngestRepository)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(askQuestionTool(), s.handleAskQuestion)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// slogWriter forwards the transport's log.Logger output to slog
type slogWriter struct {
	logger *slog.Logger
}

func (w *slogWriter) Write(p []byte) (int, error) {
	msg := string(p)
	if n := len(msg); n > 0 && msg[n-1] == '\n' {
		msg = msg[:n-1]
	}
	w.logger.Error("mcp transport", slog.String("detail", msg))
	return len(p), nil
}
