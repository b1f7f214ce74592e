package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dshills/codecompanion/internal/answer"
	"github.com/dshills/codecompanion/internal/companion"
	"github.com/dshills/codecompanion/internal/config"
	"github.com/dshills/codecompanion/internal/logging"
	"github.com/dshills/codecompanion/internal/mcp"
	"github.com/dshills/codecompanion/internal/storage"
	"github.com/dshills/codecompanion/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const usage = `Usage: companion [--config FILE] <command> [options]

Commands:
  serve                      Run the MCP server on stdio
  ask --root DIR "question"  Ingest DIR and answer one question

Flags:
  --version                  Print version information
  --config FILE              YAML configuration file (default $COMPANION_CONFIG_FILE)
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("companion", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	showVersion := global.Bool("version", false, "print version information")
	cfgPath := global.String("config", "", "YAML configuration file")
	if err := global.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "CodeCompanion\n")
		fmt.Fprintf(stdout, "Version: %s\n", version)
		fmt.Fprintf(stdout, "Build Time: %s\n", buildTime)
		fmt.Fprintf(stdout, "Build Mode: %s\n", storage.BuildMode)
		fmt.Fprintf(stdout, "SQLite Driver: %s\n", storage.DriverName)
		return 0
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return 2
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "configuration: %v\n", err)
		return 1
	}

	// stdout is reserved for the MCP protocol and command output
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch rest[0] {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "ask":
		err = ask(ctx, cfg, logger, rest[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		global.Usage()
		return 2
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		logger.Error("command failed", slog.String("command", rest[0]), slog.Any("error", err))
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("CodeCompanion MCP server starting",
		slog.String("version", version),
		slog.String("build_mode", storage.BuildMode),
		slog.String("driver", storage.DriverName))

	svc, err := companion.New(ctx, cfg, companion.Deps{Logger: logger})
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	server := mcp.NewServer(svc, version, logger)
	logger.Info("MCP server ready, listening on stdio")

	err = server.Serve(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func ask(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := fs.String("root", ".", "repository root to ingest")
	k := fs.Int("k", 0, "number of chunks to retrieve (default from configuration)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return fmt.Errorf("%w: a question is required", types.ErrInvalidConfig)
	}
	if *k > 0 {
		cfg.TopK = *k
	}

	svc, err := companion.New(ctx, cfg, companion.Deps{Logger: logger})
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	stats, err := svc.Ingest(ctx, *root, nil)
	if err != nil {
		return err
	}
	logger.Info("repository ingested",
		slog.String("root", *root),
		slog.Int("files", stats.FilesCollected),
		slog.Int("chunks", stats.ChunkCount))

	ans, err := svc.Ask(ctx, question)
	switch {
	case errors.Is(err, answer.ErrNoGenerator):
		fmt.Fprintln(stdout, "No answer generator configured. Most relevant context:")
	case err != nil:
		return err
	default:
		fmt.Fprintln(stdout, ans.Text)
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Sources:")
	}
	printSources(stdout, ans.Sources, ans.Text == "")
	return nil
}

func printSources(w io.Writer, sources []types.SearchResult, withContent bool) {
	for _, r := range sources {
		fmt.Fprintf(w, "%d. %s (offset %d, score %.3f)\n", r.Rank, r.Chunk.DocumentPath, r.Chunk.StartOffset, r.Score)
		if withContent {
			fmt.Fprintf(w, "%s\n\n", r.Chunk.Text)
		}
	}
}
