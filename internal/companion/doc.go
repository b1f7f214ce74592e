// Package companion wires the ingestion and retrieval components into one
// session object used by the command line and the MCP server.
//
// # Basic Usage
//
//	cfg, _ := config.Load("")
//	svc, err := companion.New(ctx, cfg, companion.Deps{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	defer svc.Close()
//
//	if _, err := svc.Ingest(ctx, "/path/to/repo", nil); err != nil {
//	    return err
//	}
//	ans, err := svc.Ask(ctx, "How is configuration loaded?")
//
// # Session States
//
// A session starts empty. A successful ingest with at least one chunk makes
// it ready; an ingest with no chunks returns it to empty. Questions asked in
// the empty state fail with types.ErrNotReady.
//
// The embedder is loaded on first use and released by Close. When no answer
// generator is configured, Ask returns the retrieved sources together with
// answer.ErrNoGenerator.
package companion
