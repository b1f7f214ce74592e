// Package logging builds the process's log/slog logger. Output goes to the
// writer the caller chooses; the MCP server passes os.Stderr because stdout
// carries the protocol.
package logging
