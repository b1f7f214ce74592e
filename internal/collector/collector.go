package collector

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"

	"github.com/dshills/codecompanion/pkg/types"
)

const (
	// DefaultMaxFileBytes skips files larger than 1 MiB
	DefaultMaxFileBytes = 1 << 20

	// binarySniffBytes is how much of a file is inspected for NUL bytes
	binarySniffBytes = 8 << 10
)

// DefaultExtensions mirrors the file types a code companion usually cares about
var DefaultExtensions = []string{
	".py", ".md", ".txt", ".json", ".html", ".css", ".js", ".ipynb",
	"Dockerfile", ".yml", ".yaml", ".go",
}

// DefaultIgnoreDirs are version-control and dependency directories never worth indexing
var DefaultIgnoreDirs = []string{
	".git", ".hg", ".svn", "node_modules", "vendor", "__pycache__", ".venv",
}

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// Options controls which files are collected and how they are decoded
type Options struct {
	// Extensions entries starting with "." match as case-sensitive suffixes;
	// other entries (e.g. "Dockerfile") match the exact file name or a ".<entry>" suffix.
	Extensions []string
	IgnoreDirs []string

	// MaxFileBytes <= 0 disables the size guard
	MaxFileBytes int64

	// DecodeFallback decodes non-UTF-8 text as Windows-1252 instead of skipping it
	DecodeFallback bool
}

// DefaultOptions returns the collector defaults
func DefaultOptions() Options {
	return Options{
		Extensions:     append([]string(nil), DefaultExtensions...),
		IgnoreDirs:     append([]string(nil), DefaultIgnoreDirs...),
		MaxFileBytes:   DefaultMaxFileBytes,
		DecodeFallback: true,
	}
}

// Result holds collected documents in lexicographic path order, plus skipped files
type Result struct {
	Documents []types.Document
	Skipped   []types.SkippedFile
}

// Collector walks a directory tree and turns matching files into Documents
type Collector struct {
	opts   Options
	ignore map[string]struct{}
	logger *slog.Logger
}

// New creates a Collector
func New(opts Options, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	ignore := make(map[string]struct{}, len(opts.IgnoreDirs))
	for _, dir := range opts.IgnoreDirs {
		ignore[dir] = struct{}{}
	}
	return &Collector{
		opts:   opts,
		ignore: ignore,
		logger: logger,
	}
}

// Collect walks rootPath and reads every matching file.
// Only a missing or unreadable root is fatal; individual files are skipped and reported.
func (c *Collector) Collect(ctx context.Context, rootPath string) (*Result, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDiscovery, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", types.ErrDiscovery, rootPath)
	}

	// WalkDir does not descend into a symlinked root; links below it are still skipped
	rootPath, err = filepath.EvalSymlinks(rootPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDiscovery, err)
	}

	result := &Result{}

	err = filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if walkErr != nil {
			if path == rootPath {
				return fmt.Errorf("%w: %v", types.ErrDiscovery, walkErr)
			}
			c.skip(result, rootPath, path, fmt.Errorf("%w: %v", types.ErrRead, walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != rootPath && c.ignored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !c.Matches(d.Name()) {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			c.skip(result, rootPath, path, types.ErrSymlink)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		doc, err := c.readDocument(rootPath, path, d)
		if err != nil {
			c.skip(result, rootPath, path, err)
			return nil
		}
		result.Documents = append(result.Documents, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// WalkDir is already lexical, but IDs depend on this order so it is enforced here.
	sort.Slice(result.Documents, func(i, j int) bool {
		return result.Documents[i].Path < result.Documents[j].Path
	})

	return result, nil
}

// Matches reports whether a file name is selected by the extension allowlist
func (c *Collector) Matches(name string) bool {
	for _, ext := range c.opts.Extensions {
		if ext == "" {
			continue
		}
		if strings.HasPrefix(ext, ".") {
			if strings.HasSuffix(name, ext) {
				return true
			}
			continue
		}
		if name == ext || strings.HasSuffix(name, "."+ext) {
			return true
		}
	}
	return false
}

func (c *Collector) ignored(dirName string) bool {
	_, ok := c.ignore[dirName]
	return ok
}

func (c *Collector) readDocument(rootPath, path string, d fs.DirEntry) (types.Document, error) {
	info, err := d.Info()
	if err != nil {
		return types.Document{}, fmt.Errorf("%w: %v", types.ErrRead, err)
	}
	if c.opts.MaxFileBytes > 0 && info.Size() > c.opts.MaxFileBytes {
		return types.Document{}, fmt.Errorf("%w: %d bytes", types.ErrFileTooLarge, info.Size())
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from walking the caller's root
	if err != nil {
		return types.Document{}, fmt.Errorf("%w: %v", types.ErrRead, err)
	}

	text, err := Decode(data, c.opts.DecodeFallback)
	if err != nil {
		return types.Document{}, err
	}

	return types.Document{
		Path: relativePath(rootPath, path),
		Text: text,
	}, nil
}

func (c *Collector) skip(result *Result, rootPath, path string, reason error) {
	rel := relativePath(rootPath, path)
	c.logger.Warn("skipping file", "path", rel, "reason", reason)
	result.Skipped = append(result.Skipped, types.SkippedFile{Path: rel, Reason: reason})
}

// Decode converts raw file bytes to text.
// UTF-8 is the default; a UTF-16 BOM selects UTF-16; otherwise non-UTF-8 input is
// decoded as Windows-1252 when fallback is enabled and rejected when it is not.
func Decode(data []byte, fallback bool) (string, error) {
	if bytes.HasPrefix(data, utf16LEBOM) || bytes.HasPrefix(data, utf16BEBOM) {
		dec := xunicode.UTF16(xunicode.LittleEndian, xunicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return "", fmt.Errorf("%w: utf-16: %v", types.ErrDecode, err)
		}
		return string(out), nil
	}

	sniff := data
	if len(sniff) > binarySniffBytes {
		sniff = sniff[:binarySniffBytes]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return "", types.ErrBinaryFile
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	if !fallback {
		return "", fmt.Errorf("%w: invalid utf-8", types.ErrDecode)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: windows-1252: %v", types.ErrDecode, err)
	}
	return string(out), nil
}

func relativePath(rootPath, path string) string {
	rel, err := filepath.Rel(rootPath, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}
