package chunker

import (
	"fmt"

	"github.com/rivo/uniseg"

	"github.com/dshills/codecompanion/pkg/types"
)

const (
	// DefaultMaxChunkLength is the maximum chunk length in characters
	DefaultMaxChunkLength = 1000

	// DefaultOverlapLength is how many characters consecutive chunks share
	DefaultOverlapLength = 200
)

// Config holds the chunk boundary policy
type Config struct {
	MaxChunkLength int
	OverlapLength  int
}

// DefaultConfig returns the default boundary policy (1000 characters, 200 overlap)
func DefaultConfig() Config {
	return Config{
		MaxChunkLength: DefaultMaxChunkLength,
		OverlapLength:  DefaultOverlapLength,
	}
}

// Validate enforces 0 <= OverlapLength < MaxChunkLength
func (c Config) Validate() error {
	if c.MaxChunkLength <= 0 {
		return fmt.Errorf("%w: max chunk length must be positive, got %d", types.ErrInvalidConfig, c.MaxChunkLength)
	}
	if c.OverlapLength < 0 || c.OverlapLength >= c.MaxChunkLength {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d",
			types.ErrInvalidConfig, c.MaxChunkLength, c.OverlapLength)
	}
	return nil
}

// Stride is the distance between consecutive chunk starts
func (c Config) Stride() int {
	return c.MaxChunkLength - c.OverlapLength
}

// Chunker splits documents into overlapping fixed-width chunks
type Chunker struct {
	cfg Config
}

// New creates a Chunker, rejecting an invalid boundary policy
func New(cfg Config) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{cfg: cfg}, nil
}

// Config returns the boundary policy in use
func (c *Chunker) Config() Config {
	return c.cfg
}

// Split divides a document into chunks.
//
// Starting at offset 0 each chunk spans [start, min(start+MaxChunkLength, length)),
// and start advances by MaxChunkLength-OverlapLength until it reaches the end.
// Offsets count grapheme clusters, so a chunk never splits a multi-byte character
// or a combining sequence.
func (c *Chunker) Split(doc types.Document) []types.Chunk {
	bounds := characterBounds(doc.Text)
	length := len(bounds) - 1
	if length <= 0 {
		return nil
	}

	chunks := make([]types.Chunk, 0, length/c.cfg.Stride()+1)
	for start := 0; start < length; start += c.cfg.Stride() {
		end := start + c.cfg.MaxChunkLength
		if end > length {
			end = length
		}

		chunk := types.Chunk{
			DocumentPath: doc.Path,
			Index:        len(chunks),
			StartOffset:  start,
			EndOffset:    end,
			ByteStart:    bounds[start],
			ByteEnd:      bounds[end],
			Text:         doc.Text[bounds[start]:bounds[end]],
		}
		chunk.ComputeID()
		chunks = append(chunks, chunk)
	}

	return chunks
}

// SplitAll splits documents in order; the result preserves document order then start offset
func (c *Chunker) SplitAll(docs []types.Document) []types.Chunk {
	var chunks []types.Chunk
	for i := range docs {
		chunks = append(chunks, c.Split(docs[i])...)
	}
	return chunks
}

// characterBounds returns the byte offset of every character plus len(text).
// bounds[i] is where character i starts; bounds[len(bounds)-1] == len(text).
func characterBounds(text string) []int {
	bounds := make([]int, 0, len(text)+1)
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		from, _ := gr.Positions()
		bounds = append(bounds, from)
	}
	return append(bounds, len(text))
}

// CharacterCount returns the length of text in the unit chunk offsets use
func CharacterCount(text string) int {
	return uniseg.GraphemeClusterCount(text)
}
