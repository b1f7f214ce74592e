package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
)

// Chunk is a bounded, possibly overlapping slice of a Document and the unit of retrieval.
//
// Offsets are measured in user-perceived characters (grapheme clusters), not bytes.
type Chunk struct {
	// Identification
	ID           string // Stable hash of (DocumentPath, StartOffset)
	DocumentPath string
	Index        int // Ordinal within the document

	// Location
	StartOffset int
	EndOffset   int // Exclusive
	ByteStart   int // Byte span within the document text
	ByteEnd     int

	// Content
	Text string

	// Names of Go declarations overlapping this chunk, if any
	Symbols []string
}

// NewChunkID derives the chunk identity from its document path and start offset.
// Identical input always yields the identical id.
func NewChunkID(documentPath string, startOffset int) string {
	h := sha256.New()
	h.Write([]byte(documentPath))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(startOffset)))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// ComputeID sets ID from DocumentPath and StartOffset
func (c *Chunk) ComputeID() {
	c.ID = NewChunkID(c.DocumentPath, c.StartOffset)
}

// Length returns the span length in characters
func (c *Chunk) Length() int {
	return c.EndOffset - c.StartOffset
}

// Validate checks that the chunk is internally consistent
func (c *Chunk) Validate() error {
	if c.Text == "" {
		return errors.New("chunk text cannot be empty")
	}
	if c.DocumentPath == "" {
		return errors.New("document path is required")
	}
	if c.StartOffset < 0 || c.EndOffset <= c.StartOffset {
		return errors.New("chunk span must be non-empty and start at or after 0")
	}
	if c.ID != NewChunkID(c.DocumentPath, c.StartOffset) {
		return errors.New("chunk id does not match path and start offset")
	}
	return nil
}
