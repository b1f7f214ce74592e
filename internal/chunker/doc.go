// Package chunker splits documents into overlapping text chunks.
//
// # Boundary Policy
//
// Chunks are fixed-width windows measured in characters, where a character is
// a grapheme cluster (what a reader perceives as one character). Starting at
// offset 0, each chunk spans
//
//	[start, min(start+MaxChunkLength, length))
//
// and the next chunk starts MaxChunkLength-OverlapLength characters later. The
// walk stops once start reaches the end of the text, so every chunk except
// possibly the last overlaps its successor by exactly OverlapLength characters
// and the union of chunk spans covers the whole document with no gap.
//
// For example a 2500 character document with MaxChunkLength 1000 and
// OverlapLength 200 yields chunks starting at 0, 800, 1600 and 2400; the last
// spans [2400, 2500).
//
// # Basic Usage
//
//	c, err := chunker.New(chunker.Config{MaxChunkLength: 1000, OverlapLength: 200})
//	if err != nil {
//	    return err // types.ErrInvalidConfig
//	}
//	for _, chunk := range c.Split(doc) {
//	    fmt.Printf("%s [%d,%d)\n", chunk.ID, chunk.StartOffset, chunk.EndOffset)
//	}
//
// # Identity
//
// Chunk ids hash the document path and start offset, so identical input
// yields identical ids across runs.
package chunker
