package types

// SearchResult is one ranked chunk returned for a query
type SearchResult struct {
	Chunk Chunk
	Score float64 // Higher is more similar
	Rank  int     // Position in result set (1-based)
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Chunk.ID == "" {
		return ErrInvalidChunkID
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.Chunk.Text == "" {
		return ErrEmptyContent
	}

	return nil
}

// Texts returns the chunk texts of results in rank order
func Texts(results []SearchResult) []string {
	texts := make([]string, len(results))
	for i := range results {
		texts[i] = results[i].Chunk.Text
	}
	return texts
}
