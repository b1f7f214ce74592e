// Package retriever resolves a natural-language question into ranked chunks.
//
// The question is embedded with the shared embedder handle and searched
// against the snapshot that is current when the request starts. A Retriever
// keeps no cache of its own.
//
// # Basic Usage
//
//	r := retriever.New(handle, index, retriever.Config{TopK: 4})
//	results, err := r.SimilaritySearch(ctx, "where is the config loaded?", 0)
//	switch {
//	case errors.Is(err, types.ErrNotReady):
//	    // nothing ingested yet
//	case err != nil:
//	    return err
//	}
//
// # Errors
//
//   - types.ErrNotReady: no snapshot is published
//   - types.ErrModelMismatch: the handle's embedder differs from the one the
//     snapshot was built with
//   - ErrEmptyQuery: blank question
//
// An index with content but no good match still returns its best k chunks;
// the caller decides what score is relevant.
package retriever
