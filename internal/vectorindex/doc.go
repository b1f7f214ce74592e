// Package vectorindex stores chunk vectors and answers k-nearest-neighbor queries.
//
// An index is a sequence of immutable snapshots. Build validates a complete
// vector set (one dimension, one embedder identity, one vector per chunk) and
// Index.Build publishes the result with a single atomic pointer store. Queries
// load the pointer once, so a rebuild never affects a query already running.
//
// Search is exact: every stored vector is scored and the best k are kept in a
// bounded heap. Equal scores are ordered by ascending chunk ID.
//
// # Basic Usage
//
//	ix := vectorindex.New(vectorindex.MetricCosine)
//	if _, err := ix.Build(chunks, vectors); err != nil {
//	    return err // previous snapshot still serves queries
//	}
//	results, err := ix.Query(queryVector, 4)
package vectorindex
