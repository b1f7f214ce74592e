// Package embedder maps chunk text to vector embeddings.
//
// Four providers implement the Embedder interface: an offline local
// feature-hashing model (the default), OpenAI, Gemini and Jina AI. Remote
// providers share an in-memory LRU cache keyed by content hash, and any
// embedder can be wrapped by NewStoreBacked to persist vectors in a Store.
//
// # Basic Usage
//
//	h := embedder.NewHandle(embedder.LoaderFor(embedder.Config{Provider: "local"}))
//	defer h.Release()
//
//	emb, err := h.Get(ctx)
//	if err != nil {
//	    return err
//	}
//
//	out, err := embedder.EmbedTexts(ctx, emb, texts, embedder.DefaultRetryConfig())
//	if err != nil {
//	    return err // cancelled
//	}
//	for i, e := range out.Embeddings {
//	    if out.Errors[i] != nil {
//	        continue // dropped
//	    }
//	    use(e.Vector)
//	}
//
// # Failure Handling
//
// EmbedTexts retries the batch with exponential backoff and a per-attempt
// timeout. If the batch still fails, each text is retried on its own and
// the texts that keep failing are reported in Outcome.Errors.
//
// # Identity
//
// Identity(e) combines provider and model. Vectors from different identities
// are not comparable, and the vector index refuses to mix them.
package embedder
