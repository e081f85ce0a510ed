// Package embedder generates vector embeddings for file metadata and content.
//
// Two providers are available:
//
//   - OpenAI-compatible: calls any /embeddings endpoint that speaks the
//     OpenAI request shape, with exponential-backoff retry.
//   - Local: deterministic hash-based vectors, no network required. Exact
//     duplicate texts map to identical vectors; used offline and in tests.
//
// Provider selection follows FILEINDEX_EMBED_PROVIDER, then available API
// keys, then falls back to local:
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	e, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "quarterly report",
//	})
//
// Embeddings are cached by content hash in an LRU cache, so re-indexing an
// unchanged tree does not re-call the provider.
package embedder
