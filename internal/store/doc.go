// Package store defines the similarity-searchable record store consumed by
// the indexing pipeline and the search fusion engine.
//
// The store holds two logical collections, each with one record per file
// identity under a namespaced key:
//
//	file_metadata: "meta-<identity>"  -> rendered metadata text + attributes
//	file_content:  "content-<identity>" -> extracted file content
//
// # Contract
//
// Upsert and Delete are idempotent: re-upserting replaces the record,
// deleting an absent key succeeds. Query returns cosine distances in
// [0, 2] with 0 meaning identical. Implementations must be safe for
// concurrent use; the pipeline calls them from multiple workers without
// additional locking.
//
// # Implementations
//
// Memory embeds records with an Embedder and ranks by in-process cosine
// distance. Intended for single-node deployments and tests.
//
//	st := store.NewMemory(emb)
//	_ = st.Upsert(ctx, store.CollectionMetadata, store.MetaKey(id), text, attrs)
//	hits, _ := st.Query(ctx, store.CollectionMetadata, "quarterly report", 10)
//
// Qdrant speaks the Qdrant REST API, creating cosine collections on
// startup. Record keys map to deterministic UUIDv5 point IDs because
// Qdrant does not accept arbitrary string IDs.
//
//	st, err := store.NewQdrant(ctx, store.QdrantConfig{URL: "http://localhost:6333"}, emb)
package store
