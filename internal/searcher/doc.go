// Package searcher implements the result-fusion search engine.
//
// A query runs against the metadata and content collections concurrently,
// overfetching each side so the merged ranking can still fill the
// requested limit. Hits are re-associated by file identity, cosine
// distances are normalized to similarities, and the two sides combine
// under fixed weights with metadata dominating. Responses are cached in a
// bounded LRU with a TTL.
package searcher
