// Package types provides shared type definitions for the FileIndex MCP server.
//
// This package defines domain types used across multiple components of
// FileIndex: file metadata snapshots, processing tasks, processing outcomes,
// and weighted search results.
//
// # Core Types
//
// FileMetadata is an immutable snapshot of a file taken at processing time:
//
//	meta := &types.FileMetadata{
//	    Identity:   types.PathIdentity("/docs/report.pdf"),
//	    Name:       "report.pdf",
//	    Extension:  ".pdf",
//	    MIMEType:   "application/pdf",
//	    ModifiedAt: "2025-06-01T12:00:00Z",
//	}
//
// FileTask represents one unit of work for the processing pipeline:
//
//	task := types.FileTask{Kind: types.TaskIndex, Path: "/docs/report.pdf"}
//
// # File Identity
//
// Identities are derived from the file path, not its contents, so a path
// always maps to the same record across index refreshes and a rename
// produces a new identity:
//
//	id := types.PathIdentity("/docs/report.pdf") // hex SHA-256 of the path
//
// The identity is the idempotency key for store upserts: records are keyed
// "meta-<identity>" in the metadata collection and "content-<identity>" in
// the content collection.
//
// # Processing Outcomes
//
// Every processed task yields exactly one Outcome. Hidden and TooLarge are
// policy exclusions, Skipped is a successful no-op, and only Failure counts
// as a queue-level failure:
//
//	if outcome.Succeeded() {
//	    queue.Complete(task, true)
//	}
//
// # Search Results
//
// WeightedSearchResult carries both raw collection distances and the fused
// score used for ranking. Total scores are normalized to [0, 1], with higher
// values indicating better matches.
package types
