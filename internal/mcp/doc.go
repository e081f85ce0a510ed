// Package mcp is the stdio MCP front end of the file index.
//
// It exposes three tools:
//
//   - index_files: enqueue a full walk of the configured root; processing
//     is asynchronous, poll index_status for progress.
//   - search_files: run a fused metadata+content similarity search and
//     return the weighted ranking.
//   - index_status: report queue progress, worker outcome counters, and
//     recovery spool depth.
//
// stdout carries the MCP protocol, so all logging goes to stderr.
package mcp
