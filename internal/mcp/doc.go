// Package mcp exposes the workspace index as MCP tools over stdio.
//
// # Tools
//
//   - get_index_status: whether the index exists, whether a sync is
//     running, and the list of indexed files
//   - build_index: scan the workspace and index every supported source
//     file; "force" bypasses the content-hash skip and "paths" re-embeds
//     an explicit file list instead of scanning
//   - delete_index: drop all indexed data
//   - delete_file: remove one file's vectors and graph edges
//   - query_related: natural-language query answered with top-K vector
//     hits plus one hop of import-graph expansion
//   - summarize_file: one-paragraph generated summary of an indexed
//     file's chunks; requires description generation to be enabled
//
// # Error handling
//
// Parameter problems return MCPError with JSON-RPC-style codes
// (ErrorCodeInvalidParams and friends). Transient read-path failures do
// not surface here at all: the retriever degrades them to empty result
// sets, so query_related only errors on malformed input.
//
// The server does not own its dependencies. The composition root in
// cmd/codeatlas builds the store, indexer, and retriever, wires the
// watcher and queue, and passes the finished pieces to NewServer.
package mcp
