// Package indexer orchestrates the indexing pipeline and owns every
// mutation of the vector store and the code graph.
//
// # Pipeline
//
// For each file in a batch the indexer reads the content, compares its
// SHA-256 hash against the in-memory cache (unchanged files are skipped
// unless forced), parses it into chunks and reference edges, embeds the
// chunk texts, and commits the results: the store replacement runs in one
// transaction, the graph node is upserted, and only then is the cache hash
// updated. A failure at any step leaves the previous index state for that
// file intact and eligible for retry.
//
// # Concurrency
//
// Files within a batch are processed by an errgroup-bounded worker pool.
// Batches themselves are serialized by a mutex; callers that need
// debounced, deduplicated, single-flight batching put a queue.Queue in
// front of ProcessDocuments.
//
// # Error handling
//
// Per-file errors are recorded in Stats.Errors and logged; they never
// abort the batch. Only context cancellation stops processing early.
package indexer
