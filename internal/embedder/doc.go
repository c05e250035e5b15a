// Package embedder turns code chunk text into vector embeddings.
//
// Three providers are supported: OpenAI (hosted API), Ollama (local HTTP
// server), and a deterministic hash-based provider used for offline
// operation and tests. All providers share an LRU cache keyed by content
// hash and retry transient failures with exponential backoff.
//
// Use New to build a provider from explicit configuration, or NewFromEnv
// to auto-detect one from the environment:
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	vec, err := emb.Embed(ctx, "func ParseFile(path string) error { ... }")
//
// Batch embedding reduces round trips when indexing many chunks at once:
//
//	vectors, err := emb.EmbedBatch(ctx, texts)
package embedder
