// Package retriever answers related-code queries by combining vector
// similarity search with one hop of code graph expansion.
package retriever

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/codeatlas-ai/codeatlas/internal/embedder"
	"github.com/codeatlas-ai/codeatlas/internal/graph"
	"github.com/codeatlas-ai/codeatlas/internal/store"
	"github.com/codeatlas-ai/codeatlas/pkg/types"
)

const (
	// DefaultTopK is the vector hit count when the caller passes k <= 0.
	DefaultTopK = 8
	// DefaultExpansionCap bounds how many graph-expanded documents a
	// single query may add on top of its vector hits.
	DefaultExpansionCap = 8

	responseCacheSize = 256
)

// Retriever serves read-only related-code queries. Failures on the read
// path degrade to an empty result with a logged warning; the caller never
// sees a hard error for a transient embedding or store problem.
type Retriever struct {
	embedder embedder.Embedder
	store    store.Store
	graph    *graph.Graph
	logger   *zap.Logger

	topK         int
	expansionCap int
	cache        *lru.Cache[string, *types.RetrievalResult]
}

// Config contains retriever construction options.
type Config struct {
	Embedder     embedder.Embedder
	Store        store.Store
	Graph        *graph.Graph
	Logger *zap.Logger
	// TopK is the vector hit count used when a query does not name one.
	TopK         int
	ExpansionCap int
	// DisableCache turns off the response cache; useful in tests that
	// mutate the index between queries.
	DisableCache bool
}

// New creates a Retriever.
func New(cfg Config) *Retriever {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.ExpansionCap <= 0 {
		cfg.ExpansionCap = DefaultExpansionCap
	}

	r := &Retriever{
		embedder:     cfg.Embedder,
		store:        cfg.Store,
		graph:        cfg.Graph,
		logger:       cfg.Logger,
		topK:         cfg.TopK,
		expansionCap: cfg.ExpansionCap,
	}
	if !cfg.DisableCache {
		r.cache, _ = lru.New[string, *types.RetrievalResult](responseCacheSize)
	}
	return r
}

// TopK returns the configured default vector hit count.
func (r *Retriever) TopK() int {
	return r.topK
}

// Invalidate drops cached query responses. Call after any index mutation.
func (r *Retriever) Invalidate() {
	if r.cache != nil {
		r.cache.Purge()
	}
}

// Retrieve embeds the query, takes the top-k most similar chunks, expands
// each hit one hop through the code graph, and merges the two sets. The
// result holds at most one document per file, best rank first.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (*types.RetrievalResult, error) {
	if query == "" {
		return &types.RetrievalResult{}, nil
	}
	if k <= 0 {
		k = r.topK
	}

	cacheKey := fmt.Sprintf("%d|%s", k, query)
	if r.cache != nil {
		if cached, ok := r.cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed", zap.Error(err))
		return &types.RetrievalResult{}, nil
	}

	hits, err := r.store.Search(ctx, vector, k)
	if err != nil {
		r.logger.Warn("vector search failed", zap.Error(err))
		return &types.RetrievalResult{}, nil
	}

	result := r.merge(ctx, hits)
	if r.cache != nil {
		r.cache.Add(cacheKey, result)
	}
	return result, nil
}

// merge builds the final document list: one document per file, vector
// hits first in score order, then graph expansions in hit order, capped.
func (r *Retriever) merge(ctx context.Context, hits []store.Hit) *types.RetrievalResult {
	result := &types.RetrievalResult{}
	seen := make(map[string]struct{})

	for _, hit := range hits {
		if _, ok := seen[hit.Entry.FilePath]; ok {
			continue
		}
		seen[hit.Entry.FilePath] = struct{}{}
		result.Documents = append(result.Documents, types.Document{
			Path:       hit.Entry.FilePath,
			SymbolName: hit.Entry.SymbolName,
			Content:    hit.Entry.Content,
			StartLine:  hit.Entry.StartLine,
			EndLine:    hit.Entry.EndLine,
			Score:      hit.Score,
		})
	}

	expanded := 0
	for _, hit := range hits {
		if expanded >= r.expansionCap {
			break
		}
		for _, relPath := range r.graph.Related(hit.Entry.FilePath, 1) {
			if expanded >= r.expansionCap {
				break
			}
			if _, ok := seen[relPath]; ok {
				continue
			}
			doc, ok := r.fileDocument(ctx, relPath)
			if !ok {
				continue
			}
			seen[relPath] = struct{}{}
			result.Documents = append(result.Documents, doc)
			expanded++
		}
	}

	for i := range result.Documents {
		result.Documents[i].Rank = i + 1
		result.Paths = append(result.Paths, result.Documents[i].Path)
	}
	return result
}

// fileDocument represents a graph-expanded file by its first stored
// chunk. Files with no stored entries (graph node without store rows)
// are skipped.
func (r *Retriever) fileDocument(ctx context.Context, path string) (types.Document, bool) {
	entries, err := r.store.EntriesByFile(ctx, path)
	if err != nil {
		r.logger.Warn("load expanded file failed", zap.String("path", path), zap.Error(err))
		return types.Document{}, false
	}
	if len(entries) == 0 {
		return types.Document{}, false
	}

	first := entries[0]
	return types.Document{
		Path:       path,
		SymbolName: first.SymbolName,
		Content:    first.Content,
		StartLine:  first.StartLine,
		EndLine:    first.EndLine,
		Related:    true,
	}, true
}
