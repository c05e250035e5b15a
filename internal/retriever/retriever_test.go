package retriever

import (
	"context"
	"crypto/sha256"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas-ai/codeatlas/internal/embedder"
	"github.com/codeatlas-ai/codeatlas/internal/graph"
	"github.com/codeatlas-ai/codeatlas/internal/store"
)

type fixture struct {
	emb   embedder.Embedder
	store store.Store
	graph *graph.Graph
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	emb, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)

	return &fixture{emb: emb, store: s, graph: graph.New()}
}

// seed stores one chunk per file whose vector is the local embedding of
// its content, so querying with the same text scores a perfect match.
func (f *fixture) seed(t *testing.T, path, content string) {
	t.Helper()
	ctx := context.Background()
	vec, err := f.emb.Embed(ctx, content)
	require.NoError(t, err)

	err = f.store.ReplaceFile(ctx, &store.FileRecord{
		Path:        path,
		ContentHash: sha256.Sum256([]byte(content)),
		Language:    "go",
	}, []*store.Entry{{
		ChunkID:     path,
		FilePath:    path,
		Content:     content,
		ContentHash: sha256.Sum256([]byte(content)),
		Vector:      vec,
		Dimension:   len(vec),
		Provider:    f.emb.Provider(),
		Model:       f.emb.Model(),
		StartLine:   1,
		EndLine:     1,
	}})
	require.NoError(t, err)
	f.graph.UpsertFile(path, nil, nil)
}

func (f *fixture) retriever(cap int) *Retriever {
	return New(Config{
		Embedder:     f.emb,
		Store:        f.store,
		Graph:        f.graph,
		ExpansionCap: cap,
		DisableCache: true,
	})
}

func TestRetrieve_ConfiguredTopKUsedWhenUnspecified(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a.go", "func Alpha() error")
	f.seed(t, "b.go", "func Beta() error")
	f.seed(t, "c.go", "func Gamma() error")

	r := New(Config{
		Embedder:     f.emb,
		Store:        f.store,
		Graph:        f.graph,
		TopK:         1,
		DisableCache: true,
	})
	assert.Equal(t, 1, r.TopK())

	result, err := r.Retrieve(context.Background(), "func Alpha() error", 0)
	require.NoError(t, err)
	assert.Len(t, result.Documents, 1)
}

func TestRetrieve_RanksMostSimilarFirst(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a.go", "func ParseConfig() error")
	f.seed(t, "b.go", "completely unrelated text about cooking")

	r := f.retriever(0)
	result, err := r.Retrieve(context.Background(), "func ParseConfig() error", 2)
	require.NoError(t, err)

	require.NotEmpty(t, result.Documents)
	assert.Equal(t, "a.go", result.Documents[0].Path)
	assert.Equal(t, 1, result.Documents[0].Rank)
	assert.InDelta(t, 1.0, result.Documents[0].Score, 1e-4)
	assert.False(t, result.Documents[0].Related)
}

func TestRetrieve_Deterministic(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a.go", "alpha content")
	f.seed(t, "b.go", "beta content")
	f.seed(t, "c.go", "gamma content")

	r := f.retriever(0)
	ctx := context.Background()

	first, err := r.Retrieve(ctx, "some query", 3)
	require.NoError(t, err)
	second, err := r.Retrieve(ctx, "some query", 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRetrieve_GraphExpansion(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a.go", "the query target content")
	f.seed(t, "b.go", "imported helper")
	f.graph.UpsertFile("a.go", nil, []string{"b.go"})

	r := f.retriever(0)
	result, err := r.Retrieve(context.Background(), "the query target content", 1)
	require.NoError(t, err)

	require.Len(t, result.Documents, 2)
	assert.Equal(t, "a.go", result.Documents[0].Path)
	assert.Equal(t, "b.go", result.Documents[1].Path)
	assert.True(t, result.Documents[1].Related)
	assert.Zero(t, result.Documents[1].Score)
	assert.Equal(t, []string{"a.go", "b.go"}, result.Paths)
}

func TestRetrieve_ExpansionCapBoundsResults(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "hub.go", "hub content matching the query")
	neighbors := []string{"n1.go", "n2.go", "n3.go", "n4.go"}
	for _, n := range neighbors {
		f.seed(t, n, "neighbor "+n)
	}
	f.graph.UpsertFile("hub.go", nil, neighbors)

	r := f.retriever(2)
	result, err := r.Retrieve(context.Background(), "hub content matching the query", 1)
	require.NoError(t, err)

	related := 0
	for _, doc := range result.Documents {
		if doc.Related {
			related++
		}
	}
	assert.Equal(t, 2, related)
}

func TestRetrieve_ExpansionSkipsUnstoredNodes(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a.go", "query content")
	// ghost.go exists in the graph but has no store entries.
	f.graph.UpsertFile("ghost.go", nil, nil)
	f.graph.UpsertFile("a.go", nil, []string{"ghost.go"})

	r := f.retriever(0)
	result, err := r.Retrieve(context.Background(), "query content", 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.go"}, result.Paths)
}

func TestRetrieve_OneDocumentPerFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	content1 := "func One() shared file"
	content2 := "func Two() shared file"
	vec1, err := f.emb.Embed(ctx, content1)
	require.NoError(t, err)
	vec2, err := f.emb.Embed(ctx, content2)
	require.NoError(t, err)

	entry := func(symbol, content string, vec []float32) *store.Entry {
		return &store.Entry{
			ChunkID: "shared.go#" + symbol, FilePath: "shared.go",
			SymbolName:  symbol,
			Content:     content,
			ContentHash: sha256.Sum256([]byte(content)),
			Vector:      vec, Dimension: len(vec),
			Provider: "local", Model: "test", StartLine: 1, EndLine: 1,
		}
	}
	require.NoError(t, f.store.ReplaceFile(ctx, &store.FileRecord{
		Path: "shared.go", ContentHash: sha256.Sum256([]byte("x")), Language: "go",
	}, []*store.Entry{
		entry("One", content1, vec1),
		entry("Two", content2, vec2),
	}))
	f.graph.UpsertFile("shared.go", nil, nil)

	r := f.retriever(0)
	result, err := r.Retrieve(ctx, content1, 5)
	require.NoError(t, err)

	require.Len(t, result.Documents, 1)
	assert.Equal(t, "One", result.Documents[0].SymbolName)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	f := newFixture(t)
	r := f.retriever(0)

	result, err := r.Retrieve(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Empty(t, result.Documents)
}

type failingEmbedder struct{ embedder.Embedder }

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("provider down")
}

func TestRetrieve_EmbedFailureDegradesToEmpty(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a.go", "content")

	r := New(Config{
		Embedder:     failingEmbedder{f.emb},
		Store:        f.store,
		Graph:        f.graph,
		DisableCache: true,
	})

	result, err := r.Retrieve(context.Background(), "query", 5)
	require.NoError(t, err, "read path must not surface transient errors")
	assert.Empty(t, result.Documents)
}

func TestRetrieve_CacheInvalidation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a.go", "cached query content")

	r := New(Config{Embedder: f.emb, Store: f.store, Graph: f.graph})
	ctx := context.Background()

	first, err := r.Retrieve(ctx, "cached query content", 1)
	require.NoError(t, err)
	require.NotEmpty(t, first.Documents)

	require.NoError(t, f.store.DeleteFile(ctx, "a.go"))

	stale, err := r.Retrieve(ctx, "cached query content", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, stale.Documents, "served from cache until invalidated")

	r.Invalidate()
	fresh, err := r.Retrieve(ctx, "cached query content", 1)
	require.NoError(t, err)
	assert.Empty(t, fresh.Documents)
}
