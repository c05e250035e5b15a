package graph

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas-ai/codeatlas/pkg/types"
)

func sym(name string) types.Symbol {
	return types.Symbol{
		Name: name,
		Kind: types.KindFunction,
		Range: types.Range{
			Start: types.Position{Line: 1},
			End:   types.Position{Line: 2},
		},
	}
}

func TestUpsertFile_ReplacesEdges(t *testing.T) {
	g := New()
	g.UpsertFile("a.go", nil, []string{"b.go", "c.go"})
	g.UpsertFile("b.go", nil, nil)
	g.UpsertFile("c.go", nil, nil)

	assert.ElementsMatch(t, []string{"b.go", "c.go"}, g.Related("a.go", 1))

	// Re-upsert with a smaller edge set: old fan-out must be gone.
	g.UpsertFile("a.go", nil, []string{"b.go"})
	assert.Equal(t, []string{"b.go"}, g.Related("a.go", 1))
	assert.NotContains(t, g.Related("c.go", 1), "a.go")
}

func TestRelated_BothDirections(t *testing.T) {
	g := New()
	g.UpsertFile("a.go", nil, []string{"b.go"})
	g.UpsertFile("b.go", nil, nil)

	assert.Equal(t, []string{"b.go"}, g.Related("a.go", 1))
	assert.Equal(t, []string{"a.go"}, g.Related("b.go", 1), "referenced-by counts as related")
}

func TestRelated_Depth(t *testing.T) {
	g := New()
	g.UpsertFile("a.go", nil, []string{"b.go"})
	g.UpsertFile("b.go", nil, []string{"c.go"})
	g.UpsertFile("c.go", nil, nil)

	assert.Equal(t, []string{"b.go"}, g.Related("a.go", 1))
	assert.Equal(t, []string{"b.go", "c.go"}, g.Related("a.go", 2))
	assert.Equal(t, []string{"b.go"}, g.Related("a.go", 0), "depth <= 0 defaults to 1")
}

func TestRelated_UnindexedTargetsInvisible(t *testing.T) {
	g := New()
	g.UpsertFile("a.go", nil, []string{"missing.go"})

	assert.Empty(t, g.Related("a.go", 1))

	// Once the target is indexed the recorded edge becomes visible.
	g.UpsertFile("missing.go", nil, nil)
	assert.Equal(t, []string{"missing.go"}, g.Related("a.go", 1))
}

func TestRemoveFile_PrunesAllEdges(t *testing.T) {
	g := New()
	g.UpsertFile("a.go", nil, []string{"b.go"})
	g.UpsertFile("b.go", nil, []string{"c.go"})
	g.UpsertFile("c.go", nil, nil)

	g.RemoveFile("b.go")

	assert.False(t, g.Has("b.go"))
	for _, path := range g.Files() {
		assert.NotContains(t, g.Related(path, 2), "b.go",
			"no traversal from %s may reach a removed node", path)
	}

	// Idempotent.
	g.RemoveFile("b.go")
	assert.Equal(t, 2, g.Len())
}

func TestSymbolTable_Copies(t *testing.T) {
	g := New()
	g.UpsertFile("a.go", []types.Symbol{sym("Alpha")}, nil)

	table := g.SymbolTable()
	require.Len(t, table["a.go"], 1)
	table["a.go"][0].Name = "mutated"

	fresh := g.SymbolTable()
	assert.Equal(t, "Alpha", fresh["a.go"][0].Name, "callers must not mutate graph state")
}

func TestGraph_ConcurrentReadersDuringWrites(t *testing.T) {
	g := New()
	for i := 0; i < 10; i++ {
		g.UpsertFile(fmt.Sprintf("f%d.go", i), nil, nil)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.UpsertFile(fmt.Sprintf("f%d.go", i), nil, []string{fmt.Sprintf("f%d.go", (i+1)%10)})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = g.Related("f0.go", 2)
				_ = g.Files()
			}
		}()
	}
	wg.Wait()
}

func TestReset(t *testing.T) {
	g := New()
	g.UpsertFile("a.go", []types.Symbol{sym("A")}, []string{"b.go"})
	g.Reset()

	assert.Zero(t, g.Len())
	assert.Empty(t, g.Related("a.go", 1))
}
