// Package graph maintains the in-memory code graph: one node per indexed
// file, directed file-to-file edges for import/reference relationships.
// The indexer is the sole writer; query paths only traverse. A read-write
// lock keeps multi-edge updates from being observed half-applied.
package graph

import (
	"sort"
	"sync"

	"github.com/codeatlas-ai/codeatlas/pkg/types"
)

// Graph is the workspace symbol/dependency graph.
type Graph struct {
	mu sync.RWMutex

	// nodes holds the symbol outline of every indexed file.
	nodes map[string][]types.Symbol
	// out maps a file to the set of files it references.
	out map[string]map[string]struct{}
	// in is the reverse index of out, used for pruning and traversal.
	in map[string]map[string]struct{}
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string][]types.Symbol),
		out:   make(map[string]map[string]struct{}),
		in:    make(map[string]map[string]struct{}),
	}
}

// UpsertFile replaces the node's symbol set and outgoing edges atomically.
// Old outgoing edges are dropped first so a shrinking import list cannot
// leave stale fan-out. Edges to files that are not indexed yet are kept
// internally but stay invisible to Related until the target node appears.
func (g *Graph) UpsertFile(path string, syms []types.Symbol, edges []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes[path] = syms
	g.dropOutgoingLocked(path)

	targets := make(map[string]struct{}, len(edges))
	for _, target := range edges {
		if target == path {
			continue
		}
		targets[target] = struct{}{}
		rev, ok := g.in[target]
		if !ok {
			rev = make(map[string]struct{})
			g.in[target] = rev
		}
		rev[path] = struct{}{}
	}
	g.out[path] = targets
}

// RemoveFile deletes the node and every edge touching it, in either
// direction. Idempotent for unknown paths.
func (g *Graph) RemoveFile(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.nodes, path)
	g.dropOutgoingLocked(path)

	// Prune incoming edges: each referencing file loses its edge to path.
	for source := range g.in[path] {
		delete(g.out[source], path)
	}
	delete(g.in, path)
}

func (g *Graph) dropOutgoingLocked(path string) {
	for target := range g.out[path] {
		if rev, ok := g.in[target]; ok {
			delete(rev, path)
			if len(rev) == 0 {
				delete(g.in, target)
			}
		}
	}
	delete(g.out, path)
}

// Related returns the indexed files reachable within depth hops of path,
// traversing edges in both directions. depth <= 0 means 1. The result is
// sorted for deterministic downstream ranking and never contains path
// itself or files without a node.
func (g *Graph) Related(path string, depth int) []string {
	if depth <= 0 {
		depth = 1
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]struct{}{path: {}}
	frontier := []string{path}

	var related []string
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, current := range frontier {
			for _, neighbor := range g.neighborsLocked(current) {
				if _, seen := visited[neighbor]; seen {
					continue
				}
				visited[neighbor] = struct{}{}
				next = append(next, neighbor)
				if _, indexed := g.nodes[neighbor]; indexed {
					related = append(related, neighbor)
				}
			}
		}
		frontier = next
	}

	sort.Strings(related)
	return related
}

func (g *Graph) neighborsLocked(path string) []string {
	neighbors := make([]string, 0, len(g.out[path])+len(g.in[path]))
	for target := range g.out[path] {
		neighbors = append(neighbors, target)
	}
	for source := range g.in[path] {
		neighbors = append(neighbors, source)
	}
	return neighbors
}

// Has reports whether path is an indexed node.
func (g *Graph) Has(path string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[path]
	return ok
}

// Len returns the number of indexed nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Files returns the sorted list of indexed paths.
func (g *Graph) Files() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	files := make([]string, 0, len(g.nodes))
	for path := range g.nodes {
		files = append(files, path)
	}
	sort.Strings(files)
	return files
}

// SymbolTable returns a copy of the path-to-symbols mapping for
// introspection and listing.
func (g *Graph) SymbolTable() map[string][]types.Symbol {
	g.mu.RLock()
	defer g.mu.RUnlock()

	table := make(map[string][]types.Symbol, len(g.nodes))
	for path, syms := range g.nodes {
		copied := make([]types.Symbol, len(syms))
		copy(copied, syms)
		table[path] = copied
	}
	return table
}

// Reset drops every node and edge, returning the graph to its initial
// state. Used when the index is deleted.
func (g *Graph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = make(map[string][]types.Symbol)
	g.out = make(map[string]map[string]struct{})
	g.in = make(map[string]map[string]struct{})
}
