// Package parser converts a file's text and its symbol outline into
// normalized, boundary-aware chunks plus workspace-resolved reference edges.
package parser

import (
	"go/parser"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/codeatlas-ai/codeatlas/internal/symbols"
	"github.com/codeatlas-ai/codeatlas/pkg/types"
)

// Result is the output of parsing one file.
type Result struct {
	Chunks []*types.Chunk
	// Symbols is the top-level outline the chunks were derived from.
	// Empty when the file has no extractable outline.
	Symbols []types.Symbol
	// Edges are workspace-relative paths of files this file imports or
	// references. Unresolvable references (external packages) are dropped.
	Edges []string
}

// Parser builds chunks and edges for files under a single workspace root.
type Parser struct {
	root   string
	module string // Go module path from go.mod, empty when absent
	source symbols.Source
}

// New creates a parser rooted at the workspace directory. The Go module
// path is read from go.mod when present so module-internal imports can be
// resolved to workspace files.
func New(root string, source symbols.Source) *Parser {
	return &Parser{
		root:   root,
		module: readModulePath(filepath.Join(root, "go.mod")),
		source: source,
	}
}

// ParseFile chunks the file text and extracts reference edges. relPath is
// workspace-relative with forward slashes. Outline failures degrade to a
// single whole-file chunk rather than an error: a bad file must not abort
// the batch it arrived in.
func (p *Parser) ParseFile(relPath string, text []byte) (*Result, error) {
	// A zero-byte file indexes as a record with no chunks, so a freshly
	// created file is not re-attempted as a failure on every batch.
	if len(text) == 0 {
		return &Result{}, nil
	}

	lines := strings.Split(string(text), "\n")
	outline, chunks := p.chunkByOutline(relPath, text, lines)
	if len(chunks) == 0 {
		chunks = append(chunks, wholeFileChunk(relPath, string(text), len(lines)))
	}

	return &Result{
		Chunks:  chunks,
		Symbols: outline,
		Edges:   p.extractEdges(relPath, text),
	}, nil
}

// chunkByOutline creates one chunk per top-level symbol. Const/var
// declarations are folded into the whole-file fallback instead of getting
// chunks of their own.
func (p *Parser) chunkByOutline(relPath string, text []byte, lines []string) ([]types.Symbol, []*types.Chunk) {
	outline, err := p.source.Outline(relPath, text)
	if err != nil || len(outline) == 0 {
		return nil, nil
	}

	chunks := make([]*types.Chunk, 0, len(outline))
	for i := range outline {
		sym := &outline[i]
		switch sym.Kind {
		case types.KindConst, types.KindVar:
			continue
		}

		start, end := sym.Range.Start.Line, sym.Range.End.Line
		if start <= 0 || start > len(lines) {
			continue
		}
		if end > len(lines) {
			end = len(lines)
		}
		// A partial outline recovered from broken source can report an
		// end before the start; such symbols fall through to the
		// whole-file chunk.
		if end < start {
			continue
		}

		chunk := &types.Chunk{
			ID:         types.ChunkID(relPath, sym.Name),
			FilePath:   relPath,
			SymbolName: sym.Name,
			Kind:       types.ChunkSymbol,
			Content:    strings.Join(lines[start-1:end], "\n"),
			StartLine:  start,
			EndLine:    end,
		}
		if chunk.Content == "" {
			continue
		}
		chunk.ComputeContentHash()
		chunks = append(chunks, chunk)
	}

	return outline, chunks
}

func wholeFileChunk(relPath, content string, lineCount int) *types.Chunk {
	chunk := &types.Chunk{
		ID:        types.ChunkID(relPath, ""),
		FilePath:  relPath,
		Kind:      types.ChunkWholeFile,
		Content:   content,
		StartLine: 1,
		EndLine:   lineCount,
	}
	chunk.ComputeContentHash()
	return chunk
}

// extractEdges scans for import statements and resolves them to
// workspace-relative file paths. Go imports resolve through the module
// path; script-style sources resolve relative specifiers. Anything that
// does not land on an existing workspace file is dropped.
func (p *Parser) extractEdges(relPath string, text []byte) []string {
	var targets []string
	switch filepath.Ext(relPath) {
	case ".go":
		targets = p.goEdges(relPath, text)
	case ".ts", ".tsx", ".js", ".jsx", ".mjs", ".py":
		targets = p.relativeEdges(relPath, string(text))
	}

	seen := make(map[string]struct{}, len(targets))
	edges := make([]string, 0, len(targets))
	for _, t := range targets {
		if t == relPath {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		edges = append(edges, t)
	}
	return edges
}

// goEdges resolves module-internal Go imports to the files of the imported
// package directory.
func (p *Parser) goEdges(relPath string, text []byte) []string {
	if p.module == "" {
		return nil
	}

	fset := token.NewFileSet()
	file, _ := parser.ParseFile(fset, relPath, text, parser.ImportsOnly)
	if file == nil {
		return nil
	}

	var edges []string
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		if importPath != p.module && !strings.HasPrefix(importPath, p.module+"/") {
			continue // external package
		}

		dir := strings.TrimPrefix(strings.TrimPrefix(importPath, p.module), "/")
		edges = append(edges, p.packageFiles(dir)...)
	}
	return edges
}

// packageFiles lists the non-test Go files of a workspace-relative package
// directory.
func (p *Parser) packageFiles(dir string) []string {
	entries, err := os.ReadDir(filepath.Join(p.root, filepath.FromSlash(dir)))
	if err != nil {
		return nil
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		files = append(files, path.Join(dir, name))
	}
	return files
}

var relativeImportPattern = regexp.MustCompile(`(?m)(?:import\s+(?:[\w${},\s*]+\s+from\s+)?|require\s*\(\s*|from\s+)['"](\.{1,2}/[^'"]+)['"]`)

// candidate suffixes tried when a relative specifier omits an extension.
var importSuffixes = []string{"", ".ts", ".tsx", ".js", ".jsx", ".py", "/index.ts", "/index.js"}

// relativeEdges resolves ./ and ../ import specifiers against the importing
// file's directory, probing common extension candidates.
func (p *Parser) relativeEdges(relPath, text string) []string {
	base := path.Dir(relPath)

	var edges []string
	for _, m := range relativeImportPattern.FindAllStringSubmatch(text, -1) {
		spec := path.Clean(path.Join(base, m[1]))
		if strings.HasPrefix(spec, "..") {
			continue // escapes the workspace
		}
		for _, suffix := range importSuffixes {
			candidate := spec + suffix
			if info, err := os.Stat(filepath.Join(p.root, filepath.FromSlash(candidate))); err == nil && !info.IsDir() {
				edges = append(edges, candidate)
				break
			}
		}
	}
	return edges
}

// readModulePath extracts the module declaration from a go.mod file.
func readModulePath(goModPath string) string {
	content, err := os.ReadFile(goModPath)
	if err != nil {
		return ""
	}

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module"))
		}
	}
	return ""
}
