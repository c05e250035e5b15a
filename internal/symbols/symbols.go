// Package symbols wraps the symbol-provider capability: given a file and its
// text, it returns the file's symbol outline. The Go implementation uses the
// standard library AST; files in other languages report ErrNoOutline and the
// parser degrades to whole-file chunking.
package symbols

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"

	"github.com/codeatlas-ai/codeatlas/pkg/types"
)

// ErrNoOutline is returned when no outline source can handle the file.
// Callers are expected to fall back to whole-file chunking.
var ErrNoOutline = errors.New("no symbol outline available")

// Source produces a file's symbol outline from its text.
type Source interface {
	Outline(path string, src []byte) ([]types.Symbol, error)
}

// GoSource extracts symbol outlines from Go source files via AST parsing.
type GoSource struct{}

// NewGoSource creates a Go AST outline source.
func NewGoSource() *GoSource {
	return &GoSource{}
}

// Outline parses src and returns its top-level symbols. Syntax errors are
// tolerated: whatever partial AST the parser recovers is still walked, so a
// broken file can contribute the symbols it does have. ErrNoOutline is
// returned for non-Go files and for files with no recoverable AST.
func (g *GoSource) Outline(path string, src []byte) ([]types.Symbol, error) {
	if filepath.Ext(path) != ".go" {
		return nil, ErrNoOutline
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if file == nil {
		return nil, fmt.Errorf("%w: %v", ErrNoOutline, err)
	}

	ex := &extractor{fset: fset}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			ex.function(d)
		case *ast.GenDecl:
			ex.genDecl(d)
		}
	}

	return ex.out, nil
}

// extractor accumulates symbols from AST declarations.
type extractor struct {
	fset *token.FileSet
	out  []types.Symbol
}

func (e *extractor) function(fn *ast.FuncDecl) {
	sym := types.Symbol{
		Name:  fn.Name.Name,
		Kind:  types.KindFunction,
		Range: e.rangeOf(fn.Pos(), fn.End()),
	}

	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		sym.Kind = types.KindMethod
		if recv := receiverName(fn.Recv.List[0].Type); recv != "" {
			sym.Name = recv + "." + fn.Name.Name
		}
	}

	sym.Signature = e.funcSignature(fn)
	e.out = append(e.out, sym)
}

func (e *extractor) genDecl(decl *ast.GenDecl) {
	for _, spec := range decl.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			e.typeSpec(s)
		case *ast.ValueSpec:
			e.valueSpec(s, decl.Tok)
		}
	}
}

func (e *extractor) typeSpec(spec *ast.TypeSpec) {
	sym := types.Symbol{
		Name:  spec.Name.Name,
		Range: e.rangeOf(spec.Pos(), spec.End()),
	}

	switch t := spec.Type.(type) {
	case *ast.StructType:
		sym.Kind = types.KindStruct
		sym.Signature = fmt.Sprintf("type %s struct", spec.Name.Name)
		sym.Children = e.structFields(t)
	case *ast.InterfaceType:
		sym.Kind = types.KindInterface
		sym.Signature = fmt.Sprintf("type %s interface", spec.Name.Name)
	default:
		sym.Kind = types.KindType
		sym.Signature = fmt.Sprintf("type %s", spec.Name.Name)
	}

	e.out = append(e.out, sym)
}

// structFields reports struct fields as nested child symbols.
func (e *extractor) structFields(st *ast.StructType) []types.Symbol {
	if st.Fields == nil {
		return nil
	}

	var children []types.Symbol
	for _, field := range st.Fields.List {
		for _, name := range field.Names {
			children = append(children, types.Symbol{
				Name:      name.Name,
				Kind:      types.KindVar,
				Signature: fmt.Sprintf("%s %s", name.Name, exprString(field.Type)),
				Range:     e.rangeOf(field.Pos(), field.End()),
			})
		}
	}
	return children
}

func (e *extractor) valueSpec(spec *ast.ValueSpec, tok token.Token) {
	kind := types.KindVar
	if tok == token.CONST {
		kind = types.KindConst
	}

	for _, name := range spec.Names {
		e.out = append(e.out, types.Symbol{
			Name:      name.Name,
			Kind:      kind,
			Signature: name.Name,
			Range:     e.rangeOf(spec.Pos(), spec.End()),
		})
	}
}

func (e *extractor) funcSignature(fn *ast.FuncDecl) string {
	var sig strings.Builder
	sig.WriteString("func ")

	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		sig.WriteString("(")
		sig.WriteString(exprString(fn.Recv.List[0].Type))
		sig.WriteString(") ")
	}

	sig.WriteString(fn.Name.Name)
	sig.WriteString("(")
	if fn.Type.Params != nil {
		sig.WriteString(fieldListString(fn.Type.Params))
	}
	sig.WriteString(")")

	if fn.Type.Results != nil {
		results := fieldListString(fn.Type.Results)
		if results != "" {
			if fn.Type.Results.NumFields() > 1 {
				sig.WriteString(" (" + results + ")")
			} else {
				sig.WriteString(" " + results)
			}
		}
	}

	return sig.String()
}

func (e *extractor) rangeOf(start, end token.Pos) types.Range {
	s := e.fset.Position(start)
	n := e.fset.Position(end)
	return types.Range{
		Start: types.Position{Line: s.Line, Character: s.Column - 1},
		End:   types.Position{Line: n.Line, Character: n.Column - 1},
	}
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			return ident.Name
		}
	case *ast.Ident:
		return t.Name
	}
	return ""
}

func fieldListString(fields *ast.FieldList) string {
	if fields == nil || len(fields.List) == 0 {
		return ""
	}

	var parts []string
	for _, field := range fields.List {
		typeStr := exprString(field.Type)
		if len(field.Names) > 0 {
			for _, name := range field.Names {
				parts = append(parts, fmt.Sprintf("%s %s", name.Name, typeStr))
			}
		} else {
			parts = append(parts, typeStr)
		}
	}
	return strings.Join(parts, ", ")
}

func exprString(expr ast.Expr) string {
	if expr == nil {
		return ""
	}

	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.ArrayType:
		return "[]" + exprString(t.Elt)
	case *ast.MapType:
		return fmt.Sprintf("map[%s]%s", exprString(t.Key), exprString(t.Value))
	case *ast.ChanType:
		return "chan " + exprString(t.Value)
	case *ast.FuncType:
		return "func(...)"
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.Ellipsis:
		return "..." + exprString(t.Elt)
	default:
		return "..."
	}
}
