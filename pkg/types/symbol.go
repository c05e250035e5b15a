package types

import "errors"

// SymbolKind represents the kind of source symbol reported by an outline source.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindStruct    SymbolKind = "struct"
	KindInterface SymbolKind = "interface"
	KindType      SymbolKind = "type"
	KindConst     SymbolKind = "const"
	KindVar       SymbolKind = "var"
	KindClass     SymbolKind = "class"
)

// Position is a location in source text (1-based line, 0-based character).
type Position struct {
	Line      int
	Character int
}

// Range is a contiguous source span.
type Range struct {
	Start Position
	End   Position
}

// Symbol is one entry of a file's symbol outline. Symbols are derived
// entirely from the outline source at index time and are immutable until
// the owning file is re-indexed.
type Symbol struct {
	Name      string
	Kind      SymbolKind
	Signature string
	Range     Range
	Children  []Symbol
}

// ValidateKind checks if the symbol kind is valid.
func (s *Symbol) ValidateKind() error {
	switch s.Kind {
	case KindFunction, KindMethod, KindStruct, KindInterface, KindType, KindConst, KindVar, KindClass:
		return nil
	default:
		return errors.New("invalid symbol kind")
	}
}

// Validate performs comprehensive validation of the symbol.
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return errors.New("symbol name is required")
	}

	if err := s.ValidateKind(); err != nil {
		return err
	}

	if s.Range.Start.Line <= 0 || s.Range.End.Line < s.Range.Start.Line {
		return errors.New("symbol range is invalid")
	}

	return nil
}
