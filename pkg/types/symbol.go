package types

import (
	"errors"
	"go/token"
)

// SymbolKind represents the type of Go language symbol
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindStruct    SymbolKind = "struct"
	KindInterface SymbolKind = "interface"
	KindType      SymbolKind = "type"
	KindConst     SymbolKind = "const"
	KindVar       SymbolKind = "var"
)

// Position represents a location in source code
type Position struct {
	Line   int
	Column int
	Offset int // Byte offset from the start of the file
}

// Symbol is a top-level Go declaration found in a collected document
type Symbol struct {
	Name      string
	Kind      SymbolKind
	Receiver  string // For methods: receiver type name
	Signature string

	Start Position
	End   Position
}

// QualifiedName returns Receiver.Name for methods and Name otherwise
func (s *Symbol) QualifiedName() string {
	if s.Receiver != "" {
		return s.Receiver + "." + s.Name
	}
	return s.Name
}

// IsExported returns true if the symbol is visible outside its package
func (s *Symbol) IsExported() bool {
	return token.IsExported(s.Name)
}

// Overlaps reports whether the symbol's byte span intersects [start, end)
func (s *Symbol) Overlaps(start, end int) bool {
	return s.Start.Offset < end && start < s.End.Offset
}

// Validate performs validation of the symbol
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return errors.New("symbol name is required")
	}

	switch s.Kind {
	case KindFunction, KindMethod, KindStruct, KindInterface, KindType, KindConst, KindVar:
	default:
		return errors.New("invalid symbol kind")
	}

	if s.Kind == KindMethod && s.Receiver == "" {
		return errors.New("methods must have a receiver type")
	}
	if s.Kind != KindMethod && s.Receiver != "" {
		return errors.New("only methods can have a receiver type")
	}

	if s.Start.Offset > s.End.Offset {
		return errors.New("invalid position: start must be before or equal to end")
	}

	return nil
}
