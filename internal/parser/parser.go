package parser

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"strings"

	"github.com/dshills/codecompanion/pkg/types"
)

// Parser extracts top-level declarations from Go source held in memory
type Parser struct {
	fset *token.FileSet
}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{
		fset: token.NewFileSet(),
	}
}

// Supports reports whether documents at docPath can be parsed
func Supports(docPath string) bool {
	return path.Ext(docPath) == ".go"
}

// ParseSource parses Go source and extracts top-level symbols.
// Syntax errors are recorded on the result; whatever partial AST survives is still used.
func (p *Parser) ParseSource(docPath string, src string) (*types.ParseResult, error) {
	if !Supports(docPath) {
		return nil, fmt.Errorf("unsupported document: %s", docPath)
	}

	result := &types.ParseResult{}

	// The file set is shared across calls, so offsets are made relative to this file's base.
	file, err := parser.ParseFile(p.fset, docPath, src, parser.SkipObjectResolution)
	if err != nil {
		result.AddError(docPath, 0, 0, fmt.Sprintf("syntax error: %v", err))
	}
	if file == nil {
		return result, nil
	}

	if file.Name != nil {
		result.PackageName = file.Name.Name
	}

	e := &symbolExtractor{fset: p.fset}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			e.extractFunction(d)
		case *ast.GenDecl:
			e.extractGenDecl(d)
		}
	}
	result.Symbols = e.symbols

	return result, nil
}

// symbolExtractor collects symbols from top-level declarations
type symbolExtractor struct {
	fset    *token.FileSet
	symbols []types.Symbol
}

// extractFunction extracts function and method declarations
func (e *symbolExtractor) extractFunction(funcDecl *ast.FuncDecl) {
	sym := types.Symbol{
		Name:  funcDecl.Name.Name,
		Kind:  types.KindFunction,
		Start: e.position(funcDecl.Pos()),
		End:   e.position(funcDecl.End()),
	}

	if funcDecl.Recv != nil && len(funcDecl.Recv.List) > 0 {
		sym.Kind = types.KindMethod
		sym.Receiver = receiverType(funcDecl.Recv.List[0].Type)
		if sym.Receiver == "" {
			// Unresolvable receiver; keep the symbol as a plain function.
			sym.Kind = types.KindFunction
		}
	}
	sym.Signature = functionSignature(funcDecl)

	e.symbols = append(e.symbols, sym)
}

// extractGenDecl extracts type, const, and var declarations
func (e *symbolExtractor) extractGenDecl(genDecl *ast.GenDecl) {
	for _, spec := range genDecl.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			sym := types.Symbol{
				Name:      s.Name.Name,
				Kind:      types.KindType,
				Signature: "type " + s.Name.Name,
				Start:     e.position(s.Pos()),
				End:       e.position(s.End()),
			}
			switch s.Type.(type) {
			case *ast.StructType:
				sym.Kind = types.KindStruct
				sym.Signature += " struct"
			case *ast.InterfaceType:
				sym.Kind = types.KindInterface
				sym.Signature += " interface"
			}
			e.symbols = append(e.symbols, sym)
		case *ast.ValueSpec:
			kind := types.KindVar
			if genDecl.Tok == token.CONST {
				kind = types.KindConst
			}
			for _, name := range s.Names {
				if name.Name == "_" {
					continue
				}
				e.symbols = append(e.symbols, types.Symbol{
					Name:      name.Name,
					Kind:      kind,
					Signature: fmt.Sprintf("%s %s", genDecl.Tok, name.Name),
					Start:     e.position(s.Pos()),
					End:       e.position(s.End()),
				})
			}
		}
	}
}

// position converts a token position to a file-relative Position
func (e *symbolExtractor) position(pos token.Pos) types.Position {
	position := e.fset.Position(pos)
	return types.Position{
		Line:   position.Line,
		Column: position.Column,
		Offset: position.Offset,
	}
}

// receiverType extracts the receiver type name from a method, dropping pointers and type parameters
func receiverType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverType(t.X)
	case *ast.IndexExpr:
		return receiverType(t.X)
	case *ast.IndexListExpr:
		return receiverType(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

// functionSignature builds a compact signature string
func functionSignature(funcDecl *ast.FuncDecl) string {
	var sig strings.Builder

	sig.WriteString("func ")
	if funcDecl.Recv != nil && len(funcDecl.Recv.List) > 0 {
		sig.WriteString("(")
		sig.WriteString(exprToString(funcDecl.Recv.List[0].Type))
		sig.WriteString(") ")
	}
	sig.WriteString(funcDecl.Name.Name)
	sig.WriteString("(")
	sig.WriteString(fieldListToString(funcDecl.Type.Params))
	sig.WriteString(")")

	if results := fieldListToString(funcDecl.Type.Results); results != "" {
		if funcDecl.Type.Results.NumFields() > 1 {
			sig.WriteString(" (" + results + ")")
		} else {
			sig.WriteString(" " + results)
		}
	}

	return sig.String()
}

// fieldListToString converts a field list to a string representation
func fieldListToString(fieldList *ast.FieldList) string {
	if fieldList == nil || len(fieldList.List) == 0 {
		return ""
	}

	var parts []string
	for _, field := range fieldList.List {
		typeStr := exprToString(field.Type)
		if len(field.Names) == 0 {
			parts = append(parts, typeStr)
			continue
		}
		for _, name := range field.Names {
			parts = append(parts, name.Name+" "+typeStr)
		}
	}

	return strings.Join(parts, ", ")
}

// exprToString converts an expression to a string representation
func exprToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case nil:
		return ""
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprToString(t.X)
	case *ast.ArrayType:
		return "[]" + exprToString(t.Elt)
	case *ast.MapType:
		return fmt.Sprintf("map[%s]%s", exprToString(t.Key), exprToString(t.Value))
	case *ast.ChanType:
		return "chan " + exprToString(t.Value)
	case *ast.FuncType:
		return "func(...)"
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.SelectorExpr:
		return exprToString(t.X) + "." + t.Sel.Name
	case *ast.Ellipsis:
		return "..." + exprToString(t.Elt)
	case *ast.IndexExpr:
		return exprToString(t.X) + "[" + exprToString(t.Index) + "]"
	default:
		return "..."
	}
}
