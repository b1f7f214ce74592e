// Package parser extracts top-level declarations from Go documents so that
// chunks can be annotated with the functions and types they cover.
//
// Only documents with a .go extension are parsed. Syntax errors are not fatal:
// they are recorded on the ParseResult and any partial AST is still used.
//
//	p := parser.New()
//	result, err := p.ParseSource("internal/server.go", doc.Text)
//	if err != nil {
//	    return err
//	}
//	names := result.SymbolsIn(chunk.ByteStart, chunk.ByteEnd)
//
// Positions carry byte offsets relative to the start of the document.
package parser
