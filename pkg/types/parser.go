package types

// ParseResult represents the output of parsing a Go source document
type ParseResult struct {
	PackageName string
	Symbols     []Symbol

	// Errors encountered during parsing
	Errors []ParseError
}

// ParseError represents an error that occurred during parsing
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
}

// Error implements the error interface
func (pe *ParseError) Error() string {
	return pe.Message
}

// HasErrors returns true if any parsing errors occurred
func (pr *ParseResult) HasErrors() bool {
	return len(pr.Errors) > 0
}

// AddError adds a parsing error to the result
func (pr *ParseResult) AddError(file string, line, col int, msg string) {
	pr.Errors = append(pr.Errors, ParseError{
		File:    file,
		Line:    line,
		Column:  col,
		Message: msg,
	})
}

// SymbolsIn returns the qualified names of symbols overlapping the byte span [start, end)
func (pr *ParseResult) SymbolsIn(start, end int) []string {
	var names []string
	for i := range pr.Symbols {
		if pr.Symbols[i].Overlaps(start, end) {
			names = append(names, pr.Symbols[i].QualifiedName())
		}
	}
	return names
}
