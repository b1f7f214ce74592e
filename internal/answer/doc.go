// Package answer turns retrieved chunks and a question into prose.
//
// BuildPrompt places every chunk, best first, into one prompt ahead of the
// question. Gemini and OpenAI generators send that prompt to a hosted model.
//
// # Basic Usage
//
//	gen, err := answer.New(ctx, answer.Config{Provider: "gemini", APIKey: key})
//	if errors.Is(err, answer.ErrNoGenerator) {
//	    // retrieval-only mode
//	}
//	text, err := gen.Generate(ctx, question, results)
package answer
