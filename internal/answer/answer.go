package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/codecompanion/pkg/types"
)

// Provider names
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"

	DefaultGeminiModel = "gemini-1.5-flash-latest"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultTemperature = 0.3
)

var (
	// ErrNoGenerator means answer generation is not configured; retrieval still works
	ErrNoGenerator = errors.New("no answer generator configured")
	// ErrEmptyAnswer is returned when the model produced no text
	ErrEmptyAnswer = errors.New("model returned no answer")
	// ErrUnknownProvider is returned for an unrecognized provider name
	ErrUnknownProvider = errors.New("unknown generation provider")
)

// Generator produces a prose answer from a question and retrieved chunks
type Generator interface {
	Generate(ctx context.Context, question string, chunks []types.SearchResult) (string, error)
	Name() string
	Close() error
}

// Config selects and configures a Generator
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string // OpenAI-compatible endpoint override
	Temperature float32
}

// New creates the configured Generator. Provider "none" or "" returns ErrNoGenerator.
func New(ctx context.Context, cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderNone:
		return nil, ErrNoGenerator
	case ProviderGemini:
		return NewGemini(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

const instructions = `Answer the question as detailed as possible from the provided context.
If the answer is not in the context, say that you don't know instead of making one up.
Refer to files by their path when it helps.`

// BuildPrompt stuffs every retrieved chunk, best first, into a single prompt
func BuildPrompt(question string, chunks []types.SearchResult) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\nContext:\n")

	if len(chunks) == 0 {
		b.WriteString("(no context available)\n")
	}
	for i := range chunks {
		c := &chunks[i].Chunk
		fmt.Fprintf(&b, "\n--- %s (offset %d) ---\n", c.DocumentPath, c.StartOffset)
		b.WriteString(c.Text)
		if !strings.HasSuffix(c.Text, "\n") {
			b.WriteString("\n")
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nAnswer:")
	return b.String()
}
