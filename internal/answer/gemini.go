package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/codecompanion/pkg/types"
)

// Gemini generates answers with a Gemini model
type Gemini struct {
	client *genai.Client
	model  string
	temp   float32
}

// NewGemini creates a Gemini generator
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key not set", ErrNoGenerator)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	temp := cfg.Temperature
	if temp == 0 {
		temp = DefaultTemperature
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, temp: temp}, nil
}

// Generate sends the stuffed prompt and joins the text parts of the first candidate
func (g *Gemini) Generate(ctx context.Context, question string, chunks []types.SearchResult) (string, error) {
	m := g.client.GenerativeModel(g.model)
	m.SetTemperature(g.temp)

	resp, err := m.GenerateContent(ctx, genai.Text(BuildPrompt(question, chunks)))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyAnswer
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyAnswer
	}
	return b.String(), nil
}

func (g *Gemini) Name() string { return ProviderGemini + "/" + g.model }

func (g *Gemini) Close() error { return g.client.Close() }
