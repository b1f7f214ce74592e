package answer

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dshills/codecompanion/pkg/types"
)

// OpenAI generates answers with an OpenAI-compatible chat model
type OpenAI struct {
	client *openai.Client
	model  string
	temp   float32
}

// NewOpenAI creates an OpenAI chat generator
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key not set", ErrNoGenerator)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	temp := cfg.Temperature
	if temp == 0 {
		temp = DefaultTemperature
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(clientCfg), model: model, temp: temp}, nil
}

// Generate sends the stuffed prompt as a single user message
func (o *OpenAI) Generate(ctx context.Context, question string, chunks []types.SearchResult) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temp,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(question, chunks)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyAnswer
	}
	return text, nil
}

func (o *OpenAI) Name() string { return ProviderOpenAI + "/" + o.model }

func (o *OpenAI) Close() error { return nil }
