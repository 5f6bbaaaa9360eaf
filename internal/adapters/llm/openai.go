package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
)

// OpenAIGenerator implements ports.Generator using OpenAI chat completions
// or any compatible endpoint.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenAIGenerator creates an OpenAI generator.
func NewOpenAIGenerator(apiKey, baseURL, model string, temperature float64, opts ...option.RequestOption) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai", entities.ErrCredentialMissing)
	}
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}

	return &OpenAIGenerator{
		client:      openai.NewClient(append(reqOpts, opts...)...),
		model:       model,
		temperature: temperature,
	}, nil
}

// Generate produces a complete response for prompt.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("calling OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
