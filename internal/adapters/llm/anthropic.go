package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
)

const (
	defaultAnthropicModel = "claude-3-5-haiku-latest"
	anthropicMaxTokens    = 1024
)

// AnthropicGenerator implements ports.Generator using the Anthropic Messages API.
type AnthropicGenerator struct {
	client      anthropic.Client
	model       string
	temperature float64
}

// NewAnthropicGenerator creates an Anthropic generator.
func NewAnthropicGenerator(apiKey, baseURL, model string, temperature float64, opts ...option.RequestOption) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: anthropic", entities.ErrCredentialMissing)
	}
	if model == "" {
		model = defaultAnthropicModel
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}

	return &AnthropicGenerator{
		client:      anthropic.NewClient(append(reqOpts, opts...)...),
		model:       model,
		temperature: temperature,
	}, nil
}

// Generate produces a complete response for prompt.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   anthropicMaxTokens,
		Temperature: anthropic.Float(g.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("calling Anthropic: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
