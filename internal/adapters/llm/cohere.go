package llm

import (
	"context"
	"fmt"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	cohereoption "github.com/cohere-ai/cohere-go/v2/option"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
)

const defaultCohereModel = "command-r"

// CohereGenerator implements ports.Generator using Cohere chat.
type CohereGenerator struct {
	client      *cohereclient.Client
	model       string
	temperature float64
}

// NewCohereGenerator creates a Cohere generator.
func NewCohereGenerator(apiKey, baseURL, model string, temperature float64) (*CohereGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: cohere", entities.ErrCredentialMissing)
	}
	if model == "" {
		model = defaultCohereModel
	}

	opts := []cohereoption.RequestOption{cohereoption.WithToken(apiKey)}
	if baseURL != "" {
		opts = append(opts, cohereoption.WithBaseURL(baseURL))
	}

	return &CohereGenerator{
		client:      cohereclient.NewClient(opts...),
		model:       model,
		temperature: temperature,
	}, nil
}

// Generate produces a complete response for prompt.
func (g *CohereGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.model
	temperature := g.temperature

	resp, err := g.client.Chat(ctx, &cohere.ChatRequest{
		Message:     prompt,
		Model:       &model,
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("calling Cohere: %w", err)
	}
	return resp.Text, nil
}
