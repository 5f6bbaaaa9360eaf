package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiGenerator implements ports.Generator using Google Gemini.
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiGenerator creates a Gemini generator. An empty apiKey is rejected
// with entities.ErrCredentialMissing before any network call.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, temperature float64, opts ...option.ClientOption) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini", entities.ErrCredentialMissing)
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	m := client.GenerativeModel(model)
	m.SetTemperature(float32(temperature))

	return &GeminiGenerator{client: client, model: m}, nil
}

// Generate produces a complete response for prompt.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("calling Gemini: %w", err)
	}
	return geminiText(resp)
}

// Close releases the underlying client connection.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	// Blocked prompts and candidates already surface as *genai.BlockedError.
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("Gemini returned no candidates")
	}

	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("Gemini returned empty candidate (finish reason %s)", cand.FinishReason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}
