package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/0xcro3dile/faqbot-go/internal/domain/ports"
)

// Backend types accepted by New.
const (
	TypeGemini    = "gemini"
	TypeOpenAI    = "openai"
	TypeAnthropic = "anthropic"
	TypeCohere    = "cohere"
	TypeOllama    = "ollama"
)

// Config selects and configures a generative backend.
type Config struct {
	Type        string
	Model       string
	APIKeyEnv   string
	BaseURL     string
	Temperature float64
}

// New opens the configured backend. The API key is read from the
// environment variable named by APIKeyEnv at call time, so a missing key
// surfaces as entities.ErrCredentialMissing from the backend constructor.
func New(ctx context.Context, cfg Config) (ports.Generator, error) {
	apiKey := ""
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
	}

	switch cfg.Type {
	case TypeGemini, "":
		return NewGeminiGenerator(ctx, apiKey, cfg.Model, cfg.Temperature)
	case TypeOpenAI:
		return NewOpenAIGenerator(apiKey, cfg.BaseURL, cfg.Model, cfg.Temperature)
	case TypeAnthropic:
		return NewAnthropicGenerator(apiKey, cfg.BaseURL, cfg.Model, cfg.Temperature)
	case TypeCohere:
		return NewCohereGenerator(apiKey, cfg.BaseURL, cfg.Model, cfg.Temperature)
	case TypeOllama:
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown generator type %q", cfg.Type)
	}
}

// Factory binds cfg into a ports.GeneratorFactory for the engine.
func Factory(cfg Config) ports.GeneratorFactory {
	return func(ctx context.Context) (ports.Generator, error) {
		return New(ctx, cfg)
	}
}
