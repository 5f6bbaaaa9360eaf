package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
)

// OpenAIAdapter implements ports.EmbeddingService using the OpenAI embeddings
// API or any compatible endpoint.
type OpenAIAdapter struct {
	client openai.Client
	model  string
	log    logrus.FieldLogger
}

// NewOpenAIAdapter creates an OpenAI embedding adapter. An empty apiKey is
// rejected with entities.ErrCredentialMissing.
func NewOpenAIAdapter(apiKey, baseURL, model string, log logrus.FieldLogger, opts ...option.RequestOption) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai embeddings", entities.ErrCredentialMissing)
	}
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIAdapter{
		client: openai.NewClient(reqOpts...),
		model:  model,
		log:    log.WithFields(logrus.Fields{"component": "embedding", "backend": "openai"}),
	}, nil
}

// Model returns the embedding model name.
func (a *OpenAIAdapter) Model() string {
	return a.model
}

// Embed generates an embedding for a single text.
func (a *OpenAIAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds all texts in a single request.
func (a *OpenAIAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(a.model),
	})
	if err != nil {
		return nil, fmt.Errorf("calling OpenAI embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("OpenAI returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("OpenAI returned embedding index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		embeddings[d.Index] = vec
	}

	a.log.WithField("texts", len(texts)).Debug("embedded batch")
	return embeddings, nil
}
