// Package embedding provides dense embedding adapters.
// Clean Architecture: These are adapters that implement ports.EmbeddingService.
// They know about backend specifics but the domain layer doesn't.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "nomic-embed-text"

	// ollamaBatchSize bounds how many passages go into one /api/embed call.
	ollamaBatchSize = 64
)

// OllamaAdapter implements ports.EmbeddingService against a local Ollama
// server's /api/embed endpoint.
type OllamaAdapter struct {
	endpoint string
	model    string
	client   *http.Client
	log      logrus.FieldLogger
}

// NewOllamaAdapter creates an Ollama embedder. Empty arguments fall back to
// a local server and nomic-embed-text.
func NewOllamaAdapter(baseURL, model string, log logrus.FieldLogger) *OllamaAdapter {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &OllamaAdapter{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/embed",
		model:    model,
		client:   &http.Client{Timeout: 60 * time.Second},
		log:      log.WithFields(logrus.Fields{"component": "embedding", "backend": "ollama", "model": model}),
	}
}

// Model returns the embedding model name.
func (a *OllamaAdapter) Model() string {
	return a.model
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error"`
}

// Embed embeds a single query.
func (a *OllamaAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := a.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in chunks, preserving order.
func (a *OllamaAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += ollamaBatchSize {
		end := min(start+ollamaBatchSize, len(texts))
		vectors, err := a.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding passages %d-%d: %w", start, end-1, err)
		}
		out = append(out, vectors...)
	}
	a.log.WithField("passages", len(out)).Debug("embedded corpus")
	return out, nil
}

func (a *OllamaAdapter) embed(ctx context.Context, input []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: a.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	var out embedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<20)).Decode(&out); err != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return nil, fmt.Errorf("Ollama returned status %d: %s", resp.StatusCode, out.Error)
		}
		return nil, fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	if len(out.Embeddings) != len(input) {
		return nil, fmt.Errorf("Ollama returned %d embeddings for %d inputs", len(out.Embeddings), len(input))
	}
	for i, v := range out.Embeddings {
		if len(v) == 0 {
			return nil, fmt.Errorf("Ollama returned an empty embedding for input %d", i)
		}
	}
	return out.Embeddings, nil
}
