package encoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/0xcro3dile/faqbot-go/internal/domain/ports"
)

// DenseName prefixes the identifier of embedding-backed indexes.
const DenseName = "dense"

// DenseStrategy implements ports.EncodingStrategy on top of an embedding
// service. Fitting embeds the corpus; the encoder embeds queries with the
// same service.
type DenseStrategy struct {
	embedder ports.EmbeddingService
	model    string
}

// NewDenseStrategy creates a dense strategy. model is recorded in the index
// identity so that switching embedding models invalidates persisted vectors.
func NewDenseStrategy(embedder ports.EmbeddingService, model string) *DenseStrategy {
	return &DenseStrategy{embedder: embedder, model: model}
}

// Name returns the strategy identifier, including the embedding model.
func (s *DenseStrategy) Name() string {
	if s.model == "" {
		return DenseName
	}
	return DenseName + "/" + s.model
}

// Fit embeds every text in one batch. Every vector must have the same
// dimension, which the encoder then enforces on queries.
func (s *DenseStrategy) Fit(ctx context.Context, texts []string) (ports.Encoder, [][]float32, error) {
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding corpus: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, nil, fmt.Errorf("embedding corpus: got %d vectors for %d texts", len(vectors), len(texts))
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, nil, errors.New("embedding corpus: no dimensions")
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, nil, fmt.Errorf("embedding corpus: passage %d has dimension %d, expected %d", i, len(v), dim)
		}
	}
	return &denseEncoder{embedder: s.embedder, model: s.model, dim: dim}, vectors, nil
}

// Restore returns an encoder bound to the current embedding service. The
// persisted state carries the model name, which must match, and the
// vector dimension.
func (s *DenseStrategy) Restore(state []byte) (ports.Encoder, error) {
	var st denseState
	if err := json.Unmarshal(state, &st); err != nil {
		return nil, fmt.Errorf("decoding dense state: %w", err)
	}
	if st.Model != s.model {
		return nil, fmt.Errorf("index embedded with %q, configured %q", st.Model, s.model)
	}
	if st.Dim <= 0 {
		return nil, fmt.Errorf("invalid dense state: dimension %d", st.Dim)
	}
	return &denseEncoder{embedder: s.embedder, model: s.model, dim: st.Dim}, nil
}

type denseState struct {
	Model string `json:"model"`
	Dim   int    `json:"dim"`
}

type denseEncoder struct {
	embedder ports.EmbeddingService
	model    string
	dim      int
}

func (e *denseEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	v, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(v) != e.dim {
		return nil, fmt.Errorf("query embedding has dimension %d, index has %d", len(v), e.dim)
	}
	return v, nil
}

func (e *denseEncoder) State() ([]byte, error) {
	return json.Marshal(denseState{Model: e.model, Dim: e.dim})
}
