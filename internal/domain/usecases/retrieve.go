package usecases

import (
	"context"
	"math"
	"sort"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
)

const (
	DefaultTopK          = 3
	DefaultMinSimilarity = 0.1
)

// Scorer ranks passages against a query and applies the relevance gate.
type Scorer struct {
	topK          int
	minSimilarity float64
}

// NewScorer creates a Scorer. Passages scoring at or below minSimilarity are
// never returned.
func NewScorer(topK int, minSimilarity float64) *Scorer {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Scorer{topK: topK, minSimilarity: minSimilarity}
}

// Retrieve returns up to topK passages above the cutoff, ordered by score
// descending and passage ID ascending. topK <= 0 uses the scorer default.
func (s *Scorer) Retrieve(ctx context.Context, query string, ix *SearchIndex, topK int) (entities.RetrievalResult, error) {
	if ix.Len() == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = s.topK
	}

	queryVec, err := ix.encoder.Encode(ctx, query)
	if err != nil {
		return nil, &entities.QueryError{Op: "encoding query", Err: err}
	}

	scored := make(entities.RetrievalResult, len(ix.Passages))
	for i, p := range ix.Passages {
		scored[i] = entities.ScoredPassage{
			Passage: p,
			Score:   cosineSimilarity(queryVec, ix.Vectors[i]),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Passage.ID < scored[j].Passage.ID
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}

	// Relevance gate: a top-K slot is not enough on its own.
	result := make(entities.RetrievalResult, 0, len(scored))
	for _, sp := range scored {
		if sp.Score > s.minSimilarity {
			result = append(result, sp)
		}
	}
	return result, nil
}

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
