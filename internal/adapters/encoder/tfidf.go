// Package encoder provides the retrieval representation strategies.
// Clean Architecture: Adapters implementing ports.EncodingStrategy.
package encoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kljensen/snowball/english"

	"github.com/0xcro3dile/faqbot-go/internal/domain/ports"
)

// DefaultMaxFeatures caps the sparse vocabulary.
const DefaultMaxFeatures = 500

// SparseName prefixes the identifier of TF-IDF indexes.
const SparseName = "sparse"

var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// TFIDFStrategy implements ports.EncodingStrategy with a TF-IDF vectorizer
// fitted over the corpus: raw term counts, smoothed IDF, L2 normalization.
type TFIDFStrategy struct {
	maxFeatures int
}

// NewTFIDFStrategy creates a sparse strategy keeping at most maxFeatures terms.
func NewTFIDFStrategy(maxFeatures int) *TFIDFStrategy {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &TFIDFStrategy{maxFeatures: maxFeatures}
}

// Name returns the strategy identifier, including the feature cap so that
// changing it invalidates persisted vectors.
func (s *TFIDFStrategy) Name() string {
	return SparseName + "/" + strconv.Itoa(s.maxFeatures)
}

// Fit builds the vocabulary and IDF weights, then encodes every text.
func (s *TFIDFStrategy) Fit(ctx context.Context, texts []string) (ports.Encoder, [][]float32, error) {
	if len(texts) == 0 {
		return nil, nil, errors.New("empty corpus for TF-IDF fit")
	}

	df := make(map[string]int)
	tf := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(text) {
			tf[tok]++
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return nil, nil, errors.New("no terms left in corpus after stop word removal")
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}

	// Most frequent terms win the feature budget; ties go alphabetically.
	if len(terms) > s.maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if tf[terms[i]] != tf[terms[j]] {
				return tf[terms[i]] > tf[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:s.maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(texts))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}

	enc := newTFIDFEncoder(terms, idf)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = enc.encode(text)
	}
	return enc, vectors, nil
}

// Restore rebuilds a fitted encoder from its persisted state.
func (s *TFIDFStrategy) Restore(state []byte) (ports.Encoder, error) {
	var st tfidfState
	if err := json.Unmarshal(state, &st); err != nil {
		return nil, fmt.Errorf("decoding tfidf state: %w", err)
	}
	if len(st.Terms) == 0 || len(st.Terms) != len(st.IDF) {
		return nil, fmt.Errorf("invalid tfidf state: %d terms, %d idf weights", len(st.Terms), len(st.IDF))
	}
	return newTFIDFEncoder(st.Terms, st.IDF), nil
}

type tfidfState struct {
	Terms []string  `json:"terms"`
	IDF   []float64 `json:"idf"`
}

// tfidfEncoder is immutable after construction.
type tfidfEncoder struct {
	vocabulary map[string]int
	state      tfidfState
}

func newTFIDFEncoder(terms []string, idf []float64) *tfidfEncoder {
	vocab := make(map[string]int, len(terms))
	for i, term := range terms {
		vocab[term] = i
	}
	return &tfidfEncoder{
		vocabulary: vocab,
		state:      tfidfState{Terms: terms, IDF: idf},
	}
}

// Encode maps text onto the fitted vocabulary. Unknown terms are ignored.
func (e *tfidfEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	return e.encode(text), nil
}

// State serializes the vocabulary and IDF weights.
func (e *tfidfEncoder) State() ([]byte, error) {
	return json.Marshal(e.state)
}

func (e *tfidfEncoder) encode(text string) []float32 {
	weights := make([]float64, len(e.state.Terms))
	for _, tok := range tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			weights[idx]++
		}
	}

	norm := 0.0
	for i, count := range weights {
		weights[i] = count * e.state.IDF[i]
		norm += weights[i] * weights[i]
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, len(weights))
	if norm == 0 {
		return vec
	}
	for i, w := range weights {
		vec[i] = float32(w / norm)
	}
	return vec
}

// tokenize lowercases, drops stop words and stems, so "refund" and
// "refunds" share a term at fit and query time alike.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := englishStopWords[t]; isStop {
			continue
		}
		out = append(out, english.Stem(t, false))
	}
	return out
}
