package encoder

import (
	"context"
	"errors"
	"math"
	"testing"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestTFIDF_FitNormalizesVectors(t *testing.T) {
	s := NewTFIDFStrategy(0)
	enc, vectors, err := s.Fit(context.Background(), []string{
		"Refunds are processed in 5 days.",
		"Shipping takes 3 business days.",
	})
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	for i, v := range vectors {
		if math.Abs(norm(v)-1) > 1e-6 {
			t.Errorf("vector %d not unit length: %f", i, norm(v))
		}
	}

	q, _ := enc.Encode(context.Background(), "how long for a refund? refunds")
	if dot(q, vectors[0]) <= dot(q, vectors[1]) {
		t.Errorf("refund query should be closer to the refunds passage")
	}
}

func TestTFIDF_SmoothedIDF(t *testing.T) {
	s := NewTFIDFStrategy(0)
	enc, _, err := s.Fit(context.Background(), []string{"alpha beta", "alpha gamma"})
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	st := enc.(*tfidfEncoder).state

	want := map[string]float64{
		"alpha": math.Log(3.0/3.0) + 1,
		"beta":  math.Log(3.0/2.0) + 1,
		"gamma": math.Log(3.0/2.0) + 1,
	}
	if len(st.Terms) != 3 {
		t.Fatalf("expected 3 terms, got %v", st.Terms)
	}
	for i, term := range st.Terms {
		if math.Abs(st.IDF[i]-want[term]) > 1e-12 {
			t.Errorf("idf(%s) = %f, want %f", term, st.IDF[i], want[term])
		}
	}
}

func TestTFIDF_StopWordsAndShortTokensDropped(t *testing.T) {
	terms := tokenize("The refund is a 5 day process, and it's quick")
	for _, tok := range terms {
		switch tok {
		case "the", "is", "a", "and", "5", "s":
			t.Errorf("unexpected token %q", tok)
		}
	}
	if len(terms) == 0 {
		t.Fatal("expected content tokens")
	}
}

func TestTFIDF_MaxFeaturesKeepsMostFrequent(t *testing.T) {
	s := NewTFIDFStrategy(2)
	enc, vectors, err := s.Fit(context.Background(), []string{
		"refund refund delta",
		"refund delta omega",
		"zebra",
	})
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	st := enc.(*tfidfEncoder).state
	if len(st.Terms) != 2 || st.Terms[0] != "delta" || st.Terms[1] != "refund" {
		t.Errorf("unexpected vocabulary: %v", st.Terms)
	}
	if norm(vectors[2]) != 0 {
		t.Errorf("out-of-vocabulary passage should encode to zero vector")
	}
}

func TestTFIDF_MaxFeaturesTieBreakAlphabetical(t *testing.T) {
	s := NewTFIDFStrategy(1)
	enc, _, err := s.Fit(context.Background(), []string{"zebra alpha"})
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if terms := enc.(*tfidfEncoder).state.Terms; len(terms) != 1 || terms[0] != "alpha" {
		t.Errorf("expected [alpha], got %v", terms)
	}
}

func TestTFIDF_InflectionsShareATerm(t *testing.T) {
	for _, word := range []string{"Refunds", "refunded", "REFUND"} {
		if got := tokenize(word); len(got) != 1 || got[0] != "refund" {
			t.Errorf("tokenize(%q) = %v, want [refund]", word, got)
		}
	}
}

func TestTFIDF_SingularQueryMatchesPluralPassage(t *testing.T) {
	s := NewTFIDFStrategy(0)
	enc, vectors, err := s.Fit(context.Background(), []string{
		"Refunds are processed in 5 days.",
		"Shipping takes 3 business days.",
	})
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	q, err := enc.Encode(context.Background(), "how long for refund")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if norm(q) == 0 {
		t.Fatal("query shares no term with the corpus")
	}
	if score := dot(q, vectors[0]); score <= 0.1 {
		t.Errorf("refunds passage scored %.3f, want > 0.1", score)
	}
	if score := dot(q, vectors[1]); score != 0 {
		t.Errorf("shipping passage scored %.3f, want 0", score)
	}
}

func TestTFIDF_NameCarriesFeatureCap(t *testing.T) {
	if got := NewTFIDFStrategy(0).Name(); got != "sparse/500" {
		t.Errorf("unexpected default name %q", got)
	}
	if NewTFIDFStrategy(100).Name() == NewTFIDFStrategy(200).Name() {
		t.Error("different feature caps must not share an index identity")
	}
}

func TestTFIDF_Deterministic(t *testing.T) {
	texts := []string{"alpha beta gamma", "beta gamma delta", "gamma delta epsilon"}
	_, a, _ := NewTFIDFStrategy(0).Fit(context.Background(), texts)
	_, b, _ := NewTFIDFStrategy(0).Fit(context.Background(), texts)
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("vectors differ at %d,%d", i, j)
			}
		}
	}
}

func TestTFIDF_StateRoundTrip(t *testing.T) {
	s := NewTFIDFStrategy(0)
	enc, _, err := s.Fit(context.Background(), []string{"refunds processed quickly", "shipping takes days"})
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	state, err := enc.State()
	if err != nil {
		t.Fatalf("state failed: %v", err)
	}

	restored, err := s.Restore(state)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	want, _ := enc.Encode(context.Background(), "refunds shipping")
	got, _ := restored.Encode(context.Background(), "refunds shipping")
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("restored encoder differs at %d", i)
		}
	}
}

func TestTFIDF_Errors(t *testing.T) {
	s := NewTFIDFStrategy(0)
	if _, _, err := s.Fit(context.Background(), nil); err == nil {
		t.Error("expected error for empty corpus")
	}
	if _, _, err := s.Fit(context.Background(), []string{"the and of"}); err == nil {
		t.Error("expected error when only stop words remain")
	}
	if _, err := s.Restore([]byte(`{"terms":["a"],"idf":[]}`)); err == nil {
		t.Error("expected error for mismatched state")
	}
	if _, err := s.Restore([]byte(`not json`)); err == nil {
		t.Error("expected error for corrupt state")
	}
}

// mockEmbedder implements ports.EmbeddingService for testing
type mockEmbedder struct {
	err error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestDense_FitAndEncode(t *testing.T) {
	s := NewDenseStrategy(&mockEmbedder{}, "nomic-embed-text")
	if s.Name() != "dense/nomic-embed-text" {
		t.Errorf("unexpected name: %s", s.Name())
	}

	enc, vectors, err := s.Fit(context.Background(), []string{"ab", "abcd"})
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if len(vectors) != 2 || vectors[1][0] != 4 {
		t.Errorf("unexpected vectors: %v", vectors)
	}

	q, err := enc.Encode(context.Background(), "abc")
	if err != nil || q[0] != 3 {
		t.Errorf("unexpected query vector %v, err %v", q, err)
	}
}

func TestDense_RestoreChecksModel(t *testing.T) {
	s := NewDenseStrategy(&mockEmbedder{}, "model-a")
	enc, _, _ := s.Fit(context.Background(), []string{"x"})
	state, _ := enc.State()

	if _, err := s.Restore(state); err != nil {
		t.Errorf("restore with same model failed: %v", err)
	}
	if _, err := NewDenseStrategy(&mockEmbedder{}, "model-b").Restore(state); err == nil {
		t.Error("expected error restoring with a different model")
	}
}

func TestDense_FitError(t *testing.T) {
	boom := errors.New("connection refused")
	s := NewDenseStrategy(&mockEmbedder{err: boom}, "m")
	if _, _, err := s.Fit(context.Background(), []string{"x"}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped embedder error, got %v", err)
	}
}

// lengthEmbedder returns a vector as long as the text, so inputs of
// different lengths produce different dimensions.
type lengthEmbedder struct{}

func (lengthEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, len(text))
	for i := range v {
		v[i] = 1
	}
	return v, nil
}

func (e lengthEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = e.Embed(ctx, text)
	}
	return out, nil
}

func TestDense_FitRejectsMixedDimensions(t *testing.T) {
	s := NewDenseStrategy(lengthEmbedder{}, "m")
	if _, _, err := s.Fit(context.Background(), []string{"ab", "abc"}); err == nil {
		t.Error("expected error for vectors of different dimensions")
	}
}

func TestDense_EncodeRejectsDimensionMismatch(t *testing.T) {
	s := NewDenseStrategy(lengthEmbedder{}, "m")
	enc, _, err := s.Fit(context.Background(), []string{"ab", "cd"})
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	if _, err := enc.Encode(context.Background(), "xy"); err != nil {
		t.Errorf("same dimension should encode: %v", err)
	}
	if _, err := enc.Encode(context.Background(), "xyz"); err == nil {
		t.Error("expected error for a query of a different dimension")
	}

	state, _ := enc.State()
	restored, err := s.Restore(state)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if _, err := restored.Encode(context.Background(), "xyz"); err == nil {
		t.Error("restored encoder should keep the index dimension")
	}

	if _, err := s.Restore([]byte(`{"model":"m"}`)); err == nil {
		t.Error("expected error for state without a dimension")
	}
}
