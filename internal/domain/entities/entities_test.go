package entities

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetrievalResult_Texts(t *testing.T) {
	result := RetrievalResult{
		{Passage: Passage{ID: 1, Text: "second"}, Score: 0.9},
		{Passage: Passage{ID: 0, Text: "first"}, Score: 0.5},
	}

	texts := result.Texts()
	if len(texts) != 2 {
		t.Fatalf("expected 2 texts, got %d", len(texts))
	}
	if texts[0] != "second" || texts[1] != "first" {
		t.Errorf("texts not in retrieval order: %v", texts)
	}
}

func TestOutcome_NoAnswerCarriesRefusal(t *testing.T) {
	out := NoAnswer()
	if out.Kind != OutcomeNoAnswer {
		t.Errorf("expected no-answer kind, got %v", out.Kind)
	}
	if out.Text != "I don't know. Please wait for the Human reply." {
		t.Errorf("unexpected refusal text: %q", out.Text)
	}
}

func TestOutcome_Answer(t *testing.T) {
	out := Answer("Refunds take 5 days.")
	if out.Kind != OutcomeAnswer || out.Text != "Refunds take 5 days." {
		t.Errorf("unexpected outcome: %+v", out)
	}
}

func TestEngineState_String(t *testing.T) {
	cases := map[EngineState]string{
		StateUninitialized: "uninitialized",
		StateInitializing:  "initializing",
		StateReady:         "ready",
		StateFailed:        "failed",
		EngineState(42):    "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("state %d: expected %q, got %q", state, want, got)
		}
	}
}

func TestInitializationError_Unwraps(t *testing.T) {
	err := fmt.Errorf("engine: %w", &InitializationError{Stage: "corpus", Err: ErrCorpusEmpty})

	if !errors.Is(err, ErrCorpusEmpty) {
		t.Error("expected errors.Is to find ErrCorpusEmpty")
	}
	var initErr *InitializationError
	if !errors.As(err, &initErr) || initErr.Stage != "corpus" {
		t.Errorf("expected InitializationError with stage corpus, got %v", err)
	}
}

func TestQueryError_Unwraps(t *testing.T) {
	err := &QueryError{Op: "generate", Err: ErrBackendTimeout}

	if !errors.Is(err, ErrBackendTimeout) {
		t.Error("expected errors.Is to find ErrBackendTimeout")
	}
	if err.Error() != "generate: generation backend timed out" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
