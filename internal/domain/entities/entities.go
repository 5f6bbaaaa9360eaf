// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import "time"

// Canonical replies. Callers and tests compare against these exact strings.
const (
	RefusalMessage = "I don't know. Please wait for the Human reply."
	OutageMessage  = "I'm currently unavailable. Please try again later."
	FailureMessage = "Sorry, I encountered an error. Please try again."
)

// Passage is one retrievable unit of FAQ text, extracted from one corpus row.
// ID is the 0-based emission index and stays stable for the process lifetime.
type Passage struct {
	ID   int
	Text string
}

// IndexSnapshot is the persisted form of a search index.
// Vectors[i] belongs to Passages[i]; PassageCount is stored separately so a
// snapshot can be validated against the current corpus before it is served.
type IndexSnapshot struct {
	Strategy     string
	Checksum     string
	PassageCount int
	EncoderState []byte
	Passages     []Passage
	Vectors      [][]float32
	CreatedAt    time.Time
}

// ScoredPassage pairs a passage with its similarity to a query.
type ScoredPassage struct {
	Passage Passage
	Score   float64
}

// RetrievalResult is ordered by score descending, then passage ID ascending.
type RetrievalResult []ScoredPassage

// Texts returns the passage texts in retrieval order.
func (r RetrievalResult) Texts() []string {
	texts := make([]string, len(r))
	for i, sp := range r {
		texts[i] = sp.Passage.Text
	}
	return texts
}

// OutcomeKind tells whether the answerer produced a grounded answer.
type OutcomeKind int

const (
	OutcomeNoAnswer OutcomeKind = iota
	OutcomeAnswer
)

// Outcome is the result of grounded generation.
type Outcome struct {
	Kind OutcomeKind
	Text string
}

// NoAnswer is the refusal outcome.
func NoAnswer() Outcome {
	return Outcome{Kind: OutcomeNoAnswer, Text: RefusalMessage}
}

// Answer wraps a grounded answer.
func Answer(text string) Outcome {
	return Outcome{Kind: OutcomeAnswer, Text: text}
}

// ReplyKind classifies what the engine returned to a caller.
type ReplyKind string

const (
	ReplyCanned  ReplyKind = "canned"
	ReplyAnswer  ReplyKind = "answer"
	ReplyRefusal ReplyKind = "refusal"
	ReplyOutage  ReplyKind = "outage"
	ReplyError   ReplyKind = "error"
)

// Reply is the engine's user-facing result with the passages that grounded it.
type Reply struct {
	Text    string
	Kind    ReplyKind
	Sources RetrievalResult
}

// EngineState is the lifecycle of the answering engine.
type EngineState int32

const (
	StateUninitialized EngineState = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s EngineState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ChatMessage represents a conversation turn.
type ChatMessage struct {
	Role    string // "user" or "bot"
	Content string
	At      time.Time
}
