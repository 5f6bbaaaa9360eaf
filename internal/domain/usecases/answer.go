package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
	"github.com/0xcro3dile/faqbot-go/internal/domain/ports"
)

const (
	DefaultMinContextChars = 10
	DefaultGenerateTimeout = 30 * time.Second
	DefaultAssistantName   = "our company"
)

// uncertaintyMarkers trigger the canonical refusal wherever they appear in
// a generated answer.
var uncertaintyMarkers = []string{
	"i don't know",
	"not sure",
	"cannot",
	"no information",
	"i do not know",
	"i'm not sure",
}

// AnswererConfig tunes the grounding gates.
type AnswererConfig struct {
	MinContextChars int
	Timeout         time.Duration
	Retries         int
	RetryBackoff    time.Duration
	AssistantName   string
}

// Answerer constrains a generator to the retrieved context.
type Answerer struct {
	generator ports.Generator
	cfg       AnswererConfig
	log       logrus.FieldLogger
}

// NewAnswerer creates an Answerer with injected dependencies.
func NewAnswerer(generator ports.Generator, cfg AnswererConfig, log logrus.FieldLogger) *Answerer {
	if cfg.MinContextChars <= 0 {
		cfg.MinContextChars = DefaultMinContextChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGenerateTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 250 * time.Millisecond
	}
	if cfg.AssistantName == "" {
		cfg.AssistantName = DefaultAssistantName
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Answerer{
		generator: generator,
		cfg:       cfg,
		log:       log.WithField("component", "answerer"),
	}
}

// Generate answers query from result only. An empty or too short context
// returns the refusal without calling the generator.
func (a *Answerer) Generate(ctx context.Context, query string, result entities.RetrievalResult) (entities.Outcome, error) {
	contextText := strings.TrimSpace(strings.Join(result.Texts(), "\n\n"))
	if len(contextText) < a.cfg.MinContextChars {
		return entities.NoAnswer(), nil
	}

	prompt := a.buildPrompt(query, contextText)

	raw, err := a.callWithRetry(ctx, prompt)
	if err != nil {
		return entities.Outcome{}, &entities.QueryError{Op: "generating answer", Err: err}
	}

	answer := strings.TrimSpace(raw)
	if answer == "" || containsUncertainty(answer) {
		a.log.WithField("answer", answer).Debug("generator hedged, returning refusal")
		return entities.NoAnswer(), nil
	}
	return entities.Answer(answer), nil
}

func (a *Answerer) callWithRetry(ctx context.Context, prompt string) (string, error) {
	var err error
	for attempt := 0; attempt <= a.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", entities.ErrGeneration, ctx.Err())
			case <-time.After(a.cfg.RetryBackoff):
			}
		}

		var out string
		out, err = a.call(ctx, prompt)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, entities.ErrBackendTimeout) {
			return "", err
		}
		a.log.WithField("attempt", attempt+1).Warn("generator timed out")
	}
	return "", err
}

func (a *Answerer) call(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	out, err := a.generator.Generate(callCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %v", entities.ErrBackendTimeout, a.cfg.Timeout, err)
		}
		return "", fmt.Errorf("%w: %v", entities.ErrGeneration, err)
	}
	return out, nil
}

// buildPrompt creates the LLM prompt with context.
func (a *Answerer) buildPrompt(query, contextText string) string {
	var sb strings.Builder
	sb.WriteString("You are an FAQ assistant for ")
	sb.WriteString(a.cfg.AssistantName)
	sb.WriteString(". You only answer questions using the context below.\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Use ONLY the information in the context. Do not use any outside knowledge.\n")
	sb.WriteString("- Do not invent names, numbers, dates, prices or any other details.\n")
	sb.WriteString("- If the answer needs information from several context lines, combine them into one answer.\n")
	sb.WriteString("- If the answer cannot be found in the context, reply with exactly: \"")
	sb.WriteString(entities.RefusalMessage)
	sb.WriteString("\"\n\n")
	sb.WriteString("Context:\n")
	sb.WriteString(contextText)
	sb.WriteString("\n\nUser Question:\n")
	sb.WriteString(query)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

func containsUncertainty(answer string) bool {
	lower := strings.ReplaceAll(strings.ToLower(answer), "’", "'")
	for _, marker := range uncertaintyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
