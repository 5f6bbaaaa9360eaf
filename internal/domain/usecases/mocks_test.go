package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
	"github.com/0xcro3dile/faqbot-go/internal/domain/ports"
)

// mockLoader implements ports.TableLoader for testing
type mockLoader struct {
	mu    sync.Mutex
	rows  [][]string
	err   error
	calls int
}

func (m *mockLoader) Load(ctx context.Context, path string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func (m *mockLoader) SupportedExtensions() []string {
	return []string{".xlsx"}
}

func (m *mockLoader) setRows(rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = rows
}

func missingFile() error {
	return &fs.PathError{Op: "open", Path: "faq.xlsx", Err: fs.ErrNotExist}
}

// mockGenerator implements ports.Generator for testing
type mockGenerator struct {
	response string
	err      error
	delay    time.Duration
	calls    atomic.Int32

	mu      sync.Mutex
	prompts []string
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockGenerator) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

func generatorFactory(g ports.Generator) ports.GeneratorFactory {
	return func(ctx context.Context) (ports.Generator, error) {
		return g, nil
	}
}

// wordStrategy is a bag-of-words ports.EncodingStrategy: one dimension per
// distinct lowercase word seen at fit time.
type wordStrategy struct {
	name   string
	fits   atomic.Int32
	fitErr error
	delay  time.Duration
}

type wordEncoder struct {
	Vocab map[string]int `json:"vocab"`
}

func (s *wordStrategy) Name() string {
	if s.name == "" {
		return "words"
	}
	return s.name
}

func (s *wordStrategy) Fit(ctx context.Context, texts []string) (ports.Encoder, [][]float32, error) {
	s.fits.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.fitErr != nil {
		return nil, nil, s.fitErr
	}

	enc := &wordEncoder{Vocab: make(map[string]int)}
	for _, text := range texts {
		for _, w := range words(text) {
			if _, ok := enc.Vocab[w]; !ok {
				enc.Vocab[w] = len(enc.Vocab)
			}
		}
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i], _ = enc.Encode(ctx, text)
	}
	return enc, vectors, nil
}

func (s *wordStrategy) Restore(state []byte) (ports.Encoder, error) {
	enc := &wordEncoder{}
	if err := json.Unmarshal(state, enc); err != nil {
		return nil, err
	}
	return enc, nil
}

func (e *wordEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(e.Vocab))
	for _, w := range words(text) {
		if i, ok := e.Vocab[w]; ok {
			vec[i]++
		}
	}
	return vec, nil
}

func (e *wordEncoder) State() ([]byte, error) {
	return json.Marshal(e)
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// failingEncoder always fails to encode queries.
type failingEncoder struct{}

func (failingEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("encoder unavailable")
}

func (failingEncoder) State() ([]byte, error) { return nil, nil }

// mockStore implements ports.IndexStore in memory
type mockStore struct {
	mu    sync.Mutex
	snap  *entities.IndexSnapshot
	saves int
	err   error
}

func (m *mockStore) Load(ctx context.Context) (*entities.IndexSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.snap == nil {
		return nil, entities.ErrIndexNotFound
	}
	return m.snap, nil
}

func (m *mockStore) Save(ctx context.Context, snap *entities.IndexSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.snap = snap
	return nil
}

func (m *mockStore) Close() error { return nil }

// mockWatcher implements ports.FileWatcher with a test-driven channel
type mockWatcher struct {
	events chan ports.FileEvent
}

func (m *mockWatcher) Watch(ctx context.Context, path string) (<-chan ports.FileEvent, error) {
	return m.events, nil
}

func (m *mockWatcher) Stop() error { return nil }

// countingReloader records Reload calls.
type countingReloader struct {
	calls atomic.Int32
	err   error
}

func (r *countingReloader) Reload(ctx context.Context) error {
	r.calls.Add(1)
	return r.err
}

func faqRows(texts ...string) [][]string {
	rows := make([][]string, len(texts))
	for i, t := range texts {
		rows[i] = []string{t}
	}
	return rows
}

func passagesOf(texts ...string) []entities.Passage {
	passages := make([]entities.Passage, len(texts))
	for i, t := range texts {
		passages[i] = entities.Passage{ID: i, Text: t}
	}
	return passages
}
