// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
// They contain no framework code - just the answering policy.
package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
	"github.com/0xcro3dile/faqbot-go/internal/domain/ports"
)

// CorpusUseCase turns a tabular file into passages.
type CorpusUseCase struct {
	loader ports.TableLoader
}

// NewCorpusUseCase creates a CorpusUseCase with an injected loader.
func NewCorpusUseCase(loader ports.TableLoader) *CorpusUseCase {
	return &CorpusUseCase{loader: loader}
}

// LoadCorpus reads every row, joins its non-empty cells with a single space
// and emits one passage per non-empty row, in file order.
func (uc *CorpusUseCase) LoadCorpus(ctx context.Context, path string) ([]entities.Passage, error) {
	rows, err := uc.loader.Load(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", entities.ErrCorpusNotFound, path)
		}
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	passages := rowsToPassages(rows)
	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: %s", entities.ErrCorpusEmpty, path)
	}
	return passages, nil
}

func rowsToPassages(rows [][]string) []entities.Passage {
	var passages []entities.Passage
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell != "" {
				cells = append(cells, cell)
			}
		}

		text := strings.TrimSpace(strings.Join(cells, " "))
		if text == "" {
			continue
		}
		passages = append(passages, entities.Passage{
			ID:   len(passages),
			Text: text,
		})
	}
	return passages
}

// corpusChecksum fingerprints passage texts and their order.
func corpusChecksum(passages []entities.Passage) string {
	h := sha256.New()
	for _, p := range passages {
		h.Write([]byte(p.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
