// Package loader provides corpus loading adapters.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/0xcro3dile/faqbot-go/internal/adapters/parser"
	"github.com/0xcro3dile/faqbot-go/internal/domain/ports"
)

// FileLoader implements ports.TableLoader by reading a file from disk and
// dispatching on its extension to the matching row parser.
type FileLoader struct {
	parsers map[string]ports.RowParser
}

// NewFileLoader creates a loader over the given parsers. Later parsers win
// when two claim the same format.
func NewFileLoader(parsers ...ports.RowParser) *FileLoader {
	l := &FileLoader{parsers: make(map[string]ports.RowParser)}
	for _, p := range parsers {
		for _, format := range p.SupportedFormats() {
			l.parsers["."+strings.ToLower(format)] = p
		}
	}
	return l
}

// NewDefaultLoader handles spreadsheets, delimited text and plain text.
func NewDefaultLoader() *FileLoader {
	return NewFileLoader(
		parser.NewXLSXParser(),
		parser.NewCSVParser(),
		parser.NewTSVParser(),
		parser.NewTextParser(),
	)
}

// Load reads path and returns its rows. A missing file yields an error
// wrapping fs.ErrNotExist.
func (l *FileLoader) Load(ctx context.Context, path string) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := l.parsers[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported corpus format %q", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}

	return p.Parse(ctx, data, filepath.Base(path))
}

// SupportedExtensions returns all supported extensions, sorted.
func (l *FileLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(l.parsers))
	for ext := range l.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
