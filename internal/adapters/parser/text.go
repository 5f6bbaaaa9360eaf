package parser

import (
	"context"
	"strings"
)

// TextParser implements ports.RowParser for plain text: one row per line.
type TextParser struct{}

// NewTextParser creates a new line-oriented parser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse splits data into single-cell rows.
func (p *TextParser) Parse(ctx context.Context, data []byte, filename string) ([][]string, error) {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, []string{line})
	}
	return rows, nil
}

// SupportedFormats returns formats this parser handles.
func (p *TextParser) SupportedFormats() []string {
	return []string{"txt", "md"}
}
