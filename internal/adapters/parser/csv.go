package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// CSVParser implements ports.RowParser for delimited text.
type CSVParser struct {
	comma  rune
	format string
}

// NewCSVParser creates a comma-separated parser.
func NewCSVParser() *CSVParser {
	return &CSVParser{comma: ',', format: "csv"}
}

// NewTSVParser creates a tab-separated parser.
func NewTSVParser() *CSVParser {
	return &CSVParser{comma: '\t', format: "tsv"}
}

// Parse reads every record. Rows may have differing field counts.
func (p *CSVParser) Parse(ctx context.Context, data []byte, filename string) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.Comma = p.comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filename, err)
		}
		rows = append(rows, record)
	}
}

// SupportedFormats returns formats this parser handles.
func (p *CSVParser) SupportedFormats() []string {
	return []string{p.format}
}
