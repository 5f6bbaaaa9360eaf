// Package parser provides tabular corpus parsers.
// Clean Architecture: Adapters implementing ports.RowParser.
package parser

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXParser implements ports.RowParser for Excel workbooks.
// Every sheet is read, in workbook order.
type XLSXParser struct{}

// NewXLSXParser creates a new spreadsheet parser.
func NewXLSXParser() *XLSXParser {
	return &XLSXParser{}
}

// Parse extracts the rows of every sheet in the workbook.
func (p *XLSXParser) Parse(ctx context.Context, data []byte, filename string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", filename, err)
	}
	defer f.Close()

	var rows [][]string
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sheetRows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q of %s: %w", sheet, filename, err)
		}
		rows = append(rows, sheetRows...)
	}
	return rows, nil
}

// SupportedFormats returns formats this parser handles.
func (p *XLSXParser) SupportedFormats() []string {
	return []string{"xlsx", "xlsm", "xltx", "xltm"}
}
