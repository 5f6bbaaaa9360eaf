package parser

import (
	"context"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, sheets map[string][][]interface{}, order []string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("renaming sheet: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("creating sheet: %v", err)
		}
		for r, row := range sheets[name] {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("writing row: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("writing workbook: %v", err)
	}
	return buf.Bytes()
}

func TestXLSXParser_ReadsAllSheetsInOrder(t *testing.T) {
	data := workbook(t, map[string][][]interface{}{
		"General": {
			{"Question", "Answer"},
			{"What are your hours?", "9 to 5"},
		},
		"Shipping": {
			{"Do you ship abroad?", "Yes"},
		},
	}, []string{"General", "Shipping"})

	rows, err := NewXLSXParser().Parse(context.Background(), data, "faq.xlsx")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	want := [][]string{
		{"Question", "Answer"},
		{"What are your hours?", "9 to 5"},
		{"Do you ship abroad?", "Yes"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("unexpected rows:\n got %v\nwant %v", rows, want)
	}
}

func TestXLSXParser_InvalidData(t *testing.T) {
	if _, err := NewXLSXParser().Parse(context.Background(), []byte("not a workbook"), "faq.xlsx"); err == nil {
		t.Error("should error on invalid workbook")
	}
}

func TestCSVParser_Parse(t *testing.T) {
	data := []byte("\xef\xbb\xbfQuestion,Answer\n\"Refunds, how long?\",5 days\nlonely\n")

	rows, err := NewCSVParser().Parse(context.Background(), data, "faq.csv")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	want := [][]string{{"Question", "Answer"}, {"Refunds, how long?", "5 days"}, {"lonely"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("unexpected rows: %v", rows)
	}
}

func TestTSVParser_Parse(t *testing.T) {
	rows, err := NewTSVParser().Parse(context.Background(), []byte("a\tb\nc\td\n"), "faq.tsv")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != "d" {
		t.Errorf("unexpected rows: %v", rows)
	}
	if NewTSVParser().SupportedFormats()[0] != "tsv" {
		t.Error("tsv parser should report tsv format")
	}
}

func TestTextParser_Parse(t *testing.T) {
	rows, err := NewTextParser().Parse(context.Background(), []byte("first\r\nsecond\n"), "faq.txt")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := [][]string{{"first"}, {"second"}, {""}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("unexpected rows: %v", rows)
	}
}
