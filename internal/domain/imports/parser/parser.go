// Package parser reads uploaded CSV and Excel spreadsheets into raw tables.
// It deals only with bytes, encodings and cell geometry; header semantics and
// row validation live one layer up.
package parser

import (
	"errors"
	"strings"
)

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrNoHeaderRow      = errors.New("could not find a header row")
	ErrUnsupportedFile  = errors.New("unsupported file type")
	ErrInvalidDelimiter = errors.New("could not detect a valid delimiter")
)

// RawTable is a parsed spreadsheet: one header row plus data rows, all cells
// as trimmed strings. Rows may be ragged; missing cells read as "".
type RawTable struct {
	Headers []string
	Rows    [][]string
}

// Cell returns the value of column idx in row, or "" when the row is shorter.
func (t *RawTable) Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Parse dispatches on the uploaded filename's extension.
func Parse(filename string, data []byte) (*RawTable, error) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".csv"), strings.HasSuffix(name, ".tsv"), strings.HasSuffix(name, ".txt"):
		return ParseCSV(data)
	case strings.HasSuffix(name, ".xlsx"), strings.HasSuffix(name, ".xlsm"):
		return ParseXLSX(data)
	default:
		return nil, ErrUnsupportedFile
	}
}
