package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// sheetPreferences are tried in order before falling back to the first sheet.
var sheetPreferences = []string{
	"ventes", "sales", "stock", "produits", "products",
	"data", "feuil1", "sheet1",
}

// ParseXLSX reads the most plausible sheet of an Excel workbook into a
// RawTable. The first non-empty row is taken as the header.
func ParseXLSX(data []byte) (*RawTable, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := findDataSheet(f)
	if sheetName == "" {
		return nil, ErrNoHeaderRow
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}

	table := &RawTable{}
	for _, row := range rows {
		if isEmptyRecord(row) {
			continue
		}

		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}

		if table.Headers == nil {
			table.Headers = row
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	if table.Headers == nil {
		return nil, ErrNoHeaderRow
	}
	return table, nil
}

// findDataSheet prefers conventionally named sheets, then the first sheet
// that has any rows.
func findDataSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}

	for _, preferred := range sheetPreferences {
		for _, sheet := range sheets {
			if strings.EqualFold(sheet, preferred) {
				return sheet
			}
		}
	}

	return sheets[0]
}
