package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ParseCSV reads a delimited text file into a RawTable. It strips a UTF-8
// BOM, falls back to Latin-1 when the bytes are not valid UTF-8 (older French
// register exports), and detects the delimiter from the header line.
func ParseCSV(data []byte) (*RawTable, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	data = normalizeEncoding(data)

	headerLine := firstNonEmptyLine(data)
	if headerLine == "" {
		return nil, ErrNoHeaderRow
	}

	delimiter := detectDelimiter(headerLine)
	if delimiter == 0 {
		// A single-column file has no delimiter to find; that is still a
		// malformed import for this schema.
		return nil, ErrInvalidDelimiter
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	table := &RawTable{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}

		if isEmptyRecord(record) {
			continue
		}

		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}

		if table.Headers == nil {
			table.Headers = record
			continue
		}
		table.Rows = append(table.Rows, record)
	}

	if table.Headers == nil {
		return nil, ErrNoHeaderRow
	}
	return table, nil
}

// normalizeEncoding strips a UTF-8 BOM and transcodes Latin-1 input.
func normalizeEncoding(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	if utf8.Valid(data) {
		return data
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return decoded
}

func firstNonEmptyLine(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

// detectDelimiter picks the candidate occurring most often in the header
// line. Semicolon and tab are checked alongside comma because French Excel
// exports default to semicolons.
func detectDelimiter(line string) rune {
	best := rune(0)
	bestCount := 0
	for _, d := range []rune{';', '\t', ',', '|'} {
		if count := strings.Count(line, string(d)); count > bestCount {
			bestCount = count
			best = d
		}
	}
	return best
}

func isEmptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
