package io

import (
	"fmt"
	"path/filepath"
	"strings"

	"maintsync/internal/logging"
)

// Row is one data row keyed by header label. Absent cells hold nil, never
// the empty string, so coercers can treat "missing" uniformly.
type Row = map[string]interface{}

// Table is the parsed content of one tabular file. Headers preserves the
// file's column order, which the column-shift repair depends on.
type Table struct {
	Headers []string
	Rows    []Row
}

// TableReader parses a tabular file into a Table.
type TableReader interface {
	Read(filePath string) (*Table, error)
}

// CSVAttempt is one (encoding, delimiter) combination tried when decoding a
// delimited text file. Attempts run in order until one succeeds.
type CSVAttempt struct {
	Encoding  string `yaml:"encoding"`
	Delimiter string `yaml:"delimiter"`
}

// NewTableReader selects a reader by file extension. Spreadsheets read the
// first worksheet; delimited text files use the entity's attempt profile.
func NewTableReader(filePath string, attempts []CSVAttempt) (TableReader, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	logging.Logf(logging.Debug, "creating table reader for extension '%s'", ext)

	switch ext {
	case ".xlsx", ".xlsm", ".xls":
		return NewXLSXReader(), nil
	case ".csv", ".txt":
		return NewCSVReader(attempts)
	default:
		return nil, fmt.Errorf("unsupported file extension '%s'", ext)
	}
}

// uniqueHeaders trims raw header labels, synthesizes placeholder names for
// blank cells, and suffixes repeated labels so every column survives with a
// distinct key.
func uniqueHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	headers := make([]string, 0, len(raw))
	for i, h := range raw {
		header := strings.TrimSpace(h)
		if header == "" {
			header = fmt.Sprintf("column_%d", i+1)
			logging.Logf(logging.Debug, "blank header in column %d, using placeholder '%s'", i+1, header)
		}
		seen[header]++
		if n := seen[header]; n > 1 {
			logging.Logf(logging.Warning, "duplicate header '%s' in column %d, renaming to '%s_%d'", header, i+1, header, n)
			header = fmt.Sprintf("%s_%d", header, n)
		}
		headers = append(headers, header)
	}
	return headers
}

// rowIsEmpty reports whether every cell of a row is absent or blank text.
func rowIsEmpty(row Row) bool {
	for _, v := range row {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			if strings.TrimSpace(s) == "" {
				continue
			}
		}
		return false
	}
	return true
}
