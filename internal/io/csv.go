package io

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"maintsync/internal/logging"
	"maintsync/internal/util"
)

// CSVReader reads delimited text files, trying each configured
// (encoding, delimiter) attempt in order. The source systems export the
// same entity with different encodings and separators depending on which
// screen produced the file, so a fixed combination cannot be assumed.
type CSVReader struct {
	attempts []CSVAttempt
}

// NewCSVReader validates the attempt profile and builds a reader. An empty
// profile defaults to UTF-8 with a comma.
func NewCSVReader(attempts []CSVAttempt) (*CSVReader, error) {
	if len(attempts) == 0 {
		attempts = []CSVAttempt{{Encoding: "utf8", Delimiter: ","}}
	}
	for _, a := range attempts {
		if utf8.RuneCountInString(a.Delimiter) != 1 {
			return nil, fmt.Errorf("invalid delimiter '%s': must be a single character", a.Delimiter)
		}
		switch normalizeEncodingName(a.Encoding) {
		case "utf8", "latin1", "cp1252":
		default:
			return nil, fmt.Errorf("unsupported encoding '%s'", a.Encoding)
		}
	}
	return &CSVReader{attempts: attempts}, nil
}

// Read parses the file with the first attempt that yields a plausible
// table. Failure of every attempt is a single batch-level error.
func (cr *CSVReader) Read(filePath string) (*Table, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s': %w", filePath, err)
	}

	var lastErr error
	for i, attempt := range cr.attempts {
		table, err := cr.parseAttempt(data, attempt, i == len(cr.attempts)-1)
		if err != nil {
			logging.Logf(logging.Debug, "csv attempt %d (%s '%s') on '%s' failed: %v",
				i+1, attempt.Encoding, attempt.Delimiter, filePath, err)
			lastErr = err
			continue
		}
		logging.Logf(logging.Debug, "csv file '%s' parsed with encoding %s, delimiter '%s': %d rows",
			filePath, attempt.Encoding, attempt.Delimiter, len(table.Rows))
		return table, nil
	}
	logging.Logf(logging.Debug, "unparseable input starts with: %s", util.Snippet(data))
	return nil, fmt.Errorf("failed to parse '%s' with any configured encoding/delimiter: %w", filePath, lastErr)
}

func (cr *CSVReader) parseAttempt(data []byte, attempt CSVAttempt, last bool) (*Table, error) {
	text, err := decodeBytes(data, attempt.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = []rune(attempt.Delimiter)[0]
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv parse error: %w", err)
	}
	if len(allRows) == 0 {
		return nil, fmt.Errorf("file is empty")
	}
	// A one-column header usually means the wrong delimiter was tried.
	if len(allRows[0]) < 2 && !last {
		return nil, fmt.Errorf("header has %d column(s), delimiter '%s' looks wrong", len(allRows[0]), attempt.Delimiter)
	}

	headers := uniqueHeaders(allRows[0])
	rows := make([]Row, 0, len(allRows)-1)
	for i, raw := range allRows[1:] {
		rowNum := i + 2
		if len(raw) != len(headers) {
			logging.Logf(logging.Warning, "row %d has %d fields, expected %d; skipping", rowNum, len(raw), len(headers))
			continue
		}
		rec := make(Row, len(headers))
		for col, value := range raw {
			trimmed := strings.TrimSpace(value)
			if trimmed == "" {
				rec[headers[col]] = nil
			} else {
				rec[headers[col]] = value
			}
		}
		rows = append(rows, rec)
	}
	return &Table{Headers: headers, Rows: rows}, nil
}

func normalizeEncodingName(name string) string {
	switch strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(name, "-", ""), "_", "")) {
	case "", "utf8":
		return "utf8"
	case "latin1", "iso88591":
		return "latin1"
	case "cp1252", "windows1252":
		return "cp1252"
	default:
		return name
	}
}

// decodeBytes converts raw file bytes to a string in the given encoding.
// UTF-8 input is validated rather than converted; the single-byte encodings
// are transcoded through x/text charmaps.
func decodeBytes(data []byte, encoding string) (string, error) {
	switch normalizeEncodingName(encoding) {
	case "utf8":
		data = stripBOM(data)
		if !utf8.Valid(data) {
			return "", fmt.Errorf("input is not valid UTF-8")
		}
		return string(data), nil
	case "latin1":
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("latin-1 decode failed: %w", err)
		}
		return string(decoded), nil
	case "cp1252":
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("cp1252 decode failed: %w", err)
		}
		return string(decoded), nil
	default:
		return "", fmt.Errorf("unsupported encoding '%s'", encoding)
	}
}

func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
