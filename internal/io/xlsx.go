package io

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"maintsync/internal/logging"
)

// XLSXReader reads the first worksheet of an Excel workbook. Row 1 supplies
// the headers; entirely blank rows are dropped.
type XLSXReader struct{}

// NewXLSXReader creates a reader for Excel files.
func NewXLSXReader() *XLSXReader {
	return &XLSXReader{}
}

// Read loads the active (or first) sheet of the workbook into a Table.
func (xr *XLSXReader) Read(filePath string) (*Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet '%s': %w", filePath, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logging.Logf(logging.Error, "failed to close spreadsheet '%s': %v", filePath, cerr)
		}
	}()

	sheetName := f.GetSheetName(f.GetActiveSheetIndex())
	if sheetName == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, fmt.Errorf("spreadsheet '%s' contains no sheets", filePath)
		}
		sheetName = list[0]
	}
	logging.Logf(logging.Debug, "reading sheet '%s' of '%s'", sheetName, filePath)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet '%s' in '%s': %w", sheetName, filePath, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("sheet '%s' in '%s' has no header row", sheetName, filePath)
	}

	headers := uniqueHeaders(rows[0])
	if len(headers) == 0 {
		return nil, fmt.Errorf("sheet '%s' in '%s' has no usable headers", sheetName, filePath)
	}

	out := make([]Row, 0, len(rows)-1)
	for _, raw := range rows[1:] {
		rec := make(Row, len(headers))
		for col, header := range headers {
			value := ""
			if col < len(raw) {
				value = raw[col]
			}
			if strings.TrimSpace(value) == "" {
				rec[header] = nil
			} else {
				rec[header] = value
			}
		}
		if rowIsEmpty(rec) {
			continue
		}
		out = append(out, rec)
	}

	logging.Logf(logging.Debug, "loaded %d rows from sheet '%s' in '%s'", len(out), sheetName, filePath)
	return &Table{Headers: headers, Rows: out}, nil
}
