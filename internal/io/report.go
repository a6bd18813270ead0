package io

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/xuri/excelize/v2"

	"maintsync/internal/logging"
)

// RowErrorWriter appends rejected rows and their error messages to a CSV
// file so an operator can fix and re-import them. Headers come from the
// first record written; the file is opened in append mode.
type RowErrorWriter struct {
	filePath      string
	file          *os.File
	writer        *csv.Writer
	headers       []string
	mu            sync.Mutex
	headerWritten bool
	closed        bool
}

// NewRowErrorWriter opens (or creates) the error report file for appending.
func NewRowErrorWriter(filePath string) (*RowErrorWriter, error) {
	dir := filepath.Dir(filePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for '%s': %w", filePath, err)
		}
	}
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open error report '%s': %w", filePath, err)
	}

	writer := csv.NewWriter(f)
	return &RowErrorWriter{filePath: filePath, file: f, writer: writer}, nil
}

// Write appends one rejected row together with its source row number and
// error message.
func (w *RowErrorWriter) Write(rowNum int, message string, record Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("write called on closed error report writer")
	}

	if !w.headerWritten {
		info, err := w.file.Stat()
		writeHeader := err != nil || info.Size() == 0

		headers := make([]string, 0, len(record)+2)
		for k := range record {
			headers = append(headers, k)
		}
		sort.Strings(headers)
		w.headers = append([]string{"source_row", "import_error"}, headers...)

		if writeHeader {
			if err := w.writer.Write(w.headers); err != nil {
				return fmt.Errorf("failed to write error report header to '%s': %w", w.filePath, err)
			}
		}
		w.headerWritten = true
	}

	row := make([]string, len(w.headers))
	row[0] = strconv.Itoa(rowNum)
	row[1] = message
	for i, header := range w.headers[2:] {
		if val, ok := record[header]; ok && val != nil {
			row[i+2] = fmt.Sprintf("%v", val)
		}
	}

	if err := w.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write error report row to '%s': %w", w.filePath, err)
	}
	// Flush per row so a crash mid-import keeps the report usable.
	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes and closes the report file. Safe to call more than once.
func (w *RowErrorWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.writer == nil || w.file == nil {
		return nil
	}
	w.closed = true

	w.writer.Flush()
	flushErr := w.writer.Error()
	closeErr := w.file.Close()
	w.file = nil
	w.writer = nil

	if flushErr != nil {
		return fmt.Errorf("error report flush failed for '%s': %w", w.filePath, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("error report close failed for '%s': %w", w.filePath, closeErr)
	}
	logging.Logf(logging.Debug, "error report written: %s", w.filePath)
	return nil
}

// ReportSheet is one worksheet of a generated report workbook.
type ReportSheet struct {
	Name string
	Rows [][]string
}

// WriteXLSXReport writes a multi-sheet report workbook, one sheet per
// section. Used for the reconciliation report.
func WriteXLSXReport(filePath string, sheets []ReportSheet) error {
	if len(sheets) == 0 {
		return errors.New("report needs at least one sheet")
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logging.Logf(logging.Error, "failed to close report workbook: %v", err)
		}
	}()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return fmt.Errorf("failed to name sheet '%s': %w", sheet.Name, err)
			}
		} else {
			if _, err := f.NewSheet(sheet.Name); err != nil {
				return fmt.Errorf("failed to create sheet '%s': %w", sheet.Name, err)
			}
		}
		for rowIdx, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, rowIdx+1)
			if err != nil {
				return fmt.Errorf("bad cell coordinates on sheet '%s': %w", sheet.Name, err)
			}
			values := make([]interface{}, len(row))
			for j, v := range row {
				values[j] = v
			}
			if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
				return fmt.Errorf("failed to write row %d of sheet '%s': %w", rowIdx+1, sheet.Name, err)
			}
		}
	}

	dir := filepath.Dir(filePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for '%s': %w", filePath, err)
		}
	}
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("failed to save report '%s': %w", filePath, err)
	}
	logging.Logf(logging.Info, "report written: %s", filePath)
	return nil
}
