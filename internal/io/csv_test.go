package io

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

// TestCSVReaderUTF8 tests plain UTF-8 comma-separated input.
func TestCSVReaderUTF8(t *testing.T) {
	path := writeTempFile(t, "data.csv", []byte("Cd Maquina,Descricao\n10,Bomba\n11,\n"))

	reader, err := NewCSVReader([]CSVAttempt{{Encoding: "utf8", Delimiter: ","}})
	if err != nil {
		t.Fatalf("NewCSVReader: %v", err)
	}
	table, err := reader.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	wantHeaders := []string{"Cd Maquina", "Descricao"}
	if !reflect.DeepEqual(table.Headers, wantHeaders) {
		t.Errorf("headers = %v, want %v", table.Headers, wantHeaders)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}
	if table.Rows[0]["Cd Maquina"] != "10" || table.Rows[0]["Descricao"] != "Bomba" {
		t.Errorf("row 0 = %v", table.Rows[0])
	}
	// Empty cells become nil, not "".
	if table.Rows[1]["Descricao"] != nil {
		t.Errorf("empty cell = %v, want nil", table.Rows[1]["Descricao"])
	}
}

// TestCSVReaderLatin1Fallback tests that Latin-1 bytes undecodable as UTF-8
// fall through to the Latin-1 attempt.
func TestCSVReaderLatin1Fallback(t *testing.T) {
	// "Descrição;Função" encoded as Latin-1 (0xE7 = ç, 0xE3 = ã).
	data := []byte("Descri\xe7\xe3o;Setor\nInje\xe7\xe3o;A\n")
	path := writeTempFile(t, "latin.csv", data)

	reader, err := NewCSVReader([]CSVAttempt{
		{Encoding: "utf8", Delimiter: ";"},
		{Encoding: "latin1", Delimiter: ";"},
	})
	if err != nil {
		t.Fatalf("NewCSVReader: %v", err)
	}
	table, err := reader.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if table.Headers[0] != "Descrição" {
		t.Errorf("header = %q, want %q", table.Headers[0], "Descrição")
	}
	if table.Rows[0]["Descrição"] != "Injeção" {
		t.Errorf("cell = %v, want Injeção", table.Rows[0]["Descrição"])
	}
}

// TestCSVReaderDelimiterFallback tests the wrong-delimiter heuristic.
func TestCSVReaderDelimiterFallback(t *testing.T) {
	path := writeTempFile(t, "semi.csv", []byte("a;b;c\n1;2;3\n"))

	reader, err := NewCSVReader([]CSVAttempt{
		{Encoding: "utf8", Delimiter: ","},
		{Encoding: "utf8", Delimiter: ";"},
	})
	if err != nil {
		t.Fatalf("NewCSVReader: %v", err)
	}
	table, err := reader.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(table.Headers, []string{"a", "b", "c"}) {
		t.Errorf("headers = %v, want [a b c]", table.Headers)
	}
}

// TestCSVReaderSkipsBadRows tests that rows with a wrong field count are
// dropped rather than aborting the batch.
func TestCSVReaderSkipsBadRows(t *testing.T) {
	path := writeTempFile(t, "bad.csv", []byte("a,b\n1,2\n1,2,3\n4,5\n"))

	reader, err := NewCSVReader(nil)
	if err != nil {
		t.Fatalf("NewCSVReader: %v", err)
	}
	table, err := reader.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Errorf("got %d rows, want 2 (bad row skipped)", len(table.Rows))
	}
}

// TestCSVReaderEmptyFile tests that an unparseable file yields one error.
func TestCSVReaderEmptyFile(t *testing.T) {
	path := writeTempFile(t, "empty.csv", nil)

	reader, err := NewCSVReader(nil)
	if err != nil {
		t.Fatalf("NewCSVReader: %v", err)
	}
	if _, err := reader.Read(path); err == nil {
		t.Error("Read of empty file succeeded, want error")
	}
}

// TestCSVReaderDuplicateHeaders tests duplicate header renaming.
func TestCSVReaderDuplicateHeaders(t *testing.T) {
	path := writeTempFile(t, "dup.csv", []byte("Situacao,Valor,Situacao\nA,1,B\n"))

	reader, err := NewCSVReader(nil)
	if err != nil {
		t.Fatalf("NewCSVReader: %v", err)
	}
	table, err := reader.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	wantHeaders := []string{"Situacao", "Valor", "Situacao_2"}
	if !reflect.DeepEqual(table.Headers, wantHeaders) {
		t.Errorf("headers = %v, want %v", table.Headers, wantHeaders)
	}
	if table.Rows[0]["Situacao"] != "A" || table.Rows[0]["Situacao_2"] != "B" {
		t.Errorf("row = %v", table.Rows[0])
	}
}

// TestNewCSVReaderValidation tests profile validation.
func TestNewCSVReaderValidation(t *testing.T) {
	if _, err := NewCSVReader([]CSVAttempt{{Encoding: "utf8", Delimiter: ";;"}}); err == nil {
		t.Error("multi-rune delimiter accepted, want error")
	}
	if _, err := NewCSVReader([]CSVAttempt{{Encoding: "ebcdic", Delimiter: ","}}); err == nil {
		t.Error("unknown encoding accepted, want error")
	}
}

// TestNewTableReaderDispatch tests extension-based reader selection.
func TestNewTableReaderDispatch(t *testing.T) {
	if _, err := NewTableReader("file.csv", nil); err != nil {
		t.Errorf("csv dispatch failed: %v", err)
	}
	if _, err := NewTableReader("file.XLSX", nil); err != nil {
		t.Errorf("xlsx dispatch failed: %v", err)
	}
	if _, err := NewTableReader("file.pdf", nil); err == nil {
		t.Error("unsupported extension accepted, want error")
	}
}
