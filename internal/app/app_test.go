package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	maintio "maintsync/internal/io"
	"maintsync/internal/model"
	"maintsync/internal/store"
)

// newTestRunner returns a runner writing to a buffer and wires the store
// factory to an in-memory store.
func newTestRunner(t *testing.T, mem *store.Memory) (*AppRunner, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	origStore := newStoreFunc
	newStoreFunc = func(ctx context.Context, connStr string) (store.Store, func(), error) {
		return mem, func() {}, nil
	}
	t.Cleanup(func() { newStoreFunc = origStore })

	// Keep the default error report out of the working directory.
	origWriter := newRowErrorWriterFunc
	dir := t.TempDir()
	newRowErrorWriterFunc = func(path string) (*maintio.RowErrorWriter, error) {
		return maintio.NewRowErrorWriter(filepath.Join(dir, filepath.Base(path)))
	}
	t.Cleanup(func() { newRowErrorWriterFunc = origWriter })

	return &AppRunner{out: &buf}, &buf
}

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestRunHelpAndNoArgs(t *testing.T) {
	runner := NewAppRunner()
	if err := runner.Run([]string{}); err != nil {
		t.Errorf("no args: expected nil error, got %v", err)
	}
	if err := runner.Run([]string{"-help"}); err != nil {
		t.Errorf("-help: expected nil error, got %v", err)
	}
}

func TestRunArgumentErrors(t *testing.T) {
	t.Setenv("DB_CREDENTIALS", "")
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"missing mode", []string{"-db", "test"}, ErrMissingArgs},
		{"unknown mode", []string{"-mode", "export"}, ErrUsage},
		{"import without entity", []string{"-mode", "import", "-file", "x.csv"}, ErrMissingArgs},
		{"import without file", []string{"-mode", "import", "-entity", "machines"}, ErrMissingArgs},
		{"link without ids", []string{"-mode", "link"}, ErrMissingArgs},
		{"bad date", []string{"-mode", "import", "-entity", "requisitions", "-file", "x.csv", "-date", "01/02/2025"}, ErrUsage},
		{"no database", []string{"-mode", "reconcile"}, ErrMissingArgs},
		{"config not found", []string{"-mode", "reconcile", "-config", filepath.Join(t.TempDir(), "missing.yaml")}, ErrConfigNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, _ := newTestRunner(t, store.NewMemory())
			err := runner.Run(tt.args)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Run(%v) error = %v, want %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestRunImport(t *testing.T) {
	mem := store.NewMemory()
	runner, buf := newTestRunner(t, mem)
	file := writeTempCSV(t, "machines.csv",
		"CD_MAQUINA,DESCR_MAQUINA\n101,Prensa\n102,Torno\n")

	err := runner.Run([]string{"-mode", "import", "-entity", "machines", "-file", file, "-db", "test", "-loglevel", "none"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "Criados: 2") {
		t.Errorf("summary missing created count, got:\n%s", buf.String())
	}
	if _, err := mem.GetMachineByCode(context.Background(), 101); err != nil {
		t.Errorf("machine 101 was not persisted: %v", err)
	}
}

func TestRunImportErrorCap(t *testing.T) {
	runner, buf := newTestRunner(t, store.NewMemory())

	var sb strings.Builder
	sb.WriteString("CD_MAQUINA,DESCR_MAQUINA\n")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&sb, ",maquina sem codigo %d\n", i)
	}
	file := writeTempCSV(t, "bad.csv", sb.String())

	err := runner.Run([]string{"-mode", "import", "-entity", "machines", "-file", file, "-db", "test", "-loglevel", "none"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Erros: 12") {
		t.Errorf("expected 12 errors in summary, got:\n%s", out)
	}
	if !strings.Contains(out, "... e mais 2 erros") {
		t.Errorf("expected truncation line, got:\n%s", out)
	}
	if strings.Count(out, "Row ") != maxDisplayedErrors {
		t.Errorf("expected %d displayed rows, got:\n%s", maxDisplayedErrors, out)
	}
}

func TestRunLink(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	numero := int64(7)
	plan := model.PreventivePlan{NumeroPlano: &numero}
	if err := mem.InsertPlan(ctx, &plan); err != nil {
		t.Fatalf("insert plan: %v", err)
	}
	routine := model.MaintenanceRoutine{}
	if err := mem.InsertRoutine(ctx, &routine); err != nil {
		t.Fatalf("insert routine: %v", err)
	}

	runner, buf := newTestRunner(t, mem)
	args := []string{
		"-mode", "link",
		"-plan", fmt.Sprintf("%d", plan.ID),
		"-routine", fmt.Sprintf("%d", routine.ID),
		"-db", "test", "-loglevel", "none",
	}
	if err := runner.Run(args); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := fmt.Sprintf("Plano %d vinculado ao roteiro %d.\n", plan.ID, routine.ID)
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}

	stored, err := mem.GetPlanByID(ctx, plan.ID)
	if err != nil {
		t.Fatalf("reload plan: %v", err)
	}
	if stored.RoutineID == nil || *stored.RoutineID != routine.ID {
		t.Errorf("plan routine link not persisted: %+v", stored.RoutineID)
	}
}

func TestRunReconcile(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	machine := int64(55)
	emp := "1234"
	name := "JOANA"
	activity := int64(3)
	plan := model.PreventivePlan{
		CdMaquina:       &machine,
		CdFuncionario:   &emp,
		NomeFuncionario: &name,
		CdAtividade:     &activity,
	}
	routine := model.MaintenanceRoutine{
		CdMaquina:      &machine,
		CdFunciomanu:   &emp,
		NomeFunciomanu: &name,
		CdTpcentativ:   &activity,
	}
	if err := mem.InsertPlan(ctx, &plan); err != nil {
		t.Fatalf("insert plan: %v", err)
	}
	if err := mem.InsertRoutine(ctx, &routine); err != nil {
		t.Fatalf("insert routine: %v", err)
	}

	var gotSheets []maintio.ReportSheet
	origReport := writeReportFunc
	writeReportFunc = func(path string, sheets []maintio.ReportSheet) error {
		gotSheets = sheets
		return nil
	}
	t.Cleanup(func() { writeReportFunc = origReport })

	runner, buf := newTestRunner(t, mem)
	err := runner.Run([]string{"-mode", "reconcile", "-db", "test", "-loglevel", "none"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if !strings.Contains(buf.String(), "Vinculados: 1") {
		t.Errorf("summary missing match count, got:\n%s", buf.String())
	}
	if len(gotSheets) != 3 {
		t.Fatalf("expected 3 report sheets, got %d", len(gotSheets))
	}
	if gotSheets[0].Name != "Vinculados" || len(gotSheets[0].Rows) != 2 {
		t.Errorf("matched sheet = %q with %d rows, want Vinculados with 2", gotSheets[0].Name, len(gotSheets[0].Rows))
	}
	if gotSheets[1].Name != "Planos sem roteiro" || gotSheets[2].Name != "Roteiros sem plano" {
		t.Errorf("unexpected sheet names: %q, %q", gotSheets[1].Name, gotSheets[2].Name)
	}
}

func TestImportOptions(t *testing.T) {
	opts, err := importOptions(false, "descr_maquina, nro_patrimonio", "2025-03-10", true)
	if err != nil {
		t.Fatalf("importOptions returned error: %v", err)
	}
	if !opts.UpdateExisting {
		t.Error("update-fields should imply UpdateExisting")
	}
	if len(opts.UpdateFields) != 2 || opts.UpdateFields[1] != "nro_patrimonio" {
		t.Errorf("unexpected UpdateFields: %v", opts.UpdateFields)
	}
	if !opts.DryRun {
		t.Error("DryRun flag not carried over")
	}
	if got := opts.RequisitionDate.Format("2006-01-02"); got != "2025-03-10" {
		t.Errorf("RequisitionDate = %s, want 2025-03-10", got)
	}

	if _, err := importOptions(false, "", "10-03-2025", false); !errors.Is(err, ErrUsage) {
		t.Errorf("bad date: error = %v, want ErrUsage", err)
	}
}
