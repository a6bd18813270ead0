package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"maintsync/internal/config"
	"maintsync/internal/store"
)

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func newTestImporter(t *testing.T) (*Importer, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return New(mem, config.DefaultConfig(), nil), mem
}

// TestImportMachinesCreateOnly tests idempotent create-only semantics: the
// second run of the same file creates nothing.
func TestImportMachinesCreateOnly(t *testing.T) {
	ctx := context.Background()
	imp, _ := newTestImporter(t)
	path := writeTempCSV(t, "m.csv", "CD_MAQUINA,DESCR_MAQUINA\n10,Bomba\n11,Prensa\n")

	res, err := imp.Run(ctx, config.EntityMachines, path, Options{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if res.Created != 2 || res.Updated != 0 || len(res.Errors) != 0 {
		t.Fatalf("first run = %+v", res)
	}

	res, err = imp.Run(ctx, config.EntityMachines, path, Options{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Created != 0 || res.Updated != 0 {
		t.Errorf("second run = %+v, want no writes", res)
	}
}

// TestImportMachinesUpdate tests update mode counts and the stored value.
func TestImportMachinesUpdate(t *testing.T) {
	ctx := context.Background()
	imp, mem := newTestImporter(t)

	first := writeTempCSV(t, "m1.csv", "CD_MAQUINA,DESCR_MAQUINA\n10,Bomba\n")
	if _, err := imp.Run(ctx, config.EntityMachines, first, Options{}); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	second := writeTempCSV(t, "m2.csv", "CD_MAQUINA,DESCR_MAQUINA\n10,Prensa\n")
	res, err := imp.Run(ctx, config.EntityMachines, second, Options{UpdateExisting: true})
	if err != nil {
		t.Fatalf("update run: %v", err)
	}
	if res.Created != 0 || res.Updated != 1 {
		t.Errorf("update run = %+v, want updated=1", res)
	}
	got, err := mem.GetMachineByCode(ctx, 10)
	if err != nil {
		t.Fatalf("GetMachineByCode: %v", err)
	}
	if got.DescrMaquina == nil || *got.DescrMaquina != "Prensa" {
		t.Errorf("DescrMaquina = %v, want Prensa", got.DescrMaquina)
	}
}

// TestImportMachinesUpdateFieldSubset tests that UpdateFields leaves
// unnamed fields untouched.
func TestImportMachinesUpdateFieldSubset(t *testing.T) {
	ctx := context.Background()
	imp, mem := newTestImporter(t)

	seed := writeTempCSV(t, "m1.csv", "CD_MAQUINA,DESCR_MAQUINA,NRO_PATRIMONIO\n10,Bomba,P-001\n")
	if _, err := imp.Run(ctx, config.EntityMachines, seed, Options{}); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	change := writeTempCSV(t, "m2.csv", "CD_MAQUINA,DESCR_MAQUINA,NRO_PATRIMONIO\n10,Prensa,P-999\n")
	res, err := imp.Run(ctx, config.EntityMachines, change,
		Options{UpdateExisting: true, UpdateFields: []string{"descr_maquina"}})
	if err != nil {
		t.Fatalf("update run: %v", err)
	}
	if res.Updated != 1 {
		t.Fatalf("updated = %d, want 1", res.Updated)
	}
	got, _ := mem.GetMachineByCode(ctx, 10)
	if *got.DescrMaquina != "Prensa" {
		t.Errorf("DescrMaquina = %q, want Prensa", *got.DescrMaquina)
	}
	if got.NroPatrimonio == nil || *got.NroPatrimonio != "P-001" {
		t.Errorf("NroPatrimonio = %v, want untouched P-001", got.NroPatrimonio)
	}
}

// TestImportRowErrors tests missing and invalid key messages.
func TestImportRowErrors(t *testing.T) {
	ctx := context.Background()
	imp, _ := newTestImporter(t)
	path := writeTempCSV(t, "m.csv", "CD_MAQUINA,DESCR_MAQUINA\n,SemCodigo\nabc,Invalida\n12,Valida\n")

	res, err := imp.Run(ctx, config.EntityMachines, path, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Created != 1 {
		t.Errorf("created = %d, want 1", res.Created)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %v, want 2", res.Errors)
	}
	if res.Errors[0] != "Row 2: required field cd_maquina missing" {
		t.Errorf("error[0] = %q", res.Errors[0])
	}
	if res.Errors[1] != "Row 3: invalid value for cd_maquina" {
		t.Errorf("error[1] = %q", res.Errors[1])
	}
}

// TestImportWorkOrderFichaDedup tests that an identical ficha on a second
// row of the same order is reported and not stored twice.
func TestImportWorkOrderFichaDedup(t *testing.T) {
	ctx := context.Background()
	imp, mem := newTestImporter(t)
	path := writeTempCSV(t, "os.csv", strings.Join([]string{
		"CD_ORDEMSERV;CD_FUNC_EXEC_OS;NM_FUNC_EXEC_OS",
		"500;77;CARLOS",
		"500;77;CARLOS",
		"500;88;MARIA",
		"",
	}, "\n"))

	res, err := imp.Run(ctx, config.EntityWorkOrders, path, Options{UpdateExisting: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Created != 1 || res.Updated != 2 {
		t.Errorf("result = %+v, want created=1 updated=2", res)
	}
	if len(res.Errors) != 1 || res.Errors[0] != "Row 3: duplicate ficha ignored" {
		t.Errorf("errors = %v", res.Errors)
	}
	tickets, err := mem.ListTickets(ctx, 500)
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(tickets) != 2 {
		t.Errorf("got %d tickets, want 2", len(tickets))
	}
}

// TestImportBatchErrors tests that unusable files yield one batch error and
// an empty result.
func TestImportBatchErrors(t *testing.T) {
	ctx := context.Background()
	imp, _ := newTestImporter(t)

	tests := []struct {
		name string
		file string
	}{
		{"unsupported extension", writeTempCSV(t, "m.pdf", "x")},
		{"empty file", writeTempCSV(t, "m.csv", "")},
		{"header only", writeTempCSV(t, "h.csv", "CD_MAQUINA,DESCR_MAQUINA\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := imp.Run(ctx, config.EntityMachines, tt.file, Options{})
			if err == nil {
				t.Fatal("Run succeeded, want batch error")
			}
			if res.Created != 0 || res.Updated != 0 || len(res.Errors) != 0 {
				t.Errorf("result = %+v, want zero", res)
			}
		})
	}
}

// TestImportPlanShiftRepair tests that a shifted employee column pair is
// recovered before the plan row is stored.
func TestImportPlanShiftRepair(t *testing.T) {
	ctx := context.Background()
	imp, mem := newTestImporter(t)
	path := writeTempCSV(t, "p.csv",
		"NUMERO_PLANO;CD_MAQUINA;FUNCIONARIO;COL_A;COL_B\n7;10;;12345;CARLOS\n")

	res, err := imp.Run(ctx, config.EntityPlans, path, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Created != 1 || len(res.Errors) != 0 {
		t.Fatalf("result = %+v", res)
	}
	plans, _ := mem.ListPlans(ctx)
	if len(plans) != 1 {
		t.Fatalf("got %d plans", len(plans))
	}
	p := plans[0]
	if p.CdFuncionario == nil || *p.CdFuncionario != "12345" {
		t.Errorf("CdFuncionario = %v, want 12345", p.CdFuncionario)
	}
	if p.NomeFuncionario == nil || *p.NomeFuncionario != "CARLOS" {
		t.Errorf("NomeFuncionario = %v, want CARLOS", p.NomeFuncionario)
	}
	// The machine was never imported, so the plan stays unlinked.
	if p.MachineID != nil {
		t.Errorf("MachineID = %v, want nil", p.MachineID)
	}
}

// TestImportRoutineCreatesStubMachine tests the out-of-order machine case.
func TestImportRoutineCreatesStubMachine(t *testing.T) {
	ctx := context.Background()
	imp, mem := newTestImporter(t)
	path := writeTempCSV(t, "r.csv",
		"CD_ORDEMSERV;CD_PLANMANUT;SEQ_SEQPLAMANU;CD_TAREFAMANU;CD_MAQUINA;DESCR_MAQUINA\n900;7;1;3;10;Bomba\n")

	res, err := imp.Run(ctx, config.EntityRoutines, path, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Created != 1 {
		t.Fatalf("created = %d, want 1", res.Created)
	}
	machine, err := mem.GetMachineByCode(ctx, 10)
	if err != nil {
		t.Fatalf("stub machine not created: %v", err)
	}
	if machine.DescrMaquina == nil || *machine.DescrMaquina != "Bomba" {
		t.Errorf("stub DescrMaquina = %v", machine.DescrMaquina)
	}
	routines, _ := mem.ListRoutines(ctx)
	if len(routines) != 1 || routines[0].MachineID == nil || *routines[0].MachineID != machine.ID {
		t.Errorf("routine not linked to stub machine: %+v", routines)
	}
}

// TestImportDryRun tests that a dry run reports counts but persists nothing.
func TestImportDryRun(t *testing.T) {
	ctx := context.Background()
	imp, mem := newTestImporter(t)
	path := writeTempCSV(t, "m.csv", "CD_MAQUINA,DESCR_MAQUINA\n10,Bomba\n")

	res, err := imp.Run(ctx, config.EntityMachines, path, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Created != 1 {
		t.Errorf("created = %d, want 1", res.Created)
	}
	if _, err := mem.GetMachineByCode(ctx, 10); err == nil {
		t.Error("dry run persisted a machine")
	}
}

// TestImportRequisitionsNeedDate tests the -date requirement and the
// caller-supplied key date.
func TestImportRequisitionsNeedDate(t *testing.T) {
	ctx := context.Background()
	imp, mem := newTestImporter(t)
	path := writeTempCSV(t, "req.csv", "CD_ITEM;QTDE_MOVTO_ESTOQ\n42;1,5\n")

	if _, err := imp.Run(ctx, config.EntityRequisitions, path, Options{}); err == nil {
		t.Fatal("Run without date succeeded, want error")
	}

	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	res, err := imp.Run(ctx, config.EntityRequisitions, path, Options{RequisitionDate: date})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Created != 1 {
		t.Fatalf("created = %d, want 1", res.Created)
	}
	got, err := mem.GetRequisition(ctx, date, 42)
	if err != nil {
		t.Fatalf("GetRequisition: %v", err)
	}
	if got.QtdeMovtoEstoq.String() != "1.5" {
		t.Errorf("QtdeMovtoEstoq = %s, want 1.5", got.QtdeMovtoEstoq)
	}
}

// TestImportWeeks tests the spreadsheet-only schedule import.
func TestImportWeeks(t *testing.T) {
	ctx := context.Background()
	imp, mem := newTestImporter(t)

	if _, err := imp.Run(ctx, config.EntityWeeks, writeTempCSV(t, "w.csv", "SEMANA\n1\n"), Options{}); err == nil {
		t.Fatal("weeks import accepted a CSV file")
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"SEMANA", "INÍCIO", "FIM"},
		{"SEMANA 1", "06/01/2025", "12 de Janeiro de 2025"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "weeks.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	f.Close()

	res, err := imp.Run(ctx, config.EntityWeeks, path, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Created != 1 || len(res.Errors) != 0 {
		t.Fatalf("result = %+v", res)
	}
	inicio := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	got, err := mem.GetWeek(ctx, "SEMANA 1", &inicio)
	if err != nil {
		t.Fatalf("GetWeek: %v", err)
	}
	if got.Fim == nil || got.Fim.Day() != 12 || got.Fim.Month() != time.January {
		t.Errorf("Fim = %v, want 12 January 2025", got.Fim)
	}
}

// TestImportFilter tests that configured row filters compare numeric CSV
// cells as numbers, skip non-matching rows silently, and surface evaluation
// problems as row errors.
func TestImportFilter(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	cfg := config.DefaultConfig()
	ent := cfg.Entities[config.EntityMachines]
	ent.Filter = "cd_maquina > 10"
	cfg.Entities[config.EntityMachines] = ent
	imp := New(mem, cfg, nil)

	path := writeTempCSV(t, "m.csv", "CD_MAQUINA,DESCR_MAQUINA\n5,Bomba\n15,Prensa\n")
	res, err := imp.Run(ctx, config.EntityMachines, path, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Created != 1 || len(res.Errors) != 0 {
		t.Fatalf("result = %+v, want created=1 with no errors", res)
	}
	if _, err := mem.GetMachineByCode(ctx, 5); err == nil {
		t.Error("machine 5 was imported despite the filter")
	}
	if _, err := mem.GetMachineByCode(ctx, 15); err != nil {
		t.Errorf("machine 15 missing: %v", err)
	}

	// A filter that does not yield a boolean is a row error, not a batch
	// failure.
	ent.Filter = "cd_maquina + 1"
	cfg.Entities[config.EntityMachines] = ent
	res, err = imp.Run(ctx, config.EntityMachines, path, Options{})
	if err != nil {
		t.Fatalf("Run with broken filter: %v", err)
	}
	if res.Created != 0 || len(res.Errors) != 2 {
		t.Fatalf("result = %+v, want 2 row errors", res)
	}
	if !strings.Contains(res.Errors[0], "Row 2:") || !strings.Contains(res.Errors[0], "boolean") {
		t.Errorf("unexpected error message: %s", res.Errors[0])
	}
}
