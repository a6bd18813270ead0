package matcher

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"maintsync/internal/model"
	"maintsync/internal/store"
)

func i64(v int64) *int64 { return &v }
func str(v string) *string { return &v }

// TestScore tests the weighted field comparison.
func TestScore(t *testing.T) {
	m := New(nil, 70, 95)

	tests := []struct {
		name       string
		plan       model.PreventivePlan
		routine    model.MaintenanceRoutine
		wantScore  float64
		wantFields []string
	}{
		{
			name:       "machine and employee code agree",
			plan:       model.PreventivePlan{CdMaquina: i64(10), CdFuncionario: str("123")},
			routine:    model.MaintenanceRoutine{CdMaquina: i64(10), CdFunciomanu: str("123")},
			wantScore:  50,
			wantFields: []string{"cd_maquina", "cd_funcionario"},
		},
		{
			name:       "absent fields never count",
			plan:       model.PreventivePlan{CdMaquina: i64(10)},
			routine:    model.MaintenanceRoutine{},
			wantScore:  0,
			wantFields: nil,
		},
		{
			name:       "names compare case insensitively with trimming",
			plan:       model.PreventivePlan{NomeFuncionario: str("  joão silva ")},
			routine:    model.MaintenanceRoutine{NomeFunciomanu: str("JOÃO SILVA")},
			wantScore:  15,
			wantFields: []string{"nome_funcionario"},
		},
		{
			name:       "machine and plan number agree",
			plan:       model.PreventivePlan{CdMaquina: i64(10), NumeroPlano: i64(77)},
			routine:    model.MaintenanceRoutine{CdMaquina: i64(10), CdPlanmanut: i64(77)},
			wantScore:  40,
			wantFields: []string{"cd_maquina", "numero_plano"},
		},
		{
			name: "everything agrees",
			plan: model.PreventivePlan{
				CdMaquina: i64(10), CdFuncionario: str("1"), NomeFuncionario: str("A"),
				CdAtividade: i64(2), NumeroPlano: i64(3), SequenciaManutencao: i64(4),
				SequenciaTarefa: i64(5),
			},
			routine: model.MaintenanceRoutine{
				CdMaquina: i64(10), CdFunciomanu: str("1"), NomeFunciomanu: str("A"),
				CdTpcentativ: i64(2), CdPlanmanut: i64(3), SeqSeqplamanu: i64(4),
				CdTarefamanu: i64(5),
			},
			wantScore: 100,
			wantFields: []string{"cd_maquina", "cd_funcionario", "nome_funcionario",
				"cd_atividade", "numero_plano", "sequencia_manutencao", "sequencia_tarefa"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, fields := m.Score(tt.plan, tt.routine)
			if score != tt.wantScore {
				t.Errorf("score = %v, want %v", score, tt.wantScore)
			}
			if !reflect.DeepEqual(fields, tt.wantFields) {
				t.Errorf("fields = %v, want %v", fields, tt.wantFields)
			}
		})
	}
}

// TestAnalyzeThresholdInclusive tests that a score exactly at the threshold
// still matches.
func TestAnalyzeThresholdInclusive(t *testing.T) {
	// machine(30) + employee code(20) + name(15) + task(5) = exactly 70.
	m := New(nil, 70, 95)
	plan := model.PreventivePlan{
		ID: 1, CdMaquina: i64(10), CdFuncionario: str("1"),
		NomeFuncionario: str("A"), SequenciaTarefa: i64(9),
	}
	routine := model.MaintenanceRoutine{
		ID: 2, CdMaquina: i64(10), CdFunciomanu: str("1"),
		NomeFunciomanu: str("A"), CdTarefamanu: i64(9),
	}

	report := m.Analyze([]model.PreventivePlan{plan}, []model.MaintenanceRoutine{routine})
	if len(report.Matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(report.Matches))
	}
	if report.Matches[0].Score != 70 {
		t.Errorf("score = %v, want 70", report.Matches[0].Score)
	}
	if report.Matches[0].Perfect {
		t.Error("70 flagged perfect")
	}
	if len(report.UnmatchedRoutines) != 0 {
		t.Errorf("unmatched routines = %d, want 0", len(report.UnmatchedRoutines))
	}
}

// TestAnalyzeTieKeepsFirst tests the strict better-than comparison.
func TestAnalyzeTieKeepsFirst(t *testing.T) {
	m := New(nil, 70, 95)
	plan := model.PreventivePlan{
		ID: 1, CdMaquina: i64(10), CdFuncionario: str("1"),
		NomeFuncionario: str("A"), CdAtividade: i64(3),
	}
	mk := func(id int64) model.MaintenanceRoutine {
		return model.MaintenanceRoutine{
			ID: id, CdMaquina: i64(10), CdFunciomanu: str("1"),
			NomeFunciomanu: str("A"), CdTpcentativ: i64(3),
		}
	}

	report := m.Analyze([]model.PreventivePlan{plan},
		[]model.MaintenanceRoutine{mk(100), mk(200)})
	if len(report.Matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(report.Matches))
	}
	if report.Matches[0].Routine.ID != 100 {
		t.Errorf("matched routine %d, want first candidate 100", report.Matches[0].Routine.ID)
	}
	if len(report.UnmatchedRoutines) != 1 || report.UnmatchedRoutines[0].ID != 200 {
		t.Errorf("unmatched routines = %v", report.UnmatchedRoutines)
	}
}

// TestAnalyzeBelowThreshold tests that a weak best candidate leaves both
// sides unmatched.
func TestAnalyzeBelowThreshold(t *testing.T) {
	m := New(nil, 70, 95)
	plan := model.PreventivePlan{ID: 1, CdMaquina: i64(10), CdFuncionario: str("1")}
	routine := model.MaintenanceRoutine{ID: 2, CdMaquina: i64(10), CdFunciomanu: str("999")}

	report := m.Analyze([]model.PreventivePlan{plan}, []model.MaintenanceRoutine{routine})
	if len(report.Matches) != 0 {
		t.Fatalf("got %d matches, want 0", len(report.Matches))
	}
	if len(report.UnmatchedPlans) != 1 || len(report.UnmatchedRoutines) != 1 {
		t.Errorf("unmatched = %d plans / %d routines, want 1/1",
			len(report.UnmatchedPlans), len(report.UnmatchedRoutines))
	}
}

// TestAnalyzeManualLink tests that a stored link overrides a weak score.
func TestAnalyzeManualLink(t *testing.T) {
	m := New(nil, 70, 95)
	plan := model.PreventivePlan{ID: 1, CdMaquina: i64(10), RoutineID: i64(2)}
	routine := model.MaintenanceRoutine{ID: 2, CdMaquina: i64(99)}

	report := m.Analyze([]model.PreventivePlan{plan}, []model.MaintenanceRoutine{routine})
	if len(report.Matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(report.Matches))
	}
	got := report.Matches[0]
	if got.Score != 100 || !got.Perfect {
		t.Errorf("manual link score = %v perfect = %v, want 100/true", got.Score, got.Perfect)
	}
	if !reflect.DeepEqual(got.Fields, []string{ManualLinkTag}) {
		t.Errorf("fields = %v, want [%s]", got.Fields, ManualLinkTag)
	}
	if len(report.UnmatchedRoutines) != 0 {
		t.Errorf("linked routine reported unmatched")
	}
}

// TestConfirmLink tests confirmation, idempotence and not-found errors.
func TestConfirmLink(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	plan := &model.PreventivePlan{NumeroPlano: i64(1)}
	if err := s.InsertPlan(ctx, plan); err != nil {
		t.Fatalf("InsertPlan: %v", err)
	}
	routine := &model.MaintenanceRoutine{CdPlanmanut: i64(1), DescrSeqplamanu: str("MENSAL")}
	if err := s.InsertRoutine(ctx, routine); err != nil {
		t.Fatalf("InsertRoutine: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := ConfirmLink(ctx, s, plan.ID, routine.ID); err != nil {
			t.Fatalf("ConfirmLink pass %d: %v", i+1, err)
		}
	}
	got, err := s.GetPlanByID(ctx, plan.ID)
	if err != nil {
		t.Fatalf("GetPlanByID: %v", err)
	}
	if got.RoutineID == nil || *got.RoutineID != routine.ID {
		t.Errorf("RoutineID = %v, want %d", got.RoutineID, routine.ID)
	}
	if got.DescrSeqplamanu == nil || *got.DescrSeqplamanu != "MENSAL" {
		t.Errorf("DescrSeqplamanu = %v, want MENSAL", got.DescrSeqplamanu)
	}

	if err := ConfirmLink(ctx, s, 999, routine.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown plan: err = %v, want ErrNotFound", err)
	}
	if err := ConfirmLink(ctx, s, plan.ID, 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown routine: err = %v, want ErrNotFound", err)
	}
}
