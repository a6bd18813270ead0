// Package matcher proposes links between preventive plan tasks and the
// routine rows exported for them. Scoring is a weighted comparison of field
// pairs; the weight table comes from configuration so operators can tune it
// without a rebuild.
package matcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"maintsync/internal/logging"
	"maintsync/internal/model"
	"maintsync/internal/store"
)

// FieldWeight pairs one plan field with one routine field and the score
// contribution when their values agree.
type FieldWeight struct {
	PlanField    string  `yaml:"plan_field"`
	RoutineField string  `yaml:"routine_field"`
	Weight       float64 `yaml:"weight"`
}

// DefaultWeights is the built-in weight table. The weights sum to 100 so a
// score reads as a percentage.
func DefaultWeights() []FieldWeight {
	return []FieldWeight{
		{PlanField: "cd_maquina", RoutineField: "cd_maquina", Weight: 30},
		{PlanField: "cd_funcionario", RoutineField: "cd_funciomanu", Weight: 20},
		{PlanField: "nome_funcionario", RoutineField: "nome_funciomanu", Weight: 15},
		{PlanField: "cd_atividade", RoutineField: "cd_tpcentativ", Weight: 15},
		{PlanField: "numero_plano", RoutineField: "cd_planmanut", Weight: 10},
		{PlanField: "sequencia_manutencao", RoutineField: "seq_seqplamanu", Weight: 5},
		{PlanField: "sequencia_tarefa", RoutineField: "cd_tarefamanu", Weight: 5},
	}
}

// ManualLinkTag marks a match that exists only because an operator confirmed
// it earlier, not because the current scoring found it.
const ManualLinkTag = "vinculado_manual"

// Match is one proposed or confirmed plan-routine pairing.
type Match struct {
	Plan    model.PreventivePlan
	Routine model.MaintenanceRoutine
	Score   float64
	Perfect bool
	Fields  []string
}

// Report is the outcome of one reconciliation pass.
type Report struct {
	Matches           []Match
	UnmatchedPlans    []model.PreventivePlan
	UnmatchedRoutines []model.MaintenanceRoutine
}

// Matcher scores plan-routine candidate pairs.
type Matcher struct {
	weights     []FieldWeight
	totalWeight float64
	threshold   float64
	perfect     float64
}

// New builds a Matcher. Thresholds are percentages; threshold admits a match
// at or above it, perfect flags near-certain matches.
func New(weights []FieldWeight, threshold, perfect float64) *Matcher {
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	var total float64
	for _, w := range weights {
		total += w.Weight
	}
	return &Matcher{weights: weights, totalWeight: total, threshold: threshold, perfect: perfect}
}

// Score computes the weighted agreement between one plan and one routine,
// returning the percentage and the names of the plan fields that agreed.
// A field pair only counts when both sides carry a value.
func (m *Matcher) Score(plan model.PreventivePlan, routine model.MaintenanceRoutine) (float64, []string) {
	if m.totalWeight == 0 {
		return 0, nil
	}
	var sum float64
	var fields []string
	for _, w := range m.weights {
		pv, pok := planFieldValue(plan, w.PlanField)
		rv, rok := routineFieldValue(routine, w.RoutineField)
		if !pok || !rok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(pv), strings.TrimSpace(rv)) {
			sum += w.Weight
			fields = append(fields, w.PlanField)
		}
	}
	return sum / m.totalWeight * 100, fields
}

// Analyze scans every plan against every routine and assembles the match
// report. The best candidate is kept by strict comparison, so the first of
// tied top scorers wins. A plan that scores below the threshold but already
// carries a confirmed routine link is reported at score 100 with the manual
// tag instead of landing in UnmatchedPlans.
func (m *Matcher) Analyze(plans []model.PreventivePlan, routines []model.MaintenanceRoutine) Report {
	var report Report
	claimed := make(map[int64]bool, len(routines))

	byID := make(map[int64]model.MaintenanceRoutine, len(routines))
	for _, r := range routines {
		byID[r.ID] = r
	}

	for _, plan := range plans {
		bestScore := -1.0
		bestIdx := -1
		var bestFields []string
		for i, routine := range routines {
			score, fields := m.Score(plan, routine)
			if score > bestScore {
				bestScore = score
				bestIdx = i
				bestFields = fields
			}
		}

		switch {
		case bestIdx >= 0 && bestScore >= m.threshold:
			routine := routines[bestIdx]
			claimed[routine.ID] = true
			report.Matches = append(report.Matches, Match{
				Plan:    plan,
				Routine: routine,
				Score:   bestScore,
				Perfect: bestScore >= m.perfect,
				Fields:  bestFields,
			})
		case plan.RoutineID != nil:
			routine, ok := byID[*plan.RoutineID]
			if !ok {
				logging.Logf(logging.Warning, "plan %d links to unknown routine %d", plan.ID, *plan.RoutineID)
				report.UnmatchedPlans = append(report.UnmatchedPlans, plan)
				continue
			}
			claimed[routine.ID] = true
			report.Matches = append(report.Matches, Match{
				Plan:    plan,
				Routine: routine,
				Score:   100,
				Perfect: true,
				Fields:  []string{ManualLinkTag},
			})
		default:
			report.UnmatchedPlans = append(report.UnmatchedPlans, plan)
		}
	}

	for _, routine := range routines {
		if !claimed[routine.ID] {
			report.UnmatchedRoutines = append(report.UnmatchedRoutines, routine)
		}
	}

	logging.Logf(logging.Info, "reconciliation: %d matched, %d plans unmatched, %d routines unmatched",
		len(report.Matches), len(report.UnmatchedPlans), len(report.UnmatchedRoutines))
	return report
}

// Run loads every plan and routine from the store and analyzes them.
func (m *Matcher) Run(ctx context.Context, s store.Store) (Report, error) {
	plans, err := s.ListPlans(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load plans: %w", err)
	}
	routines, err := s.ListRoutines(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load routines: %w", err)
	}
	return m.Analyze(plans, routines), nil
}

// ConfirmLink writes one operator-confirmed pairing onto the plan, copying
// the routine's period description along. Repeating a confirmation is a
// no-op; unknown ids surface store.ErrNotFound.
func ConfirmLink(ctx context.Context, s store.Store, planID, routineID int64) error {
	return s.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetPlanByID(ctx, planID); err != nil {
			return fmt.Errorf("plan %d: %w", planID, err)
		}
		routine, err := tx.GetRoutineByID(ctx, routineID)
		if err != nil {
			return fmt.Errorf("routine %d: %w", routineID, err)
		}
		if err := tx.UpdatePlanLink(ctx, planID, routineID, routine.DescrSeqplamanu); err != nil {
			return fmt.Errorf("failed to confirm link: %w", err)
		}
		logging.Logf(logging.Info, "plan %d linked to routine %d", planID, routineID)
		return nil
	})
}

func intValue(v *int64) (string, bool) {
	if v == nil {
		return "", false
	}
	return strconv.FormatInt(*v, 10), true
}

func strValue(v *string) (string, bool) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", false
	}
	return *v, true
}

func planFieldValue(p model.PreventivePlan, field string) (string, bool) {
	switch field {
	case "cd_maquina":
		return intValue(p.CdMaquina)
	case "cd_funcionario":
		return strValue(p.CdFuncionario)
	case "nome_funcionario":
		return strValue(p.NomeFuncionario)
	case "cd_atividade":
		return intValue(p.CdAtividade)
	case "numero_plano":
		return intValue(p.NumeroPlano)
	case "sequencia_manutencao":
		return intValue(p.SequenciaManutencao)
	case "sequencia_tarefa":
		return intValue(p.SequenciaTarefa)
	default:
		return "", false
	}
}

func routineFieldValue(r model.MaintenanceRoutine, field string) (string, bool) {
	switch field {
	case "cd_maquina":
		return intValue(r.CdMaquina)
	case "cd_funciomanu":
		return strValue(r.CdFunciomanu)
	case "nome_funciomanu":
		return strValue(r.NomeFunciomanu)
	case "cd_tpcentativ":
		return intValue(r.CdTpcentativ)
	case "cd_planmanut":
		return intValue(r.CdPlanmanut)
	case "seq_seqplamanu":
		return intValue(r.SeqSeqplamanu)
	case "cd_tarefamanu":
		return intValue(r.CdTarefamanu)
	default:
		return "", false
	}
}
