// Package model defines the typed records the import pipeline produces and
// the entity store persists. Optional scalar fields are pointers so that
// "absent" is distinguishable from a zero value; monetary and quantity
// fields use fixed-point decimals.
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Machine is an industrial asset keyed by its business machine code.
type Machine struct {
	ID              int64
	CdMaquina       int64
	CdUnid          *int64
	NomeUnid        *string
	CsTtMaquina     *int64
	DescrMaquina    *string
	CdSetormanut    *string
	DescrSetormanut *string
	CdPriomaqutv    *int64
	NroPatrimonio   *string
	CdModelo        *int64
	CdGrupo         *int64
	CdTpcentativ    *int64
	DescrGerenc     *string
}

// WorkOrder is a closed corrective service order. Date columns arrive as
// free-form strings in the source exports and are stored verbatim.
type WorkOrder struct {
	ID                   int64
	CdOrdemserv          int64
	CdUnid               *int64
	NomeUnid             *string
	CdUnidExec           *int64
	NomeUnidExec         *string
	CdSetormanut         *string
	DescrSetormanut      *string
	CdTpcentativ         *int64
	DescrAbrevTpcentativ *string
	CdMaquina            *int64
	DescrMaquina         *string
	DtEntrada            *string
	DtAberturaSolicita   *string
	CdFuncSolicOS        *string
	NmFuncSolicOS        *string
	DescrQueixa          *string
	ExecTarefas          *string
	CdFuncExec           *string
	NmFuncExec           *string
	DescrObsordserv      *string
	DtEncordmanu         *string
	DtAberordser         *string
	DtIniparmanu         *string
	DtFimparmanu         *string
	DtPrevExec           *string
	CdTpordservtv        *int64
	DescrTpordservtv     *string
	DescrSitordsetv      *string
	DescrRecomenos       *string
	DescrSeqplamanu      *string
	CdTpmanuttv          *int64
	DescrTpmanuttv       *string
	CdClasorigos         *int64
	DescrClasorigos      *string
}

// WorkOrderTicket is a per-technician ficha split out of a work order row.
// One order may hold several tickets.
type WorkOrderTicket struct {
	ID               int64
	CdOrdemserv      int64
	CdFuncExecOS     *string
	NmFuncExecOS     *string
	DtFicapomanu     *string
	DtInicIteficmanu *string
	DtFimIteficmanu  *string
}

// HasContent reports whether at least one ticket field carries a value.
func (t WorkOrderTicket) HasContent() bool {
	for _, f := range []*string{t.CdFuncExecOS, t.NmFuncExecOS, t.DtFicapomanu, t.DtInicIteficmanu, t.DtFimIteficmanu} {
		if f != nil && *f != "" {
			return true
		}
	}
	return false
}

// Equal compares all ticket fields, treating nil and the empty string as the
// same value. Duplicate detection for tickets is full-field equality, not a
// key comparison.
func (t WorkOrderTicket) Equal(o WorkOrderTicket) bool {
	eq := func(a, b *string) bool {
		av, bv := "", ""
		if a != nil {
			av = *a
		}
		if b != nil {
			bv = *b
		}
		return av == bv
	}
	return eq(t.CdFuncExecOS, o.CdFuncExecOS) &&
		eq(t.NmFuncExecOS, o.NmFuncExecOS) &&
		eq(t.DtFicapomanu, o.DtFicapomanu) &&
		eq(t.DtInicIteficmanu, o.DtInicIteficmanu) &&
		eq(t.DtFimIteficmanu, o.DtFimIteficmanu)
}

// StockItem is a spare-parts inventory item keyed by its item code.
// Quantity and value default to zero, never null.
type StockItem struct {
	ID                           int64
	CodigoItem                   int64
	Estante                      *int64
	Prateleira                   *int64
	Coluna                       *int64
	Sequencia                    *int64
	DescricaoDestUso             *string
	DescricaoItem                *string
	UnidadeMedida                *string
	Quantidade                   decimal.Decimal
	Valor                        decimal.Decimal
	ControlaEstoqueMinimo        *string
	ClassificacaoTempoSemConsumo *string
}

// ActivityCenter is an organizational grouping keyed by its CA code.
type ActivityCenter struct {
	ID                     int64
	CA                     int64
	Sigla                  *string
	Descricao              *string
	Indice                 *int64
	EncarregadoResponsavel *string
}

// ActivityCenterLocation is a physical location attached to an activity center.
type ActivityCenterLocation struct {
	ID          int64
	CA          int64
	Local       string
	Observacoes *string
}

// Technician is a maintenance worker keyed by registration number.
type Technician struct {
	Matricula     string
	Nome          *string
	Cargo         *string
	HorarioInicio *time.Time
	HorarioFim    *time.Time
	TempoTrabalho *string
	Turno         *string
	LocalTrab     *string
}

// PreventivePlan is one task row of a preventive-maintenance plan. Its
// natural key is the 4-tuple (plan number, machine code, task sequence,
// maintenance sequence); any part may be absent.
type PreventivePlan struct {
	ID                  int64
	CdUnid              *int64
	NomeUnid            *string
	CdSetor             *string
	DescrSetor          *string
	CdAtividade         *int64
	CdMaquina           *int64
	DescrMaquina        *string
	NroPatrimonio       *string
	NumeroPlano         *int64
	DescrPlano          *string
	SequenciaManutencao *int64
	DtExecucao          *string
	QuantidadePeriodo   *int64
	SequenciaTarefa     *int64
	DescrTarefa         *string
	CdFuncionario       *string
	NomeFuncionario     *string
	DescrSeqplamanu     *string
	MachineID           *int64
	RoutineID           *int64
}

// Key returns the plan's composite natural key.
func (p PreventivePlan) Key() PlanKey {
	return PlanKey{
		NumeroPlano:         p.NumeroPlano,
		CdMaquina:           p.CdMaquina,
		SequenciaTarefa:     p.SequenciaTarefa,
		SequenciaManutencao: p.SequenciaManutencao,
	}
}

// PlanKey identifies a PreventivePlan. Absent parts participate in the key
// as explicit nulls.
type PlanKey struct {
	NumeroPlano         *int64
	CdMaquina           *int64
	SequenciaTarefa     *int64
	SequenciaManutencao *int64
}

// String renders the key for map lookups and error messages.
func (k PlanKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s",
		keyPart(k.NumeroPlano), keyPart(k.CdMaquina),
		keyPart(k.SequenciaTarefa), keyPart(k.SequenciaManutencao))
}

// MaintenanceRoutine is one task row of a preventive routine export. Its
// natural key is (service order, plan code, sequence, task code).
type MaintenanceRoutine struct {
	ID                   int64
	CdUnid               *int64
	NomeUnid             *string
	CdFunciomanu         *string
	NomeFunciomanu       *string
	FunciomanuID         *int64
	CdSetormanut         *string
	DescrSetormanut      *string
	CdTpcentativ         *int64
	DescrAbrevTpcentativ *string
	DtAbertura           *string
	CdOrdemserv          *int64
	OrdemservID          *int64
	CdMaquina            *int64
	DescrMaquina         *string
	CdPlanmanut          *int64
	DescrPlanmanut       *string
	DescrRecomenos       *string
	CfDtFinalExecucao    *string
	CsQtdePeriodoMax     *int64
	CsTotTemp            *string
	CfTotTemp            *string
	SeqSeqplamanu        *int64
	CdTarefamanu         *int64
	DescrTarefamanu      *string
	DescrPeriodo         *string
	DtPrimexec           *string
	TempoPrev            *string
	QtdePeriodo          *int64
	DescrSeqplamanu      *string
	CfTempPrev           *string
	ItemplanmaID         *int64
	CdItem               *int64
	DescrItem            *string
	ItemID               *int64
	Qtde                 *int64
	QtdeSaldo            *int64
	QtdeReserva          *int64
	MachineID            *int64
}

// Key returns the routine's composite natural key.
func (r MaintenanceRoutine) Key() RoutineKey {
	return RoutineKey{
		CdOrdemserv:   r.CdOrdemserv,
		CdPlanmanut:   r.CdPlanmanut,
		SeqSeqplamanu: r.SeqSeqplamanu,
		CdTarefamanu:  r.CdTarefamanu,
	}
}

// RoutineKey identifies a MaintenanceRoutine.
type RoutineKey struct {
	CdOrdemserv   *int64
	CdPlanmanut   *int64
	SeqSeqplamanu *int64
	CdTarefamanu  *int64
}

// String renders the key for map lookups and error messages.
func (k RoutineKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s",
		keyPart(k.CdOrdemserv), keyPart(k.CdPlanmanut),
		keyPart(k.SeqSeqplamanu), keyPart(k.CdTarefamanu))
}

// Week is one row of the 52-week preventive schedule. The name together
// with the start date forms the key; the start date may be absent.
type Week struct {
	ID     int64
	Semana string
	Inicio *time.Time
	Fim    *time.Time
}

// WarehouseRequisition is one stock-movement row of a warehouse requisition
// report, keyed by requisition date plus item code.
type WarehouseRequisition struct {
	ID                int64
	DataRequisicao    time.Time
	CdUnid            *int64
	NomeUnid          *string
	CdUsoCtb          *int64
	DescrUsoCtb       *string
	CdDepo            *int64
	DescrDepo         *string
	CdLocalFisic      *int64
	DescrLocalFisic   *string
	CdItem            int64
	CdEmbalagem       *string
	DescrItem         *string
	CdOperacao        *int64
	DescrOperacao     *string
	CdUnidMedida      *string
	QtdeMovtoEstoq    decimal.Decimal
	VlrMovtoEstoq     decimal.Decimal
	VlrMovtoEstoqReav decimal.Decimal
	CdUnidBaixa       *int64
	CdCentroAtiv      *int64
	CdUsuCriou        *string
	CdUsuAtend        *string
	ObsRM             *string
	ObsItem           *string
}

func keyPart(v *int64) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d", *v)
}
