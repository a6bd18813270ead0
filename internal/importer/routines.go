package importer

import (
	"context"
	"errors"
	"fmt"

	"maintsync/internal/coerce"
	"maintsync/internal/io"
	"maintsync/internal/logging"
	"maintsync/internal/model"
	"maintsync/internal/store"
)

func routineFromRow(rec io.Row) model.MaintenanceRoutine {
	return model.MaintenanceRoutine{
		CdUnid:               coerce.ToInt(rec["cd_unid"]),
		NomeUnid:             coerce.ToString(rec["nome_unid"], 255),
		CdFunciomanu:         coerce.ToString(rec["cd_funciomanu"], 100),
		NomeFunciomanu:       coerce.ToString(rec["nome_funciomanu"], 255),
		FunciomanuID:         coerce.ToInt(rec["funciomanu_id"]),
		CdSetormanut:         coerce.ToString(rec["cd_setormanut"], 50),
		DescrSetormanut:      coerce.ToString(rec["descr_setormanut"], 255),
		CdTpcentativ:         coerce.ToInt(rec["cd_tpcentativ"]),
		DescrAbrevTpcentativ: coerce.ToString(rec["descr_abrev_tpcentativ"], 255),
		DtAbertura:           coerce.ToString(rec["dt_abertura"], 50),
		CdOrdemserv:          coerce.ToInt(rec["cd_ordemserv"]),
		OrdemservID:          coerce.ToInt(rec["ordemserv_id"]),
		CdMaquina:            coerce.ToInt(rec["cd_maquina"]),
		DescrMaquina:         coerce.ToString(rec["descr_maquina"], 500),
		CdPlanmanut:          coerce.ToInt(rec["cd_planmanut"]),
		DescrPlanmanut:       coerce.ToString(rec["descr_planmanut"], 255),
		DescrRecomenos:       coerce.ToString(rec["descr_recomenos"], 0),
		CfDtFinalExecucao:    coerce.ToString(rec["cf_dt_final_execucao"], 50),
		CsQtdePeriodoMax:     coerce.ToInt(rec["cs_qtde_periodo_max"]),
		CsTotTemp:            coerce.ToString(rec["cs_tot_temp"], 50),
		CfTotTemp:            coerce.ToString(rec["cf_tot_temp"], 50),
		SeqSeqplamanu:        coerce.ToInt(rec["seq_seqplamanu"]),
		CdTarefamanu:         coerce.ToInt(rec["cd_tarefamanu"]),
		DescrTarefamanu:      coerce.ToString(rec["descr_tarefamanu"], 0),
		DescrPeriodo:         coerce.ToString(rec["descr_periodo"], 255),
		DtPrimexec:           coerce.ToString(rec["dt_primexec"], 50),
		TempoPrev:            coerce.ToString(rec["tempo_prev"], 50),
		QtdePeriodo:          coerce.ToInt(rec["qtde_periodo"]),
		DescrSeqplamanu:      coerce.ToString(rec["descr_seqplamanu"], 255),
		CfTempPrev:           coerce.ToString(rec["cf_temp_prev"], 50),
		ItemplanmaID:         coerce.ToInt(rec["itemplanma_id"]),
		CdItem:               coerce.ToInt(rec["cd_item"]),
		DescrItem:            coerce.ToString(rec["descr_item"], 500),
		ItemID:               coerce.ToInt(rec["item_id"]),
		Qtde:                 coerce.ToInt(rec["qtde"]),
		QtdeSaldo:            coerce.ToInt(rec["qtde_saldo"]),
		QtdeReserva:          coerce.ToInt(rec["qtde_reserva"]),
	}
}

// ensureMachine resolves the routine's machine, creating a stub record when
// the code has never been imported. The export is often loaded before the
// machine inventory, so a missing machine is data arriving out of order, not
// an error.
func ensureMachine(ctx context.Context, tx store.Store, batch *batchState,
	record *model.MaintenanceRoutine) (*int64, error) {
	if record.CdMaquina == nil {
		return nil, nil
	}
	cd := *record.CdMaquina
	if id, ok := batch.machineIDs[cd]; ok {
		return id, nil
	}
	machine, err := tx.GetMachineByCode(ctx, cd)
	if errors.Is(err, store.ErrNotFound) {
		descr := record.DescrMaquina
		if descr == nil {
			placeholder := fmt.Sprintf("Máquina %d", cd)
			descr = &placeholder
		}
		stub := model.Machine{
			CdMaquina:       cd,
			DescrMaquina:    descr,
			CdUnid:          record.CdUnid,
			NomeUnid:        record.NomeUnid,
			CdSetormanut:    record.CdSetormanut,
			DescrSetormanut: record.DescrSetormanut,
			CdTpcentativ:    record.CdTpcentativ,
		}
		if err := tx.InsertMachine(ctx, &stub); err != nil {
			return nil, err
		}
		logging.Logf(logging.Debug, "created stub machine %d for routine import", cd)
		batch.machineIDs[cd] = &stub.ID
		return &stub.ID, nil
	}
	if err != nil {
		return nil, err
	}
	batch.machineIDs[cd] = &machine.ID
	return &machine.ID, nil
}

func (imp *Importer) importRoutine(ctx context.Context, tx store.Store, rec io.Row,
	opts Options, batch *batchState) (outcome, error) {
	record := routineFromRow(rec)
	if record.CdMaquina == nil && record.DescrMaquina == nil {
		return outcomeSkipped, errors.New("required field cd_maquina missing")
	}

	machineID, err := ensureMachine(ctx, tx, batch, &record)
	if err != nil {
		return outcomeSkipped, err
	}
	record.MachineID = machineID

	existing, err := tx.GetRoutineByKey(ctx, record.Key())
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := tx.InsertRoutine(ctx, &record); err != nil {
			return outcomeSkipped, err
		}
		return outcomeCreated, nil
	case err != nil:
		return outcomeSkipped, err
	}

	if !opts.UpdateExisting {
		return outcomeSkipped, nil
	}
	record.ID = existing.ID
	if err := tx.UpdateRoutine(ctx, &record); err != nil {
		return outcomeSkipped, err
	}
	return outcomeUpdated, nil
}
