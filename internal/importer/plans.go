package importer

import (
	"context"
	"errors"

	"maintsync/internal/coerce"
	"maintsync/internal/io"
	"maintsync/internal/logging"
	"maintsync/internal/model"
	"maintsync/internal/store"
)

func planFromRow(rec io.Row) model.PreventivePlan {
	return model.PreventivePlan{
		CdUnid:              coerce.ToInt(rec["cd_unid"]),
		NomeUnid:            coerce.ToString(rec["nome_unid"], 255),
		CdSetor:             coerce.ToString(rec["cd_setor"], 50),
		DescrSetor:          coerce.ToString(rec["descr_setor"], 255),
		CdAtividade:         coerce.ToInt(rec["cd_atividade"]),
		DescrMaquina:        coerce.ToString(rec["descr_maquina"], 500),
		NroPatrimonio:       coerce.ToString(rec["nro_patrimonio"], 100),
		DescrPlano:          coerce.ToString(rec["descr_plano"], 255),
		SequenciaManutencao: coerce.ToInt(rec["sequencia_manutencao"]),
		DtExecucao:          executionDate(rec["dt_execucao"]),
		QuantidadePeriodo:   coerce.ToInt(rec["quantidade_periodo"]),
		SequenciaTarefa:     coerce.ToInt(rec["sequencia_tarefa"]),
		DescrTarefa:         coerce.ToString(rec["descr_tarefa"], 0),
		CdFuncionario:       coerce.ToString(rec["cd_funcionario"], 100),
		NomeFuncionario:     coerce.ToString(rec["nome_funcionario"], 255),
		DescrSeqplamanu:     coerce.ToString(rec["descr_seqplamanu"], 255),
	}
}

// executionDate keeps only values that parse as dates, stored ISO formatted.
func executionDate(v interface{}) *string {
	t := coerce.ToDate(v)
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

// lookupMachineID resolves a machine code through the per-batch cache. An
// unknown code caches nil so it is only looked up once.
func lookupMachineID(ctx context.Context, tx store.Store, batch *batchState, cdMaquina int64) (*int64, error) {
	if id, ok := batch.machineIDs[cdMaquina]; ok {
		return id, nil
	}
	machine, err := tx.GetMachineByCode(ctx, cdMaquina)
	if errors.Is(err, store.ErrNotFound) {
		batch.machineIDs[cdMaquina] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	batch.machineIDs[cdMaquina] = &machine.ID
	return &machine.ID, nil
}

func (imp *Importer) importPlan(ctx context.Context, tx store.Store, rec io.Row,
	opts Options, batch *batchState) (outcome, error) {
	numeroPlano, err := requiredInt(rec, "numero_plano")
	if err != nil {
		return outcomeSkipped, err
	}
	cdMaquina, err := requiredInt(rec, "cd_maquina")
	if err != nil {
		return outcomeSkipped, err
	}

	record := planFromRow(rec)
	record.NumeroPlano = &numeroPlano
	record.CdMaquina = &cdMaquina

	// A plan row for a machine not yet imported is kept without the link.
	machineID, err := lookupMachineID(ctx, tx, batch, cdMaquina)
	if err != nil {
		return outcomeSkipped, err
	}
	if machineID == nil {
		logging.Logf(logging.Debug, "plan %d references unknown machine %d", numeroPlano, cdMaquina)
	}
	record.MachineID = machineID

	existing, err := tx.GetPlanByKey(ctx, record.Key())
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := tx.InsertPlan(ctx, &record); err != nil {
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
	record.RoutineID = existing.RoutineID
	if record.DescrSeqplamanu == nil {
		record.DescrSeqplamanu = existing.DescrSeqplamanu
	}
	if err := tx.UpdatePlan(ctx, &record); err != nil {
		return outcomeSkipped, err
	}
	return outcomeUpdated, nil
}
