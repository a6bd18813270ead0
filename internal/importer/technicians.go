package importer

import (
	"context"
	"errors"

	"maintsync/internal/coerce"
	"maintsync/internal/io"
	"maintsync/internal/model"
	"maintsync/internal/store"
)

func technicianFromRow(rec io.Row) model.Technician {
	return model.Technician{
		Nome:          coerce.ToString(rec["nome"], 1000),
		Cargo:         coerce.ToString(rec["cargo"], 1000),
		HorarioInicio: coerce.ToClock(rec["horario_inicio"]),
		HorarioFim:    coerce.ToClock(rec["horario_fim"]),
		TempoTrabalho: coerce.ToString(rec["tempo_trabalho"], 250),
		Turno:         coerce.ToString(rec["turno"], 25),
		LocalTrab:     coerce.ToString(rec["local_trab"], 40),
	}
}

func (imp *Importer) importTechnician(ctx context.Context, tx store.Store, rec io.Row, opts Options) (outcome, error) {
	matricula, err := requiredString(rec, "matricula", 1000)
	if err != nil {
		return outcomeSkipped, err
	}

	record := technicianFromRow(rec)
	record.Matricula = matricula

	_, err = tx.GetTechnician(ctx, matricula)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := tx.InsertTechnician(ctx, &record); err != nil {
			return outcomeSkipped, err
		}
		return outcomeCreated, nil
	case err != nil:
		return outcomeSkipped, err
	}

	if !opts.UpdateExisting {
		return outcomeSkipped, nil
	}
	if err := tx.UpdateTechnician(ctx, &record); err != nil {
		return outcomeSkipped, err
	}
	return outcomeUpdated, nil
}
