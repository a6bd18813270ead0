package importer

import (
	"context"
	"errors"

	"maintsync/internal/coerce"
	"maintsync/internal/io"
	"maintsync/internal/model"
	"maintsync/internal/store"
)

func (imp *Importer) importWeek(ctx context.Context, tx store.Store,
	headers []string, rec io.Row, opts Options) (outcome, error) {
	semana := coerce.ToString(findByKeyword(headers, rec, "semana"), 255)
	if semana == nil {
		return outcomeSkipped, errors.New("required field semana missing")
	}

	record := model.Week{
		Semana: *semana,
		Inicio: coerce.ToFlexibleDate(findByKeyword(headers, rec, "inicio", "início", "ncio")),
		Fim:    coerce.ToFlexibleDate(findByKeyword(headers, rec, "fim")),
	}

	existing, err := tx.GetWeek(ctx, record.Semana, record.Inicio)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := tx.InsertWeek(ctx, &record); err != nil {
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
	if err := tx.UpdateWeek(ctx, &record); err != nil {
		return outcomeSkipped, err
	}
	return outcomeUpdated, nil
}
