package importer

import (
	"context"
	"errors"
	"strings"

	"maintsync/internal/coerce"
	"maintsync/internal/io"
	"maintsync/internal/model"
	"maintsync/internal/normalize"
	"maintsync/internal/store"
)

// Activity center sheets come from hand-maintained spreadsheets with badly
// encoded headers, so the columns are discovered by keyword instead of a
// fixed vocabulary. Keywords list accent-stripped variants explicitly.
func findByKeyword(headers []string, rec io.Row, keywords ...string) interface{} {
	if h, ok := normalize.FindKeyword(headers, keywords); ok {
		return rec[h]
	}
	return nil
}

func (imp *Importer) importActivityCenter(ctx context.Context, tx store.Store,
	headers []string, rec io.Row, opts Options) (outcome, error) {
	ca, err := requiredInt(rec, "ca")
	if err != nil {
		return outcomeSkipped, err
	}

	record := model.ActivityCenter{
		CA:                     ca,
		Sigla:                  coerce.ToString(rec["sigla"], 50),
		Descricao:              coerce.ToString(findByKeyword(headers, rec, "descri"), 255),
		Indice:                 coerce.ToInt(findByKeyword(headers, rec, "indice", "ndice")),
		EncarregadoResponsavel: coerce.ToString(findByKeyword(headers, rec, "encarregado"), 255),
	}
	local := coerce.ToString(findByKeyword(headers, rec, "local"), 255)

	out := outcomeSkipped
	existing, err := tx.GetActivityCenterByCA(ctx, ca)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := tx.InsertActivityCenter(ctx, &record); err != nil {
			return outcomeSkipped, err
		}
		out = outcomeCreated
	case err != nil:
		return outcomeSkipped, err
	case opts.UpdateExisting:
		record.ID = existing.ID
		if err := tx.UpdateActivityCenter(ctx, &record); err != nil {
			return outcomeSkipped, err
		}
		out = outcomeUpdated
	}

	if local == nil {
		return out, nil
	}
	locations, err := tx.ListActivityCenterLocations(ctx, ca)
	if err != nil {
		return outcomeSkipped, err
	}
	for _, l := range locations {
		if strings.EqualFold(l.Local, *local) {
			return out, nil
		}
	}
	loc := model.ActivityCenterLocation{CA: ca, Local: *local}
	if err := tx.InsertActivityCenterLocation(ctx, &loc); err != nil {
		return outcomeSkipped, err
	}
	return out, nil
}
