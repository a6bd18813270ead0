package importer

import (
	"context"
	"errors"

	"maintsync/internal/coerce"
	"maintsync/internal/io"
	"maintsync/internal/model"
	"maintsync/internal/store"
)

func stockItemFromRow(rec io.Row) model.StockItem {
	return model.StockItem{
		Estante:                      coerce.ToInt(rec["estante"]),
		Prateleira:                   coerce.ToInt(rec["prateleira"]),
		Coluna:                       coerce.ToInt(rec["coluna"]),
		Sequencia:                    coerce.ToInt(rec["sequencia"]),
		DescricaoDestUso:             coerce.ToString(rec["descricao_dest_uso"], 255),
		DescricaoItem:                coerce.ToString(rec["descricao_item"], 500),
		UnidadeMedida:                coerce.ToString(rec["unidade_medida"], 50),
		Quantidade:                   coerce.ToDecimal(rec["quantidade"]),
		Valor:                        coerce.ToDecimal(rec["valor"]),
		ControlaEstoqueMinimo:        coerce.ToString(rec["controla_estoque_minimo"], 50),
		ClassificacaoTempoSemConsumo: coerce.ToString(rec["classificacao_tempo_sem_consumo"], 100),
	}
}

func (imp *Importer) importStockItem(ctx context.Context, tx store.Store, rec io.Row, opts Options) (outcome, error) {
	codigoItem, err := requiredInt(rec, "codigo_item")
	if err != nil {
		return outcomeSkipped, err
	}

	record := stockItemFromRow(rec)
	record.CodigoItem = codigoItem

	existing, err := tx.GetStockItemByCode(ctx, codigoItem)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := tx.InsertStockItem(ctx, &record); err != nil {
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
	if err := tx.UpdateStockItem(ctx, &record); err != nil {
		return outcomeSkipped, err
	}
	return outcomeUpdated, nil
}
