package importer

import (
	"context"
	"errors"

	"maintsync/internal/coerce"
	"maintsync/internal/io"
	"maintsync/internal/model"
	"maintsync/internal/store"
)

func requisitionFromRow(rec io.Row) model.WarehouseRequisition {
	return model.WarehouseRequisition{
		CdUnid:            coerce.ToInt(rec["cd_unid"]),
		NomeUnid:          coerce.ToString(rec["nome_unid"], 255),
		CdUsoCtb:          coerce.ToInt(rec["cd_uso_ctb"]),
		DescrUsoCtb:       coerce.ToString(rec["descr_uso_ctb"], 255),
		CdDepo:            coerce.ToInt(rec["cd_depo"]),
		DescrDepo:         coerce.ToString(rec["descr_depo"], 255),
		CdLocalFisic:      coerce.ToInt(rec["cd_local_fisic"]),
		DescrLocalFisic:   coerce.ToString(rec["descr_local_fisic"], 255),
		CdEmbalagem:       coerce.ToString(rec["cd_embalagem"], 50),
		DescrItem:         coerce.ToString(rec["descr_item"], 500),
		CdOperacao:        coerce.ToInt(rec["cd_operacao"]),
		DescrOperacao:     coerce.ToString(rec["descr_operacao"], 255),
		CdUnidMedida:      coerce.ToString(rec["cd_unid_medida"], 50),
		QtdeMovtoEstoq:    coerce.ToDecimal(rec["qtde_movto_estoq"]),
		VlrMovtoEstoq:     coerce.ToDecimal(rec["vlr_movto_estoq"]),
		VlrMovtoEstoqReav: coerce.ToDecimal(rec["vlr_movto_estoq_reav"]),
		CdUnidBaixa:       coerce.ToInt(rec["cd_unid_baixa"]),
		CdCentroAtiv:      coerce.ToInt(rec["cd_centro_ativ"]),
		CdUsuCriou:        coerce.ToString(rec["cd_usu_criou"], 255),
		CdUsuAtend:        coerce.ToString(rec["cd_usu_atend"], 255),
		ObsRM:             coerce.ToString(rec["obs_rm"], 0),
		ObsItem:           coerce.ToString(rec["obs_item"], 0),
	}
}

func (imp *Importer) importRequisition(ctx context.Context, tx store.Store, rec io.Row, opts Options) (outcome, error) {
	cdItem, err := requiredInt(rec, "cd_item")
	if err != nil {
		return outcomeSkipped, err
	}

	record := requisitionFromRow(rec)
	record.CdItem = cdItem
	record.DataRequisicao = opts.RequisitionDate

	existing, err := tx.GetRequisition(ctx, opts.RequisitionDate, cdItem)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := tx.InsertRequisition(ctx, &record); err != nil {
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
	if err := tx.UpdateRequisition(ctx, &record); err != nil {
		return outcomeSkipped, err
	}
	return outcomeUpdated, nil
}
