package importer

import (
	"context"
	"errors"
	"fmt"

	"maintsync/internal/coerce"
	"maintsync/internal/io"
	"maintsync/internal/model"
	"maintsync/internal/store"
)

func machineFromRow(rec io.Row) model.Machine {
	return model.Machine{
		CdUnid:          coerce.ToInt(rec["cd_unid"]),
		NomeUnid:        coerce.ToString(rec["nome_unid"], 255),
		CsTtMaquina:     coerce.ToInt(rec["cs_tt_maquina"]),
		DescrMaquina:    coerce.ToString(rec["descr_maquina"], 500),
		CdSetormanut:    coerce.ToString(rec["cd_setormanut"], 50),
		DescrSetormanut: coerce.ToString(rec["descr_setormanut"], 255),
		CdPriomaqutv:    coerce.ToInt(rec["cd_priomaqutv"]),
		NroPatrimonio:   coerce.ToString(rec["nro_patrimonio"], 100),
		CdModelo:        coerce.ToInt(rec["cd_modelo"]),
		CdGrupo:         coerce.ToInt(rec["cd_grupo"]),
		CdTpcentativ:    coerce.ToInt(rec["cd_tpcentativ"]),
		DescrGerenc:     coerce.ToString(rec["descr_gerenc"], 255),
	}
}

// applyMachineFields copies fields from src onto dst. An empty field list
// copies everything; otherwise only the named fields move, leaving the rest
// of the stored record untouched.
func applyMachineFields(dst, src *model.Machine, fields []string) error {
	if len(fields) == 0 {
		id, cd := dst.ID, dst.CdMaquina
		*dst = *src
		dst.ID, dst.CdMaquina = id, cd
		return nil
	}
	for _, f := range fields {
		switch f {
		case "cd_unid":
			dst.CdUnid = src.CdUnid
		case "nome_unid":
			dst.NomeUnid = src.NomeUnid
		case "cs_tt_maquina":
			dst.CsTtMaquina = src.CsTtMaquina
		case "descr_maquina":
			dst.DescrMaquina = src.DescrMaquina
		case "cd_setormanut":
			dst.CdSetormanut = src.CdSetormanut
		case "descr_setormanut":
			dst.DescrSetormanut = src.DescrSetormanut
		case "cd_priomaqutv":
			dst.CdPriomaqutv = src.CdPriomaqutv
		case "nro_patrimonio":
			dst.NroPatrimonio = src.NroPatrimonio
		case "cd_modelo":
			dst.CdModelo = src.CdModelo
		case "cd_grupo":
			dst.CdGrupo = src.CdGrupo
		case "cd_tpcentativ":
			dst.CdTpcentativ = src.CdTpcentativ
		case "descr_gerenc":
			dst.DescrGerenc = src.DescrGerenc
		default:
			return fmt.Errorf("unknown update field '%s'", f)
		}
	}
	return nil
}

func (imp *Importer) importMachine(ctx context.Context, tx store.Store, rec io.Row, opts Options) (outcome, error) {
	cdMaquina, err := requiredInt(rec, "cd_maquina")
	if err != nil {
		return outcomeSkipped, err
	}

	record := machineFromRow(rec)
	record.CdMaquina = cdMaquina

	existing, err := tx.GetMachineByCode(ctx, cdMaquina)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := tx.InsertMachine(ctx, &record); err != nil {
			return outcomeSkipped, err
		}
		return outcomeCreated, nil
	case err != nil:
		return outcomeSkipped, err
	}

	if !opts.UpdateExisting {
		return outcomeSkipped, nil
	}
	if err := applyMachineFields(existing, &record, opts.UpdateFields); err != nil {
		return outcomeSkipped, err
	}
	if err := tx.UpdateMachine(ctx, existing); err != nil {
		return outcomeSkipped, err
	}
	return outcomeUpdated, nil
}
