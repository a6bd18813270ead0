package importer

import (
	"context"
	"errors"

	"maintsync/internal/coerce"
	"maintsync/internal/io"
	"maintsync/internal/model"
	"maintsync/internal/store"
)

func workOrderFromRow(rec io.Row) model.WorkOrder {
	return model.WorkOrder{
		CdUnid:               coerce.ToInt(rec["cd_unid"]),
		NomeUnid:             coerce.ToString(rec["nome_unid"], 255),
		CdUnidExec:           coerce.ToInt(rec["cd_unid_exec"]),
		NomeUnidExec:         coerce.ToString(rec["nome_unid_exec"], 255),
		CdSetormanut:         coerce.ToString(rec["cd_setormanut"], 50),
		DescrSetormanut:      coerce.ToString(rec["descr_setormanut"], 255),
		CdTpcentativ:         coerce.ToInt(rec["cd_tpcentativ"]),
		DescrAbrevTpcentativ: coerce.ToString(rec["descr_abrev_tpcentativ"], 255),
		CdMaquina:            coerce.ToInt(rec["cd_maquina"]),
		DescrMaquina:         coerce.ToString(rec["descr_maquina"], 500),
		DtEntrada:            coerce.ToString(rec["dt_entrada"], 50),
		DtAberturaSolicita:   coerce.ToString(rec["dt_abertura_solicita"], 50),
		CdFuncSolicOS:        coerce.ToString(rec["cd_func_solic_os"], 100),
		NmFuncSolicOS:        coerce.ToString(rec["nm_func_solic_os"], 255),
		DescrQueixa:          coerce.ToString(rec["descr_queixa"], 0),
		ExecTarefas:          coerce.ToString(rec["exec_tarefas"], 0),
		CdFuncExec:           coerce.ToString(rec["cd_func_exec"], 100),
		NmFuncExec:           coerce.ToString(rec["nm_func_exec"], 255),
		DescrObsordserv:      coerce.ToString(rec["descr_obsordserv"], 0),
		DtEncordmanu:         coerce.ToString(rec["dt_encordmanu"], 50),
		DtAberordser:         coerce.ToString(rec["dt_aberordser"], 50),
		DtIniparmanu:         coerce.ToString(rec["dt_iniparmanu"], 50),
		DtFimparmanu:         coerce.ToString(rec["dt_fimparmanu"], 50),
		DtPrevExec:           coerce.ToString(rec["dt_prev_exec"], 50),
		CdTpordservtv:        coerce.ToInt(rec["cd_tpordservtv"]),
		DescrTpordservtv:     coerce.ToString(rec["descr_tpordservtv"], 255),
		DescrSitordsetv:      coerce.ToString(rec["descr_sitordsetv"], 255),
		DescrRecomenos:       coerce.ToString(rec["descr_recomenos"], 0),
		DescrSeqplamanu:      coerce.ToString(rec["descr_seqplamanu"], 255),
		CdTpmanuttv:          coerce.ToInt(rec["cd_tpmanuttv"]),
		DescrTpmanuttv:       coerce.ToString(rec["descr_tpmanuttv"], 255),
		CdClasorigos:         coerce.ToInt(rec["cd_clasorigos"]),
		DescrClasorigos:      coerce.ToString(rec["descr_clasorigos"], 255),
	}
}

// mergeWorkOrder copies non-nil fields from src onto dst, so an update never
// nulls out a stored value the file happens to omit.
func mergeWorkOrder(dst, src *model.WorkOrder) {
	mergeInt := func(d **int64, s *int64) {
		if s != nil {
			*d = s
		}
	}
	mergeStr := func(d **string, s *string) {
		if s != nil {
			*d = s
		}
	}
	mergeInt(&dst.CdUnid, src.CdUnid)
	mergeStr(&dst.NomeUnid, src.NomeUnid)
	mergeInt(&dst.CdUnidExec, src.CdUnidExec)
	mergeStr(&dst.NomeUnidExec, src.NomeUnidExec)
	mergeStr(&dst.CdSetormanut, src.CdSetormanut)
	mergeStr(&dst.DescrSetormanut, src.DescrSetormanut)
	mergeInt(&dst.CdTpcentativ, src.CdTpcentativ)
	mergeStr(&dst.DescrAbrevTpcentativ, src.DescrAbrevTpcentativ)
	mergeInt(&dst.CdMaquina, src.CdMaquina)
	mergeStr(&dst.DescrMaquina, src.DescrMaquina)
	mergeStr(&dst.DtEntrada, src.DtEntrada)
	mergeStr(&dst.DtAberturaSolicita, src.DtAberturaSolicita)
	mergeStr(&dst.CdFuncSolicOS, src.CdFuncSolicOS)
	mergeStr(&dst.NmFuncSolicOS, src.NmFuncSolicOS)
	mergeStr(&dst.DescrQueixa, src.DescrQueixa)
	mergeStr(&dst.ExecTarefas, src.ExecTarefas)
	mergeStr(&dst.CdFuncExec, src.CdFuncExec)
	mergeStr(&dst.NmFuncExec, src.NmFuncExec)
	mergeStr(&dst.DescrObsordserv, src.DescrObsordserv)
	mergeStr(&dst.DtEncordmanu, src.DtEncordmanu)
	mergeStr(&dst.DtAberordser, src.DtAberordser)
	mergeStr(&dst.DtIniparmanu, src.DtIniparmanu)
	mergeStr(&dst.DtFimparmanu, src.DtFimparmanu)
	mergeStr(&dst.DtPrevExec, src.DtPrevExec)
	mergeInt(&dst.CdTpordservtv, src.CdTpordservtv)
	mergeStr(&dst.DescrTpordservtv, src.DescrTpordservtv)
	mergeStr(&dst.DescrSitordsetv, src.DescrSitordsetv)
	mergeStr(&dst.DescrRecomenos, src.DescrRecomenos)
	mergeStr(&dst.DescrSeqplamanu, src.DescrSeqplamanu)
	mergeInt(&dst.CdTpmanuttv, src.CdTpmanuttv)
	mergeStr(&dst.DescrTpmanuttv, src.DescrTpmanuttv)
	mergeInt(&dst.CdClasorigos, src.CdClasorigos)
	mergeStr(&dst.DescrClasorigos, src.DescrClasorigos)
}

func ticketFromRow(rec io.Row, cdOrdemserv int64) model.WorkOrderTicket {
	return model.WorkOrderTicket{
		CdOrdemserv:      cdOrdemserv,
		CdFuncExecOS:     coerce.ToString(rec["cd_func_exec_os"], 100),
		NmFuncExecOS:     coerce.ToString(rec["nm_func_exec_os"], 255),
		DtFicapomanu:     coerce.ToString(rec["dt_ficapomanu"], 50),
		DtInicIteficmanu: coerce.ToString(rec["dt_inic_iteficmanu"], 50),
		DtFimIteficmanu:  coerce.ToString(rec["dt_fim_iteficmanu"], 50),
	}
}

func (imp *Importer) importWorkOrder(ctx context.Context, tx store.Store, rowNum int,
	rec io.Row, opts Options, res *Result) (outcome, error) {
	cdOrdemserv, err := requiredInt(rec, "cd_ordemserv")
	if err != nil {
		return outcomeSkipped, err
	}

	record := workOrderFromRow(rec)
	record.CdOrdemserv = cdOrdemserv

	out := outcomeSkipped
	existing, err := tx.GetWorkOrderByCode(ctx, cdOrdemserv)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := tx.InsertWorkOrder(ctx, &record); err != nil {
			return outcomeSkipped, err
		}
		out = outcomeCreated
	case err != nil:
		return outcomeSkipped, err
	case opts.UpdateExisting:
		mergeWorkOrder(existing, &record)
		if err := tx.UpdateWorkOrder(ctx, existing); err != nil {
			return outcomeSkipped, err
		}
		out = outcomeUpdated
	}

	// A row may carry a per-technician ficha alongside the order itself.
	ticket := ticketFromRow(rec, cdOrdemserv)
	if !ticket.HasContent() {
		return out, nil
	}
	stored, err := tx.ListTickets(ctx, cdOrdemserv)
	if err != nil {
		return outcomeSkipped, err
	}
	for _, t := range stored {
		if t.Equal(ticket) {
			imp.addRowError(res, rowNum, "duplicate ficha ignored", rec)
			return out, nil
		}
	}
	if err := tx.InsertTicket(ctx, &ticket); err != nil {
		return outcomeSkipped, err
	}
	return out, nil
}
