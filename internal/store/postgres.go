package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"maintsync/internal/logging"
	"maintsync/internal/model"
	"maintsync/internal/util"
)

// pgxPoolNewFunc allows overriding pgxpool.New for testing.
var pgxPoolNewFunc = pgxpool.New

// Default database connection timeout.
const defaultDbTimeout = 30 * time.Second

// querier is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx,
// so the same query code runs inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	q    querier
}

// NewPostgres connects to the database described by connStr. Environment
// variables in the string are expanded first; credentials are masked in logs.
func NewPostgres(ctx context.Context, connStr string) (*Postgres, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultDbTimeout)
	defer cancel()

	expanded := util.ExpandEnvUniversal(connStr)
	pool, err := pgxPoolNewFunc(ctx, expanded)
	if err != nil {
		masked := util.MaskCredentials(expanded)
		logging.Logf(logging.Error, "failed to create connection pool for '%s': %v", masked, err)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		masked := util.MaskCredentials(expanded)
		logging.Logf(logging.Error, "failed to ping database '%s': %v", masked, err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logging.Logf(logging.Debug, "connected to database: %s", util.MaskCredentials(expanded))
	return &Postgres{pool: pool, q: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// WithTx runs fn inside a single database transaction. Calling WithTx on a
// store that is already transactional just runs fn against it.
func (p *Postgres) WithTx(ctx context.Context, fn func(Store) error) error {
	if p.pool == nil {
		return fn(p)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(context.Background()); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				logging.Logf(logging.Error, "failed to rollback transaction: %v", rbErr)
			}
		}
	}()

	if err := fn(&Postgres{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to query %s: %w", what, err)
}

// Decimals travel as strings so the driver never sees the decimal type.
func scanDecimal(s *string) decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

const machineColumns = `id, cd_maquina, cd_unid, nome_unid, cs_tt_maquina, descr_maquina,
	cd_setormanut, descr_setormanut, cd_priomaqutv, nro_patrimonio, cd_modelo,
	cd_grupo, cd_tpcentativ, descr_gerenc`

func scanMachine(row pgx.Row) (*model.Machine, error) {
	var m model.Machine
	err := row.Scan(&m.ID, &m.CdMaquina, &m.CdUnid, &m.NomeUnid, &m.CsTtMaquina, &m.DescrMaquina,
		&m.CdSetormanut, &m.DescrSetormanut, &m.CdPriomaqutv, &m.NroPatrimonio, &m.CdModelo,
		&m.CdGrupo, &m.CdTpcentativ, &m.DescrGerenc)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (p *Postgres) GetMachineByCode(ctx context.Context, cdMaquina int64) (*model.Machine, error) {
	row := p.q.QueryRow(ctx, `SELECT `+machineColumns+` FROM maquinas WHERE cd_maquina = $1`, cdMaquina)
	m, err := scanMachine(row)
	if err != nil {
		return nil, notFoundOr(err, "machine")
	}
	return m, nil
}

func (p *Postgres) InsertMachine(ctx context.Context, m *model.Machine) error {
	err := p.q.QueryRow(ctx, `INSERT INTO maquinas (cd_maquina, cd_unid, nome_unid, cs_tt_maquina,
		descr_maquina, cd_setormanut, descr_setormanut, cd_priomaqutv, nro_patrimonio, cd_modelo,
		cd_grupo, cd_tpcentativ, descr_gerenc)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id`,
		m.CdMaquina, m.CdUnid, m.NomeUnid, m.CsTtMaquina, m.DescrMaquina, m.CdSetormanut,
		m.DescrSetormanut, m.CdPriomaqutv, m.NroPatrimonio, m.CdModelo, m.CdGrupo,
		m.CdTpcentativ, m.DescrGerenc).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to insert machine %d: %w", m.CdMaquina, err)
	}
	return nil
}

func (p *Postgres) UpdateMachine(ctx context.Context, m *model.Machine) error {
	tag, err := p.q.Exec(ctx, `UPDATE maquinas SET cd_maquina=$2, cd_unid=$3, nome_unid=$4,
		cs_tt_maquina=$5, descr_maquina=$6, cd_setormanut=$7, descr_setormanut=$8,
		cd_priomaqutv=$9, nro_patrimonio=$10, cd_modelo=$11, cd_grupo=$12, cd_tpcentativ=$13,
		descr_gerenc=$14 WHERE id=$1`,
		m.ID, m.CdMaquina, m.CdUnid, m.NomeUnid, m.CsTtMaquina, m.DescrMaquina, m.CdSetormanut,
		m.DescrSetormanut, m.CdPriomaqutv, m.NroPatrimonio, m.CdModelo, m.CdGrupo,
		m.CdTpcentativ, m.DescrGerenc)
	if err != nil {
		return fmt.Errorf("failed to update machine %d: %w", m.CdMaquina, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const workOrderColumns = `id, cd_ordemserv, cd_unid, nome_unid, cd_unid_exec, nome_unid_exec,
	cd_setormanut, descr_setormanut, cd_tpcentativ, descr_abrev_tpcentativ, cd_maquina,
	descr_maquina, dt_entrada, dt_abertura_solicita, cd_func_solic_os, nm_func_solic_os,
	descr_queixa, exec_tarefas, cd_func_exec, nm_func_exec, descr_obsordserv, dt_encordmanu,
	dt_aberordser, dt_iniparmanu, dt_fimparmanu, dt_prev_exec, cd_tpordservtv,
	descr_tpordservtv, descr_sitordsetv, descr_recomenos, descr_seqplamanu, cd_tpmanuttv,
	descr_tpmanuttv, cd_clasorigos, descr_clasorigos`

func scanWorkOrder(row pgx.Row) (*model.WorkOrder, error) {
	var o model.WorkOrder
	err := row.Scan(&o.ID, &o.CdOrdemserv, &o.CdUnid, &o.NomeUnid, &o.CdUnidExec, &o.NomeUnidExec,
		&o.CdSetormanut, &o.DescrSetormanut, &o.CdTpcentativ, &o.DescrAbrevTpcentativ, &o.CdMaquina,
		&o.DescrMaquina, &o.DtEntrada, &o.DtAberturaSolicita, &o.CdFuncSolicOS, &o.NmFuncSolicOS,
		&o.DescrQueixa, &o.ExecTarefas, &o.CdFuncExec, &o.NmFuncExec, &o.DescrObsordserv, &o.DtEncordmanu,
		&o.DtAberordser, &o.DtIniparmanu, &o.DtFimparmanu, &o.DtPrevExec, &o.CdTpordservtv,
		&o.DescrTpordservtv, &o.DescrSitordsetv, &o.DescrRecomenos, &o.DescrSeqplamanu, &o.CdTpmanuttv,
		&o.DescrTpmanuttv, &o.CdClasorigos, &o.DescrClasorigos)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func workOrderArgs(o *model.WorkOrder) []any {
	return []any{o.CdOrdemserv, o.CdUnid, o.NomeUnid, o.CdUnidExec, o.NomeUnidExec,
		o.CdSetormanut, o.DescrSetormanut, o.CdTpcentativ, o.DescrAbrevTpcentativ, o.CdMaquina,
		o.DescrMaquina, o.DtEntrada, o.DtAberturaSolicita, o.CdFuncSolicOS, o.NmFuncSolicOS,
		o.DescrQueixa, o.ExecTarefas, o.CdFuncExec, o.NmFuncExec, o.DescrObsordserv, o.DtEncordmanu,
		o.DtAberordser, o.DtIniparmanu, o.DtFimparmanu, o.DtPrevExec, o.CdTpordservtv,
		o.DescrTpordservtv, o.DescrSitordsetv, o.DescrRecomenos, o.DescrSeqplamanu, o.CdTpmanuttv,
		o.DescrTpmanuttv, o.CdClasorigos, o.DescrClasorigos}
}

func (p *Postgres) GetWorkOrderByCode(ctx context.Context, cdOrdemserv int64) (*model.WorkOrder, error) {
	row := p.q.QueryRow(ctx, `SELECT `+workOrderColumns+` FROM ordens_servico WHERE cd_ordemserv = $1`, cdOrdemserv)
	o, err := scanWorkOrder(row)
	if err != nil {
		return nil, notFoundOr(err, "work order")
	}
	return o, nil
}

func (p *Postgres) InsertWorkOrder(ctx context.Context, o *model.WorkOrder) error {
	err := p.q.QueryRow(ctx, `INSERT INTO ordens_servico (cd_ordemserv, cd_unid, nome_unid,
		cd_unid_exec, nome_unid_exec, cd_setormanut, descr_setormanut, cd_tpcentativ,
		descr_abrev_tpcentativ, cd_maquina, descr_maquina, dt_entrada, dt_abertura_solicita,
		cd_func_solic_os, nm_func_solic_os, descr_queixa, exec_tarefas, cd_func_exec,
		nm_func_exec, descr_obsordserv, dt_encordmanu, dt_aberordser, dt_iniparmanu,
		dt_fimparmanu, dt_prev_exec, cd_tpordservtv, descr_tpordservtv, descr_sitordsetv,
		descr_recomenos, descr_seqplamanu, cd_tpmanuttv, descr_tpmanuttv, cd_clasorigos,
		descr_clasorigos)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
		$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34) RETURNING id`,
		workOrderArgs(o)...).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("failed to insert work order %d: %w", o.CdOrdemserv, err)
	}
	return nil
}

func (p *Postgres) UpdateWorkOrder(ctx context.Context, o *model.WorkOrder) error {
	args := append([]any{o.ID}, workOrderArgs(o)...)
	tag, err := p.q.Exec(ctx, `UPDATE ordens_servico SET cd_ordemserv=$2, cd_unid=$3, nome_unid=$4,
		cd_unid_exec=$5, nome_unid_exec=$6, cd_setormanut=$7, descr_setormanut=$8, cd_tpcentativ=$9,
		descr_abrev_tpcentativ=$10, cd_maquina=$11, descr_maquina=$12, dt_entrada=$13,
		dt_abertura_solicita=$14, cd_func_solic_os=$15, nm_func_solic_os=$16, descr_queixa=$17,
		exec_tarefas=$18, cd_func_exec=$19, nm_func_exec=$20, descr_obsordserv=$21,
		dt_encordmanu=$22, dt_aberordser=$23, dt_iniparmanu=$24, dt_fimparmanu=$25,
		dt_prev_exec=$26, cd_tpordservtv=$27, descr_tpordservtv=$28, descr_sitordsetv=$29,
		descr_recomenos=$30, descr_seqplamanu=$31, cd_tpmanuttv=$32, descr_tpmanuttv=$33,
		cd_clasorigos=$34, descr_clasorigos=$35 WHERE id=$1`, args...)
	if err != nil {
		return fmt.Errorf("failed to update work order %d: %w", o.CdOrdemserv, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListTickets(ctx context.Context, cdOrdemserv int64) ([]model.WorkOrderTicket, error) {
	rows, err := p.q.Query(ctx, `SELECT id, cd_ordemserv, cd_func_exec_os, nm_func_exec_os,
		dt_ficapomanu, dt_inic_iteficmanu, dt_fim_iteficmanu
		FROM ordem_servico_fichas WHERE cd_ordemserv = $1 ORDER BY id`, cdOrdemserv)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var out []model.WorkOrderTicket
	for rows.Next() {
		var t model.WorkOrderTicket
		if err := rows.Scan(&t.ID, &t.CdOrdemserv, &t.CdFuncExecOS, &t.NmFuncExecOS,
			&t.DtFicapomanu, &t.DtInicIteficmanu, &t.DtFimIteficmanu); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) InsertTicket(ctx context.Context, t *model.WorkOrderTicket) error {
	err := p.q.QueryRow(ctx, `INSERT INTO ordem_servico_fichas (cd_ordemserv, cd_func_exec_os,
		nm_func_exec_os, dt_ficapomanu, dt_inic_iteficmanu, dt_fim_iteficmanu)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		t.CdOrdemserv, t.CdFuncExecOS, t.NmFuncExecOS, t.DtFicapomanu,
		t.DtInicIteficmanu, t.DtFimIteficmanu).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert ticket for order %d: %w", t.CdOrdemserv, err)
	}
	return nil
}

func (p *Postgres) GetStockItemByCode(ctx context.Context, codigoItem int64) (*model.StockItem, error) {
	row := p.q.QueryRow(ctx, `SELECT id, codigo_item, estante, prateleira, coluna, sequencia,
		descricao_dest_uso, descricao_item, unidade_medida, quantidade::text, valor::text,
		controla_estoque_minimo, classificacao_tempo_sem_consumo
		FROM itens_estoque WHERE codigo_item = $1`, codigoItem)

	var s model.StockItem
	var qtd, val *string
	err := row.Scan(&s.ID, &s.CodigoItem, &s.Estante, &s.Prateleira, &s.Coluna, &s.Sequencia,
		&s.DescricaoDestUso, &s.DescricaoItem, &s.UnidadeMedida, &qtd, &val,
		&s.ControlaEstoqueMinimo, &s.ClassificacaoTempoSemConsumo)
	if err != nil {
		return nil, notFoundOr(err, "stock item")
	}
	s.Quantidade = scanDecimal(qtd)
	s.Valor = scanDecimal(val)
	return &s, nil
}

func (p *Postgres) InsertStockItem(ctx context.Context, s *model.StockItem) error {
	err := p.q.QueryRow(ctx, `INSERT INTO itens_estoque (codigo_item, estante, prateleira,
		coluna, sequencia, descricao_dest_uso, descricao_item, unidade_medida, quantidade,
		valor, controla_estoque_minimo, classificacao_tempo_sem_consumo)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
		s.CodigoItem, s.Estante, s.Prateleira, s.Coluna, s.Sequencia, s.DescricaoDestUso,
		s.DescricaoItem, s.UnidadeMedida, s.Quantidade.String(), s.Valor.String(),
		s.ControlaEstoqueMinimo, s.ClassificacaoTempoSemConsumo).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to insert stock item %d: %w", s.CodigoItem, err)
	}
	return nil
}

func (p *Postgres) UpdateStockItem(ctx context.Context, s *model.StockItem) error {
	tag, err := p.q.Exec(ctx, `UPDATE itens_estoque SET codigo_item=$2, estante=$3, prateleira=$4,
		coluna=$5, sequencia=$6, descricao_dest_uso=$7, descricao_item=$8, unidade_medida=$9,
		quantidade=$10, valor=$11, controla_estoque_minimo=$12, classificacao_tempo_sem_consumo=$13
		WHERE id=$1`,
		s.ID, s.CodigoItem, s.Estante, s.Prateleira, s.Coluna, s.Sequencia, s.DescricaoDestUso,
		s.DescricaoItem, s.UnidadeMedida, s.Quantidade.String(), s.Valor.String(),
		s.ControlaEstoqueMinimo, s.ClassificacaoTempoSemConsumo)
	if err != nil {
		return fmt.Errorf("failed to update stock item %d: %w", s.CodigoItem, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetActivityCenterByCA(ctx context.Context, ca int64) (*model.ActivityCenter, error) {
	row := p.q.QueryRow(ctx, `SELECT id, ca, sigla, descricao, indice, encarregado_responsavel
		FROM centros_atividade WHERE ca = $1`, ca)
	var c model.ActivityCenter
	if err := row.Scan(&c.ID, &c.CA, &c.Sigla, &c.Descricao, &c.Indice, &c.EncarregadoResponsavel); err != nil {
		return nil, notFoundOr(err, "activity center")
	}
	return &c, nil
}

func (p *Postgres) InsertActivityCenter(ctx context.Context, c *model.ActivityCenter) error {
	err := p.q.QueryRow(ctx, `INSERT INTO centros_atividade (ca, sigla, descricao, indice,
		encarregado_responsavel) VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		c.CA, c.Sigla, c.Descricao, c.Indice, c.EncarregadoResponsavel).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to insert activity center %d: %w", c.CA, err)
	}
	return nil
}

func (p *Postgres) UpdateActivityCenter(ctx context.Context, c *model.ActivityCenter) error {
	tag, err := p.q.Exec(ctx, `UPDATE centros_atividade SET ca=$2, sigla=$3, descricao=$4,
		indice=$5, encarregado_responsavel=$6 WHERE id=$1`,
		c.ID, c.CA, c.Sigla, c.Descricao, c.Indice, c.EncarregadoResponsavel)
	if err != nil {
		return fmt.Errorf("failed to update activity center %d: %w", c.CA, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListActivityCenterLocations(ctx context.Context, ca int64) ([]model.ActivityCenterLocation, error) {
	rows, err := p.q.Query(ctx, `SELECT id, ca, local, observacoes
		FROM centro_atividade_locais WHERE ca = $1 ORDER BY id`, ca)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity center locations: %w", err)
	}
	defer rows.Close()

	var out []model.ActivityCenterLocation
	for rows.Next() {
		var l model.ActivityCenterLocation
		if err := rows.Scan(&l.ID, &l.CA, &l.Local, &l.Observacoes); err != nil {
			return nil, fmt.Errorf("failed to scan activity center location: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (p *Postgres) InsertActivityCenterLocation(ctx context.Context, l *model.ActivityCenterLocation) error {
	err := p.q.QueryRow(ctx, `INSERT INTO centro_atividade_locais (ca, local, observacoes)
		VALUES ($1,$2,$3) RETURNING id`, l.CA, l.Local, l.Observacoes).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to insert location for activity center %d: %w", l.CA, err)
	}
	return nil
}

func (p *Postgres) GetTechnician(ctx context.Context, matricula string) (*model.Technician, error) {
	row := p.q.QueryRow(ctx, `SELECT matricula, nome, cargo, horario_inicio, horario_fim,
		tempo_trabalho, turno, local_trab FROM manutentores WHERE matricula = $1`, matricula)
	var t model.Technician
	if err := row.Scan(&t.Matricula, &t.Nome, &t.Cargo, &t.HorarioInicio, &t.HorarioFim,
		&t.TempoTrabalho, &t.Turno, &t.LocalTrab); err != nil {
		return nil, notFoundOr(err, "technician")
	}
	return &t, nil
}

func (p *Postgres) InsertTechnician(ctx context.Context, t *model.Technician) error {
	_, err := p.q.Exec(ctx, `INSERT INTO manutentores (matricula, nome, cargo, horario_inicio,
		horario_fim, tempo_trabalho, turno, local_trab) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.Matricula, t.Nome, t.Cargo, t.HorarioInicio, t.HorarioFim,
		t.TempoTrabalho, t.Turno, t.LocalTrab)
	if err != nil {
		return fmt.Errorf("failed to insert technician %s: %w", t.Matricula, err)
	}
	return nil
}

func (p *Postgres) UpdateTechnician(ctx context.Context, t *model.Technician) error {
	tag, err := p.q.Exec(ctx, `UPDATE manutentores SET nome=$2, cargo=$3, horario_inicio=$4,
		horario_fim=$5, tempo_trabalho=$6, turno=$7, local_trab=$8 WHERE matricula=$1`,
		t.Matricula, t.Nome, t.Cargo, t.HorarioInicio, t.HorarioFim,
		t.TempoTrabalho, t.Turno, t.LocalTrab)
	if err != nil {
		return fmt.Errorf("failed to update technician %s: %w", t.Matricula, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const planColumns = `id, cd_unid, nome_unid, cd_setor, descr_setor, cd_atividade, cd_maquina,
	descr_maquina, nro_patrimonio, numero_plano, descr_plano, sequencia_manutencao,
	dt_execucao, quantidade_periodo, sequencia_tarefa, descr_tarefa, cd_funcionario,
	nome_funcionario, descr_seqplamanu, machine_id, routine_id`

func scanPlan(row pgx.Row) (*model.PreventivePlan, error) {
	var pl model.PreventivePlan
	err := row.Scan(&pl.ID, &pl.CdUnid, &pl.NomeUnid, &pl.CdSetor, &pl.DescrSetor, &pl.CdAtividade,
		&pl.CdMaquina, &pl.DescrMaquina, &pl.NroPatrimonio, &pl.NumeroPlano, &pl.DescrPlano,
		&pl.SequenciaManutencao, &pl.DtExecucao, &pl.QuantidadePeriodo, &pl.SequenciaTarefa,
		&pl.DescrTarefa, &pl.CdFuncionario, &pl.NomeFuncionario, &pl.DescrSeqplamanu,
		&pl.MachineID, &pl.RoutineID)
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

func planArgs(pl *model.PreventivePlan) []any {
	return []any{pl.CdUnid, pl.NomeUnid, pl.CdSetor, pl.DescrSetor, pl.CdAtividade, pl.CdMaquina,
		pl.DescrMaquina, pl.NroPatrimonio, pl.NumeroPlano, pl.DescrPlano, pl.SequenciaManutencao,
		pl.DtExecucao, pl.QuantidadePeriodo, pl.SequenciaTarefa, pl.DescrTarefa, pl.CdFuncionario,
		pl.NomeFuncionario, pl.DescrSeqplamanu, pl.MachineID, pl.RoutineID}
}

func (p *Postgres) GetPlanByKey(ctx context.Context, key model.PlanKey) (*model.PreventivePlan, error) {
	row := p.q.QueryRow(ctx, `SELECT `+planColumns+` FROM planos_preventiva
		WHERE numero_plano IS NOT DISTINCT FROM $1
		  AND cd_maquina IS NOT DISTINCT FROM $2
		  AND sequencia_tarefa IS NOT DISTINCT FROM $3
		  AND sequencia_manutencao IS NOT DISTINCT FROM $4`,
		key.NumeroPlano, key.CdMaquina, key.SequenciaTarefa, key.SequenciaManutencao)
	pl, err := scanPlan(row)
	if err != nil {
		return nil, notFoundOr(err, "plan")
	}
	return pl, nil
}

func (p *Postgres) GetPlanByID(ctx context.Context, id int64) (*model.PreventivePlan, error) {
	row := p.q.QueryRow(ctx, `SELECT `+planColumns+` FROM planos_preventiva WHERE id = $1`, id)
	pl, err := scanPlan(row)
	if err != nil {
		return nil, notFoundOr(err, "plan")
	}
	return pl, nil
}

func (p *Postgres) InsertPlan(ctx context.Context, pl *model.PreventivePlan) error {
	err := p.q.QueryRow(ctx, `INSERT INTO planos_preventiva (cd_unid, nome_unid, cd_setor,
		descr_setor, cd_atividade, cd_maquina, descr_maquina, nro_patrimonio, numero_plano,
		descr_plano, sequencia_manutencao, dt_execucao, quantidade_periodo, sequencia_tarefa,
		descr_tarefa, cd_funcionario, nome_funcionario, descr_seqplamanu, machine_id, routine_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		RETURNING id`, planArgs(pl)...).Scan(&pl.ID)
	if err != nil {
		return fmt.Errorf("failed to insert plan %s: %w", pl.Key(), err)
	}
	return nil
}

func (p *Postgres) UpdatePlan(ctx context.Context, pl *model.PreventivePlan) error {
	args := append([]any{pl.ID}, planArgs(pl)...)
	tag, err := p.q.Exec(ctx, `UPDATE planos_preventiva SET cd_unid=$2, nome_unid=$3, cd_setor=$4,
		descr_setor=$5, cd_atividade=$6, cd_maquina=$7, descr_maquina=$8, nro_patrimonio=$9,
		numero_plano=$10, descr_plano=$11, sequencia_manutencao=$12, dt_execucao=$13,
		quantidade_periodo=$14, sequencia_tarefa=$15, descr_tarefa=$16, cd_funcionario=$17,
		nome_funcionario=$18, descr_seqplamanu=$19, machine_id=$20, routine_id=$21 WHERE id=$1`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to update plan %s: %w", pl.Key(), err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListPlans(ctx context.Context) ([]model.PreventivePlan, error) {
	rows, err := p.q.Query(ctx, `SELECT `+planColumns+` FROM planos_preventiva ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var out []model.PreventivePlan
	for rows.Next() {
		pl, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		out = append(out, *pl)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdatePlanLink(ctx context.Context, planID, routineID int64, descrSeqplamanu *string) error {
	if _, err := p.GetRoutineByID(ctx, routineID); err != nil {
		return err
	}
	tag, err := p.q.Exec(ctx, `UPDATE planos_preventiva SET routine_id=$2, descr_seqplamanu=$3
		WHERE id=$1`, planID, routineID, descrSeqplamanu)
	if err != nil {
		return fmt.Errorf("failed to link plan %d to routine %d: %w", planID, routineID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const routineColumns = `id, cd_unid, nome_unid, cd_funciomanu, nome_funciomanu, funciomanu_id,
	cd_setormanut, descr_setormanut, cd_tpcentativ, descr_abrev_tpcentativ, dt_abertura,
	cd_ordemserv, ordemserv_id, cd_maquina, descr_maquina, cd_planmanut, descr_planmanut,
	descr_recomenos, cf_dt_final_execucao, cs_qtde_periodo_max, cs_tot_temp, cf_tot_temp,
	seq_seqplamanu, cd_tarefamanu, descr_tarefamanu, descr_periodo, dt_primexec, tempo_prev,
	qtde_periodo, descr_seqplamanu, cf_temp_prev, itemplanma_id, cd_item, descr_item,
	item_id, qtde, qtde_saldo, qtde_reserva, machine_id`

func scanRoutine(row pgx.Row) (*model.MaintenanceRoutine, error) {
	var r model.MaintenanceRoutine
	err := row.Scan(&r.ID, &r.CdUnid, &r.NomeUnid, &r.CdFunciomanu, &r.NomeFunciomanu, &r.FunciomanuID,
		&r.CdSetormanut, &r.DescrSetormanut, &r.CdTpcentativ, &r.DescrAbrevTpcentativ, &r.DtAbertura,
		&r.CdOrdemserv, &r.OrdemservID, &r.CdMaquina, &r.DescrMaquina, &r.CdPlanmanut, &r.DescrPlanmanut,
		&r.DescrRecomenos, &r.CfDtFinalExecucao, &r.CsQtdePeriodoMax, &r.CsTotTemp, &r.CfTotTemp,
		&r.SeqSeqplamanu, &r.CdTarefamanu, &r.DescrTarefamanu, &r.DescrPeriodo, &r.DtPrimexec, &r.TempoPrev,
		&r.QtdePeriodo, &r.DescrSeqplamanu, &r.CfTempPrev, &r.ItemplanmaID, &r.CdItem, &r.DescrItem,
		&r.ItemID, &r.Qtde, &r.QtdeSaldo, &r.QtdeReserva, &r.MachineID)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func routineArgs(r *model.MaintenanceRoutine) []any {
	return []any{r.CdUnid, r.NomeUnid, r.CdFunciomanu, r.NomeFunciomanu, r.FunciomanuID,
		r.CdSetormanut, r.DescrSetormanut, r.CdTpcentativ, r.DescrAbrevTpcentativ, r.DtAbertura,
		r.CdOrdemserv, r.OrdemservID, r.CdMaquina, r.DescrMaquina, r.CdPlanmanut, r.DescrPlanmanut,
		r.DescrRecomenos, r.CfDtFinalExecucao, r.CsQtdePeriodoMax, r.CsTotTemp, r.CfTotTemp,
		r.SeqSeqplamanu, r.CdTarefamanu, r.DescrTarefamanu, r.DescrPeriodo, r.DtPrimexec, r.TempoPrev,
		r.QtdePeriodo, r.DescrSeqplamanu, r.CfTempPrev, r.ItemplanmaID, r.CdItem, r.DescrItem,
		r.ItemID, r.Qtde, r.QtdeSaldo, r.QtdeReserva, r.MachineID}
}

func (p *Postgres) GetRoutineByKey(ctx context.Context, key model.RoutineKey) (*model.MaintenanceRoutine, error) {
	row := p.q.QueryRow(ctx, `SELECT `+routineColumns+` FROM roteiros_preventiva
		WHERE cd_ordemserv IS NOT DISTINCT FROM $1
		  AND cd_planmanut IS NOT DISTINCT FROM $2
		  AND seq_seqplamanu IS NOT DISTINCT FROM $3
		  AND cd_tarefamanu IS NOT DISTINCT FROM $4`,
		key.CdOrdemserv, key.CdPlanmanut, key.SeqSeqplamanu, key.CdTarefamanu)
	r, err := scanRoutine(row)
	if err != nil {
		return nil, notFoundOr(err, "routine")
	}
	return r, nil
}

func (p *Postgres) GetRoutineByID(ctx context.Context, id int64) (*model.MaintenanceRoutine, error) {
	row := p.q.QueryRow(ctx, `SELECT `+routineColumns+` FROM roteiros_preventiva WHERE id = $1`, id)
	r, err := scanRoutine(row)
	if err != nil {
		return nil, notFoundOr(err, "routine")
	}
	return r, nil
}

func (p *Postgres) InsertRoutine(ctx context.Context, r *model.MaintenanceRoutine) error {
	err := p.q.QueryRow(ctx, `INSERT INTO roteiros_preventiva (cd_unid, nome_unid, cd_funciomanu,
		nome_funciomanu, funciomanu_id, cd_setormanut, descr_setormanut, cd_tpcentativ,
		descr_abrev_tpcentativ, dt_abertura, cd_ordemserv, ordemserv_id, cd_maquina,
		descr_maquina, cd_planmanut, descr_planmanut, descr_recomenos, cf_dt_final_execucao,
		cs_qtde_periodo_max, cs_tot_temp, cf_tot_temp, seq_seqplamanu, cd_tarefamanu,
		descr_tarefamanu, descr_periodo, dt_primexec, tempo_prev, qtde_periodo,
		descr_seqplamanu, cf_temp_prev, itemplanma_id, cd_item, descr_item, item_id, qtde,
		qtde_saldo, qtde_reserva, machine_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
		$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36,$37,$38)
		RETURNING id`, routineArgs(r)...).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to insert routine %s: %w", r.Key(), err)
	}
	return nil
}

func (p *Postgres) UpdateRoutine(ctx context.Context, r *model.MaintenanceRoutine) error {
	args := append([]any{r.ID}, routineArgs(r)...)
	tag, err := p.q.Exec(ctx, `UPDATE roteiros_preventiva SET cd_unid=$2, nome_unid=$3,
		cd_funciomanu=$4, nome_funciomanu=$5, funciomanu_id=$6, cd_setormanut=$7,
		descr_setormanut=$8, cd_tpcentativ=$9, descr_abrev_tpcentativ=$10, dt_abertura=$11,
		cd_ordemserv=$12, ordemserv_id=$13, cd_maquina=$14, descr_maquina=$15, cd_planmanut=$16,
		descr_planmanut=$17, descr_recomenos=$18, cf_dt_final_execucao=$19,
		cs_qtde_periodo_max=$20, cs_tot_temp=$21, cf_tot_temp=$22, seq_seqplamanu=$23,
		cd_tarefamanu=$24, descr_tarefamanu=$25, descr_periodo=$26, dt_primexec=$27,
		tempo_prev=$28, qtde_periodo=$29, descr_seqplamanu=$30, cf_temp_prev=$31,
		itemplanma_id=$32, cd_item=$33, descr_item=$34, item_id=$35, qtde=$36, qtde_saldo=$37,
		qtde_reserva=$38, machine_id=$39 WHERE id=$1`, args...)
	if err != nil {
		return fmt.Errorf("failed to update routine %s: %w", r.Key(), err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListRoutines(ctx context.Context) ([]model.MaintenanceRoutine, error) {
	rows, err := p.q.Query(ctx, `SELECT `+routineColumns+` FROM roteiros_preventiva ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query routines: %w", err)
	}
	defer rows.Close()

	var out []model.MaintenanceRoutine
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan routine: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (p *Postgres) GetWeek(ctx context.Context, semana string, inicio *time.Time) (*model.Week, error) {
	row := p.q.QueryRow(ctx, `SELECT id, semana, inicio, fim FROM semanas_52
		WHERE semana = $1 AND inicio IS NOT DISTINCT FROM $2`, semana, inicio)
	var w model.Week
	if err := row.Scan(&w.ID, &w.Semana, &w.Inicio, &w.Fim); err != nil {
		return nil, notFoundOr(err, "week")
	}
	return &w, nil
}

func (p *Postgres) InsertWeek(ctx context.Context, w *model.Week) error {
	err := p.q.QueryRow(ctx, `INSERT INTO semanas_52 (semana, inicio, fim)
		VALUES ($1,$2,$3) RETURNING id`, w.Semana, w.Inicio, w.Fim).Scan(&w.ID)
	if err != nil {
		return fmt.Errorf("failed to insert week %s: %w", w.Semana, err)
	}
	return nil
}

func (p *Postgres) UpdateWeek(ctx context.Context, w *model.Week) error {
	tag, err := p.q.Exec(ctx, `UPDATE semanas_52 SET semana=$2, inicio=$3, fim=$4 WHERE id=$1`,
		w.ID, w.Semana, w.Inicio, w.Fim)
	if err != nil {
		return fmt.Errorf("failed to update week %s: %w", w.Semana, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const requisitionColumns = `id, data_requisicao, cd_unid, nome_unid, cd_uso_ctb, descr_uso_ctb,
	cd_depo, descr_depo, cd_local_fisic, descr_local_fisic, cd_item, cd_embalagem, descr_item,
	cd_operacao, descr_operacao, cd_unid_medida, qtde_movto_estoq::text, vlr_movto_estoq::text,
	vlr_movto_estoq_reav::text, cd_unid_baixa, cd_centro_ativ, cd_usu_criou, cd_usu_atend,
	obs_rm, obs_item`

func scanRequisition(row pgx.Row) (*model.WarehouseRequisition, error) {
	var r model.WarehouseRequisition
	var qtde, vlr, vlrReav *string
	err := row.Scan(&r.ID, &r.DataRequisicao, &r.CdUnid, &r.NomeUnid, &r.CdUsoCtb, &r.DescrUsoCtb,
		&r.CdDepo, &r.DescrDepo, &r.CdLocalFisic, &r.DescrLocalFisic, &r.CdItem, &r.CdEmbalagem,
		&r.DescrItem, &r.CdOperacao, &r.DescrOperacao, &r.CdUnidMedida, &qtde, &vlr,
		&vlrReav, &r.CdUnidBaixa, &r.CdCentroAtiv, &r.CdUsuCriou, &r.CdUsuAtend,
		&r.ObsRM, &r.ObsItem)
	if err != nil {
		return nil, err
	}
	r.QtdeMovtoEstoq = scanDecimal(qtde)
	r.VlrMovtoEstoq = scanDecimal(vlr)
	r.VlrMovtoEstoqReav = scanDecimal(vlrReav)
	return &r, nil
}

func requisitionArgs(r *model.WarehouseRequisition) []any {
	return []any{r.DataRequisicao, r.CdUnid, r.NomeUnid, r.CdUsoCtb, r.DescrUsoCtb,
		r.CdDepo, r.DescrDepo, r.CdLocalFisic, r.DescrLocalFisic, r.CdItem, r.CdEmbalagem,
		r.DescrItem, r.CdOperacao, r.DescrOperacao, r.CdUnidMedida, r.QtdeMovtoEstoq.String(),
		r.VlrMovtoEstoq.String(), r.VlrMovtoEstoqReav.String(), r.CdUnidBaixa, r.CdCentroAtiv,
		r.CdUsuCriou, r.CdUsuAtend, r.ObsRM, r.ObsItem}
}

func (p *Postgres) GetRequisition(ctx context.Context, dataRequisicao time.Time, cdItem int64) (*model.WarehouseRequisition, error) {
	row := p.q.QueryRow(ctx, `SELECT `+requisitionColumns+` FROM requisicoes_almoxarifado
		WHERE data_requisicao = $1 AND cd_item = $2`, dataRequisicao, cdItem)
	r, err := scanRequisition(row)
	if err != nil {
		return nil, notFoundOr(err, "requisition")
	}
	return r, nil
}

func (p *Postgres) InsertRequisition(ctx context.Context, r *model.WarehouseRequisition) error {
	err := p.q.QueryRow(ctx, `INSERT INTO requisicoes_almoxarifado (data_requisicao, cd_unid,
		nome_unid, cd_uso_ctb, descr_uso_ctb, cd_depo, descr_depo, cd_local_fisic,
		descr_local_fisic, cd_item, cd_embalagem, descr_item, cd_operacao, descr_operacao,
		cd_unid_medida, qtde_movto_estoq, vlr_movto_estoq, vlr_movto_estoq_reav, cd_unid_baixa,
		cd_centro_ativ, cd_usu_criou, cd_usu_atend, obs_rm, obs_item)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
		$21,$22,$23,$24) RETURNING id`, requisitionArgs(r)...).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to insert requisition for item %d: %w", r.CdItem, err)
	}
	return nil
}

func (p *Postgres) UpdateRequisition(ctx context.Context, r *model.WarehouseRequisition) error {
	args := append([]any{r.ID}, requisitionArgs(r)...)
	tag, err := p.q.Exec(ctx, `UPDATE requisicoes_almoxarifado SET data_requisicao=$2, cd_unid=$3,
		nome_unid=$4, cd_uso_ctb=$5, descr_uso_ctb=$6, cd_depo=$7, descr_depo=$8,
		cd_local_fisic=$9, descr_local_fisic=$10, cd_item=$11, cd_embalagem=$12, descr_item=$13,
		cd_operacao=$14, descr_operacao=$15, cd_unid_medida=$16, qtde_movto_estoq=$17,
		vlr_movto_estoq=$18, vlr_movto_estoq_reav=$19, cd_unid_baixa=$20, cd_centro_ativ=$21,
		cd_usu_criou=$22, cd_usu_atend=$23, obs_rm=$24, obs_item=$25 WHERE id=$1`, args...)
	if err != nil {
		return fmt.Errorf("failed to update requisition for item %d: %w", r.CdItem, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
