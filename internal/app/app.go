// Package app wires the command line interface: flag parsing, configuration
// loading, store construction, and dispatch to the import, reconcile, and
// link modes.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"maintsync/internal/config"
	"maintsync/internal/importer"
	maintio "maintsync/internal/io"
	"maintsync/internal/logging"
	"maintsync/internal/matcher"
	"maintsync/internal/model"
	"maintsync/internal/store"
	"maintsync/internal/util"
)

// Define common application-level errors.
var (
	ErrUsage          = errors.New("usage error")
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrMissingArgs    = errors.New("missing required arguments")
)

// --- Factory Variables (Allow Overriding for Testing) ---
var (
	newStoreFunc = func(ctx context.Context, connStr string) (store.Store, func(), error) {
		pg, err := store.NewPostgres(ctx, connStr)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}
	newRowErrorWriterFunc = maintio.NewRowErrorWriter
	writeReportFunc       = maintio.WriteXLSXReport
	osStatFunc            = os.Stat
)

// maxDisplayedErrors caps how many row errors the import summary prints.
// The full list still goes to the error report file.
const maxDisplayedErrors = 10

const usageText = `Usage: maintsync -mode <import|reconcile|link> [options]

Modes:
  import      Load one spreadsheet or CSV export into the database.
  reconcile   Score preventive plans against maintenance routines and write
              the match report workbook.
  link        Persist a manual plan-routine link.

Options:
  -mode <mode>          Operation to run (required).
  -config <path>        YAML configuration file. Built-in defaults are used
                        when omitted.
  -db <conn>            PostgreSQL connection string. Falls back to the
                        DB_CREDENTIALS environment variable.
  -entity <name>        Import entity: machines, workorders, stock,
                        activitycenters, technicians, plans, routines,
                        weeks, requisitions.
  -file <path>          Input file for import mode (.csv, .xlsx, .xls, .xlsm).
  -update               Update existing records instead of skipping them.
  -update-fields <a,b>  Comma separated field names to update (machines only).
  -date <YYYY-MM-DD>    Business date, required for the requisitions entity.
  -plan <id>            Plan id for link mode.
  -routine <id>         Routine id for link mode.
  -report <path>        Reconciliation report workbook path
                        (default reconciliation.xlsx).
  -dry-run              Run the import inside a transaction and roll it back.
  -loglevel <level>     none, error, warning, info, debug (default info).
  -help                 Show this help message.
`

// AppRunner encapsulates the application's execution logic.
type AppRunner struct {
	out io.Writer
}

// NewAppRunner creates a runner writing summaries to stdout.
func NewAppRunner() *AppRunner {
	return &AppRunner{out: os.Stdout}
}

// Usage prints the command-line help information to the specified writer.
func (a *AppRunner) Usage(writer io.Writer) {
	fmt.Fprint(writer, usageText)
}

// Run parses command-line arguments and executes the requested mode.
func (a *AppRunner) Run(args []string) error {
	fs := flag.NewFlagSet("maintsync", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	modeFlag := fs.String("mode", "", "Operation to run")
	configFile := fs.String("config", "", "YAML configuration file")
	dbConnStr := fs.String("db", "", "PostgreSQL connection string")
	entityFlag := fs.String("entity", "", "Import entity name")
	fileFlag := fs.String("file", "", "Input file for import mode")
	updateFlag := fs.Bool("update", false, "Update existing records")
	updateFieldsFlag := fs.String("update-fields", "", "Comma separated update field names")
	dateFlag := fs.String("date", "", "Business date (YYYY-MM-DD)")
	planFlag := fs.Int64("plan", 0, "Plan id for link mode")
	routineFlag := fs.Int64("routine", 0, "Routine id for link mode")
	reportFlag := fs.String("report", "reconciliation.xlsx", "Reconciliation report path")
	dryRunFlag := fs.Bool("dry-run", false, "Perform dry run")
	logLevelStr := fs.String("loglevel", "info", "Logging level")
	helpFlag := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			a.Usage(os.Stderr)
			return nil
		}
		logging.Logf(logging.Error, "Failed to parse args: %v", err)
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *helpFlag || (len(args) == 0 && !anyFlagsSet(fs)) {
		a.Usage(os.Stderr)
		return nil
	}

	logging.SetupLogging(*logLevelStr)

	cfg, err := a.loadConfig(*configFile)
	if err != nil {
		return err
	}
	if !isFlagSet(fs, "loglevel") && cfg.Logging.Level != "" {
		logging.SetupLogging(cfg.Logging.Level)
	}

	ctx := context.Background()

	switch *modeFlag {
	case "":
		logging.Logf(logging.Error, "The -mode flag is required.")
		return fmt.Errorf("%w: -mode", ErrMissingArgs)
	case "import":
		if *entityFlag == "" || *fileFlag == "" {
			logging.Logf(logging.Error, "Import mode requires -entity and -file.")
			return fmt.Errorf("%w: -entity and -file", ErrMissingArgs)
		}
		opts, err := importOptions(*updateFlag, *updateFieldsFlag, *dateFlag, *dryRunFlag)
		if err != nil {
			return err
		}
		s, closeStore, err := a.openStore(ctx, *dbConnStr)
		if err != nil {
			return err
		}
		defer closeStore()
		return a.runImport(ctx, s, cfg, *entityFlag, *fileFlag, opts)
	case "reconcile":
		s, closeStore, err := a.openStore(ctx, *dbConnStr)
		if err != nil {
			return err
		}
		defer closeStore()
		return a.runReconcile(ctx, s, cfg, *reportFlag)
	case "link":
		if *planFlag <= 0 || *routineFlag <= 0 {
			logging.Logf(logging.Error, "Link mode requires positive -plan and -routine ids.")
			return fmt.Errorf("%w: -plan and -routine", ErrMissingArgs)
		}
		s, closeStore, err := a.openStore(ctx, *dbConnStr)
		if err != nil {
			return err
		}
		defer closeStore()
		if err := matcher.ConfirmLink(ctx, s, *planFlag, *routineFlag); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Plano %d vinculado ao roteiro %d.\n", *planFlag, *routineFlag)
		return nil
	default:
		logging.Logf(logging.Error, "Unknown mode '%s'.", *modeFlag)
		return fmt.Errorf("%w: unknown mode '%s'", ErrUsage, *modeFlag)
	}
}

// loadConfig reads the YAML file when a path was given and falls back to the
// built-in defaults otherwise.
func (a *AppRunner) loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	if _, err := osStatFunc(path); err != nil {
		if os.IsNotExist(err) {
			logging.Logf(logging.Error, "Config file '%s' not found.", path)
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to stat config file '%s': %w", path, err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logging.Logf(logging.Error, "Error loading config '%s': %v", path, err)
		return nil, err
	}
	return cfg, nil
}

// openStore resolves the connection string and builds the database store.
func (a *AppRunner) openStore(ctx context.Context, connStr string) (store.Store, func(), error) {
	if connStr == "" {
		connStr = os.Getenv("DB_CREDENTIALS")
	}
	if connStr == "" {
		logging.Logf(logging.Error, "No database connection string. Use -db or set DB_CREDENTIALS.")
		return nil, nil, fmt.Errorf("%w: database connection string", ErrMissingArgs)
	}
	connStr = util.ExpandEnvUniversal(connStr)
	logging.Logf(logging.Debug, "Connecting to database: %s", util.MaskCredentials(connStr))
	return newStoreFunc(ctx, connStr)
}

// importOptions validates the import flags. Naming -update-fields implies
// -update.
func importOptions(update bool, updateFields, date string, dryRun bool) (importer.Options, error) {
	opts := importer.Options{UpdateExisting: update, DryRun: dryRun}
	for _, f := range strings.Split(updateFields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			opts.UpdateFields = append(opts.UpdateFields, f)
		}
	}
	if len(opts.UpdateFields) > 0 {
		opts.UpdateExisting = true
	}
	if date != "" {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			return opts, fmt.Errorf("%w: invalid -date '%s', expected YYYY-MM-DD", ErrUsage, date)
		}
		opts.RequisitionDate = t
	}
	return opts, nil
}

func (a *AppRunner) runImport(ctx context.Context, s store.Store, cfg *config.Config,
	entity, file string, opts importer.Options) error {
	var errWriter *maintio.RowErrorWriter
	if cfg.ErrorFile != "" {
		var err error
		errWriter, err = newRowErrorWriterFunc(util.ExpandEnvUniversal(cfg.ErrorFile))
		if err != nil {
			return err
		}
		defer func() {
			if err := errWriter.Close(); err != nil {
				logging.Logf(logging.Error, "Failed to close error report: %v", err)
			}
		}()
	}

	res, err := importer.New(s, cfg, errWriter).Run(ctx, entity, util.ExpandEnvUniversal(file), opts)
	if err != nil {
		return err
	}

	if opts.DryRun {
		fmt.Fprintln(a.out, "Simulação: nenhuma alteração foi gravada.")
	}
	fmt.Fprintf(a.out, "Criados: %d\nAtualizados: %d\nErros: %d\n",
		res.Created, res.Updated, len(res.Errors))
	for i, msg := range res.Errors {
		if i == maxDisplayedErrors {
			fmt.Fprintf(a.out, "... e mais %d erros\n", len(res.Errors)-maxDisplayedErrors)
			break
		}
		fmt.Fprintln(a.out, msg)
	}
	return nil
}

func (a *AppRunner) runReconcile(ctx context.Context, s store.Store, cfg *config.Config, reportPath string) error {
	m := matcher.New(cfg.Matcher.Weights, cfg.Matcher.Threshold, cfg.Matcher.Perfect)
	report, err := m.Run(ctx, s)
	if err != nil {
		return err
	}

	sheets := []maintio.ReportSheet{
		matchedSheet(report.Matches),
		unmatchedPlansSheet(report.UnmatchedPlans),
		unmatchedRoutinesSheet(report.UnmatchedRoutines),
	}
	if err := writeReportFunc(util.ExpandEnvUniversal(reportPath), sheets); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Vinculados: %d\nPlanos sem roteiro: %d\nRoteiros sem plano: %d\nRelatório: %s\n",
		len(report.Matches), len(report.UnmatchedPlans), len(report.UnmatchedRoutines), reportPath)
	return nil
}

func matchedSheet(matches []matcher.Match) maintio.ReportSheet {
	rows := [][]string{{
		"plano_id", "numero_plano", "cd_maquina", "descr_plano",
		"roteiro_id", "cd_planmanut", "pontuacao", "perfeito", "campos",
	}}
	for _, m := range matches {
		rows = append(rows, []string{
			strconv.FormatInt(m.Plan.ID, 10),
			intCell(m.Plan.NumeroPlano),
			intCell(m.Plan.CdMaquina),
			strCell(m.Plan.DescrPlano),
			strconv.FormatInt(m.Routine.ID, 10),
			intCell(m.Routine.CdPlanmanut),
			strconv.FormatFloat(m.Score, 'f', 1, 64),
			simNao(m.Perfect),
			strings.Join(m.Fields, ", "),
		})
	}
	return maintio.ReportSheet{Name: "Vinculados", Rows: rows}
}

func unmatchedPlansSheet(plans []model.PreventivePlan) maintio.ReportSheet {
	rows := [][]string{{
		"plano_id", "numero_plano", "cd_maquina", "descr_maquina", "descr_plano",
		"cd_funcionario", "nome_funcionario", "sequencia_manutencao", "sequencia_tarefa",
	}}
	for _, p := range plans {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			intCell(p.NumeroPlano),
			intCell(p.CdMaquina),
			strCell(p.DescrMaquina),
			strCell(p.DescrPlano),
			strCell(p.CdFuncionario),
			strCell(p.NomeFuncionario),
			intCell(p.SequenciaManutencao),
			intCell(p.SequenciaTarefa),
		})
	}
	return maintio.ReportSheet{Name: "Planos sem roteiro", Rows: rows}
}

func unmatchedRoutinesSheet(routines []model.MaintenanceRoutine) maintio.ReportSheet {
	rows := [][]string{{
		"roteiro_id", "cd_planmanut", "cd_maquina", "descr_maquina",
		"cd_funciomanu", "nome_funciomanu", "seq_seqplamanu", "cd_tarefamanu",
	}}
	for _, r := range routines {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			intCell(r.CdPlanmanut),
			intCell(r.CdMaquina),
			strCell(r.DescrMaquina),
			strCell(r.CdFunciomanu),
			strCell(r.NomeFunciomanu),
			intCell(r.SeqSeqplamanu),
			intCell(r.CdTarefamanu),
		})
	}
	return maintio.ReportSheet{Name: "Roteiros sem plano", Rows: rows}
}

func intCell(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func strCell(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func simNao(b bool) string {
	if b {
		return "sim"
	}
	return "não"
}

// Helper functions
func anyFlagsSet(fs *flag.FlagSet) bool {
	any := false
	fs.Visit(func(*flag.Flag) { any = true })
	return any
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
