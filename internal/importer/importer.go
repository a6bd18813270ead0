// Package importer drives the bulk imports: one orchestrator reads and
// normalizes a file, then hands each row to the entity-specific upsert
// logic. Row problems become messages in the batch result; batch problems
// abort before anything is persisted.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Knetic/govaluate"

	"maintsync/internal/coerce"
	"maintsync/internal/config"
	"maintsync/internal/io"
	"maintsync/internal/logging"
	"maintsync/internal/normalize"
	"maintsync/internal/repair"
	"maintsync/internal/store"
)

// Options tunes one import batch.
type Options struct {
	// UpdateExisting makes rows with an existing key update the stored
	// record; otherwise such rows are skipped silently.
	UpdateExisting bool
	// UpdateFields restricts machine updates to the named fields.
	UpdateFields []string
	// RequisitionDate is the business date for the requisitions entity,
	// which does not carry one per row.
	RequisitionDate time.Time
	// DryRun parses, validates, and counts, then rolls the batch back.
	DryRun bool
}

// Result is the outcome of one import batch. Errors holds the full list of
// row messages; truncation for display is the caller's concern.
type Result struct {
	Created int
	Updated int
	Errors  []string
}

// outcome classifies what one row did to the store.
type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeCreated
	outcomeUpdated
)

// newTableReaderFunc allows overriding the reader factory for testing.
var newTableReaderFunc = io.NewTableReader

// errDryRunRollback aborts the transaction after a successful dry run.
var errDryRunRollback = errors.New("dry run rollback")

// Importer runs import batches against a store.
type Importer struct {
	store     store.Store
	cfg       *config.Config
	errWriter *io.RowErrorWriter
}

// New creates an Importer. errWriter may be nil when no error report file is
// wanted.
func New(s store.Store, cfg *config.Config, errWriter *io.RowErrorWriter) *Importer {
	return &Importer{store: s, cfg: cfg, errWriter: errWriter}
}

// Run imports one file for one entity. Batch-level failures return a zero
// Result and an error; row-level failures accumulate in Result.Errors as
// "Row N: <message>" with N counting from 2 (row 1 is the header).
func (imp *Importer) Run(ctx context.Context, entity, filePath string, opts Options) (Result, error) {
	entCfg, ok := imp.cfg.Entities[entity]
	if !ok {
		return Result{}, fmt.Errorf("unknown entity '%s'", entity)
	}
	if entity == config.EntityWeeks && !isSpreadsheet(filePath) {
		return Result{}, fmt.Errorf("entity '%s' only accepts spreadsheet files", entity)
	}
	if entity == config.EntityRequisitions && opts.RequisitionDate.IsZero() {
		return Result{}, errors.New("requisition date is required for the requisitions entity")
	}

	reader, err := newTableReaderFunc(filePath, entCfg.CSVAttempts)
	if err != nil {
		return Result{}, err
	}
	table, err := reader.Read(filePath)
	if err != nil {
		return Result{}, err
	}
	if len(table.Rows) == 0 {
		return Result{}, fmt.Errorf("file '%s' contains no data rows", filePath)
	}

	var filter *govaluate.EvaluableExpression
	if entCfg.Filter != "" {
		filter, err = govaluate.NewEvaluableExpression(entCfg.Filter)
		if err != nil {
			return Result{}, fmt.Errorf("invalid filter for entity '%s': %w", entity, err)
		}
	}

	norm := normalize.New(entCfg.Synonyms, entCfg.Fallbacks)
	logging.Logf(logging.Info, "importing %s from %s (%d rows)", entity, filePath, len(table.Rows))

	var res Result
	err = imp.store.WithTx(ctx, func(tx store.Store) error {
		batch := newBatchState()
		for i, raw := range table.Rows {
			rowNum := i + 2
			if rowIsEmpty(raw) {
				continue
			}

			headers, rec := norm.Row(table.Headers, raw)
			if entity == config.EntityPlans {
				headers = repair.FixEmployeeColumns(headers, rec)
			}

			if filter != nil {
				keep, err := evalFilter(filter, rec)
				if err != nil {
					imp.addRowError(&res, rowNum, err.Error(), rec)
					continue
				}
				if !keep {
					continue
				}
			}

			out, rowErr := imp.importRow(ctx, tx, entity, rowNum, headers, rec, opts, &res, batch)
			if rowErr != nil {
				imp.addRowError(&res, rowNum, rowErr.Error(), rec)
				continue
			}
			switch out {
			case outcomeCreated:
				res.Created++
			case outcomeUpdated:
				res.Updated++
			}
		}
		if opts.DryRun {
			return errDryRunRollback
		}
		return nil
	})
	if errors.Is(err, errDryRunRollback) {
		logging.Logf(logging.Info, "dry run: %d would be created, %d updated, %d errors",
			res.Created, res.Updated, len(res.Errors))
		return res, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("import of '%s' failed and was rolled back: %w", filePath, err)
	}
	logging.Logf(logging.Info, "import finished: %d created, %d updated, %d errors",
		res.Created, res.Updated, len(res.Errors))
	return res, nil
}

func (imp *Importer) importRow(ctx context.Context, tx store.Store, entity string, rowNum int,
	headers []string, rec io.Row, opts Options, res *Result, batch *batchState) (outcome, error) {
	switch entity {
	case config.EntityMachines:
		return imp.importMachine(ctx, tx, rec, opts)
	case config.EntityWorkOrders:
		return imp.importWorkOrder(ctx, tx, rowNum, rec, opts, res)
	case config.EntityStock:
		return imp.importStockItem(ctx, tx, rec, opts)
	case config.EntityActivityCenters:
		return imp.importActivityCenter(ctx, tx, headers, rec, opts)
	case config.EntityTechnicians:
		return imp.importTechnician(ctx, tx, rec, opts)
	case config.EntityPlans:
		return imp.importPlan(ctx, tx, rec, opts, batch)
	case config.EntityRoutines:
		return imp.importRoutine(ctx, tx, rec, opts, batch)
	case config.EntityWeeks:
		return imp.importWeek(ctx, tx, headers, rec, opts)
	case config.EntityRequisitions:
		return imp.importRequisition(ctx, tx, rec, opts)
	default:
		return outcomeSkipped, fmt.Errorf("unknown entity '%s'", entity)
	}
}

// batchState carries per-batch caches across rows.
type batchState struct {
	machineIDs map[int64]*int64
}

func newBatchState() *batchState {
	return &batchState{machineIDs: make(map[int64]*int64)}
}

func (imp *Importer) addRowError(res *Result, rowNum int, message string, rec io.Row) {
	msg := fmt.Sprintf("Row %d: %s", rowNum, message)
	res.Errors = append(res.Errors, msg)
	logging.Logf(logging.Warning, "%s", msg)
	if imp.errWriter != nil {
		if err := imp.errWriter.Write(rowNum, message, rec); err != nil {
			logging.Logf(logging.Error, "failed to record row error: %v", err)
		}
	}
}

func rowIsEmpty(rec io.Row) bool {
	for _, v := range rec {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return false
	}
	return true
}

func isSpreadsheet(filePath string) bool {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx", ".xls", ".xlsm":
		return true
	}
	return false
}

func evalFilter(filter *govaluate.EvaluableExpression, rec io.Row) (bool, error) {
	params := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		if v == nil {
			continue
		}
		params[k] = filterParam(v)
	}
	result, err := filter.Evaluate(params)
	if err != nil {
		return false, fmt.Errorf("filter evaluation failed: %v", err)
	}
	keep, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("filter did not evaluate to a boolean (got %T)", result)
	}
	return keep, nil
}

// filterParam coerces a raw cell value for filter evaluation. Delimited text
// files deliver every cell as a string, so numeric-looking values are
// converted to let expressions compare them as numbers.
func filterParam(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}
	return s
}

// requiredInt pulls a mandatory integer key from the row.
func requiredInt(rec io.Row, key string) (int64, error) {
	v, ok := rec[key]
	if !ok || isAbsent(v) {
		return 0, fmt.Errorf("required field %s missing", key)
	}
	n := coerce.ToInt(v)
	if n == nil {
		return 0, fmt.Errorf("invalid value for %s", key)
	}
	return *n, nil
}

// requiredString pulls a mandatory string key from the row.
func requiredString(rec io.Row, key string, maxLen int) (string, error) {
	v, ok := rec[key]
	if !ok || isAbsent(v) {
		return "", fmt.Errorf("required field %s missing", key)
	}
	s := coerce.ToString(v, maxLen)
	if s == nil {
		return "", fmt.Errorf("required field %s missing", key)
	}
	return *s, nil
}

func isAbsent(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
