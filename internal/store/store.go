// Package store persists the maintenance entities. The Postgres
// implementation backs normal operation; the Memory implementation backs
// tests and dry runs. Both honor the same all-or-nothing transaction
// contract: everything done inside WithTx commits together or not at all.
package store

import (
	"context"
	"errors"
	"time"

	"maintsync/internal/model"
)

// ErrNotFound reports a lookup by id or key that matched nothing.
var ErrNotFound = errors.New("record not found")

// Store is the persistence surface the importers and the matcher run
// against. Insert methods assign surrogate ids; Update methods replace the
// stored record wholesale (callers merge fields beforehand).
type Store interface {
	// WithTx runs fn against a transactional view of the store. A non-nil
	// error from fn rolls every change back.
	WithTx(ctx context.Context, fn func(Store) error) error

	GetMachineByCode(ctx context.Context, cdMaquina int64) (*model.Machine, error)
	InsertMachine(ctx context.Context, m *model.Machine) error
	UpdateMachine(ctx context.Context, m *model.Machine) error

	GetWorkOrderByCode(ctx context.Context, cdOrdemserv int64) (*model.WorkOrder, error)
	InsertWorkOrder(ctx context.Context, o *model.WorkOrder) error
	UpdateWorkOrder(ctx context.Context, o *model.WorkOrder) error
	ListTickets(ctx context.Context, cdOrdemserv int64) ([]model.WorkOrderTicket, error)
	InsertTicket(ctx context.Context, t *model.WorkOrderTicket) error

	GetStockItemByCode(ctx context.Context, codigoItem int64) (*model.StockItem, error)
	InsertStockItem(ctx context.Context, s *model.StockItem) error
	UpdateStockItem(ctx context.Context, s *model.StockItem) error

	GetActivityCenterByCA(ctx context.Context, ca int64) (*model.ActivityCenter, error)
	InsertActivityCenter(ctx context.Context, c *model.ActivityCenter) error
	UpdateActivityCenter(ctx context.Context, c *model.ActivityCenter) error
	ListActivityCenterLocations(ctx context.Context, ca int64) ([]model.ActivityCenterLocation, error)
	InsertActivityCenterLocation(ctx context.Context, l *model.ActivityCenterLocation) error

	GetTechnician(ctx context.Context, matricula string) (*model.Technician, error)
	InsertTechnician(ctx context.Context, t *model.Technician) error
	UpdateTechnician(ctx context.Context, t *model.Technician) error

	GetPlanByKey(ctx context.Context, key model.PlanKey) (*model.PreventivePlan, error)
	GetPlanByID(ctx context.Context, id int64) (*model.PreventivePlan, error)
	InsertPlan(ctx context.Context, p *model.PreventivePlan) error
	UpdatePlan(ctx context.Context, p *model.PreventivePlan) error
	ListPlans(ctx context.Context) ([]model.PreventivePlan, error)
	// UpdatePlanLink writes the confirmed routine reference and its
	// descriptive field onto a plan. Idempotent.
	UpdatePlanLink(ctx context.Context, planID, routineID int64, descrSeqplamanu *string) error

	GetRoutineByKey(ctx context.Context, key model.RoutineKey) (*model.MaintenanceRoutine, error)
	GetRoutineByID(ctx context.Context, id int64) (*model.MaintenanceRoutine, error)
	InsertRoutine(ctx context.Context, r *model.MaintenanceRoutine) error
	UpdateRoutine(ctx context.Context, r *model.MaintenanceRoutine) error
	ListRoutines(ctx context.Context) ([]model.MaintenanceRoutine, error)

	GetWeek(ctx context.Context, semana string, inicio *time.Time) (*model.Week, error)
	InsertWeek(ctx context.Context, w *model.Week) error
	UpdateWeek(ctx context.Context, w *model.Week) error

	GetRequisition(ctx context.Context, dataRequisicao time.Time, cdItem int64) (*model.WarehouseRequisition, error)
	InsertRequisition(ctx context.Context, r *model.WarehouseRequisition) error
	UpdateRequisition(ctx context.Context, r *model.WarehouseRequisition) error
}
