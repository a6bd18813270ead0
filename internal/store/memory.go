package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"maintsync/internal/model"
)

// Memory is a map-backed Store used by tests and local experiments. WithTx
// snapshots the maps and restores them when fn fails, mirroring the
// all-or-nothing contract of the Postgres implementation.
type Memory struct {
	mu     sync.Mutex
	nextID int64

	machines     map[int64]model.Machine
	workOrders   map[int64]model.WorkOrder
	tickets      map[int64]model.WorkOrderTicket
	stockItems   map[int64]model.StockItem
	centers      map[int64]model.ActivityCenter
	locations    map[int64]model.ActivityCenterLocation
	technicians  map[string]model.Technician
	plans        map[int64]model.PreventivePlan
	routines     map[int64]model.MaintenanceRoutine
	weeks        map[int64]model.Week
	requisitions map[int64]model.WarehouseRequisition
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		machines:     make(map[int64]model.Machine),
		workOrders:   make(map[int64]model.WorkOrder),
		tickets:      make(map[int64]model.WorkOrderTicket),
		stockItems:   make(map[int64]model.StockItem),
		centers:      make(map[int64]model.ActivityCenter),
		locations:    make(map[int64]model.ActivityCenterLocation),
		technicians:  make(map[string]model.Technician),
		plans:        make(map[int64]model.PreventivePlan),
		routines:     make(map[int64]model.MaintenanceRoutine),
		weeks:        make(map[int64]model.Week),
		requisitions: make(map[int64]model.WarehouseRequisition),
	}
}

func (m *Memory) newID() int64 {
	m.nextID++
	return m.nextID
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// WithTx snapshots the store, runs fn, and restores the snapshot when fn
// returns an error.
func (m *Memory) WithTx(_ context.Context, fn func(Store) error) error {
	m.mu.Lock()
	snapID := m.nextID
	machines := copyMap(m.machines)
	workOrders := copyMap(m.workOrders)
	tickets := copyMap(m.tickets)
	stockItems := copyMap(m.stockItems)
	centers := copyMap(m.centers)
	locations := copyMap(m.locations)
	technicians := copyMap(m.technicians)
	plans := copyMap(m.plans)
	routines := copyMap(m.routines)
	weeks := copyMap(m.weeks)
	requisitions := copyMap(m.requisitions)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.nextID = snapID
		m.machines = machines
		m.workOrders = workOrders
		m.tickets = tickets
		m.stockItems = stockItems
		m.centers = centers
		m.locations = locations
		m.technicians = technicians
		m.plans = plans
		m.routines = routines
		m.weeks = weeks
		m.requisitions = requisitions
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Memory) GetMachineByCode(_ context.Context, cdMaquina int64) (*model.Machine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.machines {
		if v.CdMaquina == cdMaquina {
			out := v
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertMachine(_ context.Context, rec *model.Machine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.newID()
	m.machines[rec.ID] = *rec
	return nil
}

func (m *Memory) UpdateMachine(_ context.Context, rec *model.Machine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.machines[rec.ID]; !ok {
		return ErrNotFound
	}
	m.machines[rec.ID] = *rec
	return nil
}

func (m *Memory) GetWorkOrderByCode(_ context.Context, cdOrdemserv int64) (*model.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.workOrders {
		if v.CdOrdemserv == cdOrdemserv {
			out := v
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertWorkOrder(_ context.Context, rec *model.WorkOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.newID()
	m.workOrders[rec.ID] = *rec
	return nil
}

func (m *Memory) UpdateWorkOrder(_ context.Context, rec *model.WorkOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workOrders[rec.ID]; !ok {
		return ErrNotFound
	}
	m.workOrders[rec.ID] = *rec
	return nil
}

func (m *Memory) ListTickets(_ context.Context, cdOrdemserv int64) ([]model.WorkOrderTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.WorkOrderTicket
	for _, v := range m.tickets {
		if v.CdOrdemserv == cdOrdemserv {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) InsertTicket(_ context.Context, rec *model.WorkOrderTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.newID()
	m.tickets[rec.ID] = *rec
	return nil
}

func (m *Memory) GetStockItemByCode(_ context.Context, codigoItem int64) (*model.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.stockItems {
		if v.CodigoItem == codigoItem {
			out := v
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertStockItem(_ context.Context, rec *model.StockItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.newID()
	m.stockItems[rec.ID] = *rec
	return nil
}

func (m *Memory) UpdateStockItem(_ context.Context, rec *model.StockItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stockItems[rec.ID]; !ok {
		return ErrNotFound
	}
	m.stockItems[rec.ID] = *rec
	return nil
}

func (m *Memory) GetActivityCenterByCA(_ context.Context, ca int64) (*model.ActivityCenter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.centers {
		if v.CA == ca {
			out := v
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertActivityCenter(_ context.Context, rec *model.ActivityCenter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.newID()
	m.centers[rec.ID] = *rec
	return nil
}

func (m *Memory) UpdateActivityCenter(_ context.Context, rec *model.ActivityCenter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.centers[rec.ID]; !ok {
		return ErrNotFound
	}
	m.centers[rec.ID] = *rec
	return nil
}

func (m *Memory) ListActivityCenterLocations(_ context.Context, ca int64) ([]model.ActivityCenterLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ActivityCenterLocation
	for _, v := range m.locations {
		if v.CA == ca {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) InsertActivityCenterLocation(_ context.Context, rec *model.ActivityCenterLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.newID()
	m.locations[rec.ID] = *rec
	return nil
}

func (m *Memory) GetTechnician(_ context.Context, matricula string) (*model.Technician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.technicians[matricula]; ok {
		out := v
		return &out, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertTechnician(_ context.Context, rec *model.Technician) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.technicians[rec.Matricula] = *rec
	return nil
}

func (m *Memory) UpdateTechnician(_ context.Context, rec *model.Technician) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.technicians[rec.Matricula]; !ok {
		return ErrNotFound
	}
	m.technicians[rec.Matricula] = *rec
	return nil
}

func (m *Memory) GetPlanByKey(_ context.Context, key model.PlanKey) (*model.PreventivePlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := key.String()
	for _, v := range m.plans {
		if v.Key().String() == want {
			out := v
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetPlanByID(_ context.Context, id int64) (*model.PreventivePlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.plans[id]; ok {
		out := v
		return &out, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertPlan(_ context.Context, rec *model.PreventivePlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.newID()
	m.plans[rec.ID] = *rec
	return nil
}

func (m *Memory) UpdatePlan(_ context.Context, rec *model.PreventivePlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[rec.ID]; !ok {
		return ErrNotFound
	}
	m.plans[rec.ID] = *rec
	return nil
}

func (m *Memory) ListPlans(_ context.Context) ([]model.PreventivePlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.PreventivePlan, 0, len(m.plans))
	for _, v := range m.plans {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdatePlanLink(_ context.Context, planID, routineID int64, descrSeqplamanu *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[planID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := m.routines[routineID]; !ok {
		return ErrNotFound
	}
	plan.RoutineID = &routineID
	plan.DescrSeqplamanu = descrSeqplamanu
	m.plans[planID] = plan
	return nil
}

func (m *Memory) GetRoutineByKey(_ context.Context, key model.RoutineKey) (*model.MaintenanceRoutine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := key.String()
	for _, v := range m.routines {
		if v.Key().String() == want {
			out := v
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetRoutineByID(_ context.Context, id int64) (*model.MaintenanceRoutine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.routines[id]; ok {
		out := v
		return &out, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertRoutine(_ context.Context, rec *model.MaintenanceRoutine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.newID()
	m.routines[rec.ID] = *rec
	return nil
}

func (m *Memory) UpdateRoutine(_ context.Context, rec *model.MaintenanceRoutine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routines[rec.ID]; !ok {
		return ErrNotFound
	}
	m.routines[rec.ID] = *rec
	return nil
}

func (m *Memory) ListRoutines(_ context.Context) ([]model.MaintenanceRoutine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.MaintenanceRoutine, 0, len(m.routines))
	for _, v := range m.routines {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func sameDay(a, b *time.Time) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func (m *Memory) GetWeek(_ context.Context, semana string, inicio *time.Time) (*model.Week, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.weeks {
		if v.Semana == semana && sameDay(v.Inicio, inicio) {
			out := v
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertWeek(_ context.Context, rec *model.Week) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.newID()
	m.weeks[rec.ID] = *rec
	return nil
}

func (m *Memory) UpdateWeek(_ context.Context, rec *model.Week) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.weeks[rec.ID]; !ok {
		return ErrNotFound
	}
	m.weeks[rec.ID] = *rec
	return nil
}

func (m *Memory) GetRequisition(_ context.Context, dataRequisicao time.Time, cdItem int64) (*model.WarehouseRequisition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.requisitions {
		if v.CdItem == cdItem && sameDay(&v.DataRequisicao, &dataRequisicao) {
			out := v
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) InsertRequisition(_ context.Context, rec *model.WarehouseRequisition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.newID()
	m.requisitions[rec.ID] = *rec
	return nil
}

func (m *Memory) UpdateRequisition(_ context.Context, rec *model.WarehouseRequisition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requisitions[rec.ID]; !ok {
		return ErrNotFound
	}
	m.requisitions[rec.ID] = *rec
	return nil
}
