package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"control-produccion/apperrors"
	"control-produccion/models"
	"control-produccion/quota"
	"control-produccion/repository"
)

type fakeOrders struct {
	orders []models.Order
}

var _ repository.OrderRepositoryInterface = (*fakeOrders)(nil)

func (f *fakeOrders) ListByParent(_ context.Context, parent string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.ParentBatchID == parent {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) FindByWidth(_ context.Context, parent string, width float64) (*models.Order, error) {
	var best *models.Order
	for i := range f.orders {
		o := f.orders[i]
		if o.Width != width {
			continue
		}
		if best == nil || (o.ParentBatchID == parent && best.ParentBatchID != parent) {
			best = &o
		}
	}
	return best, nil
}

func (f *fakeOrders) ListMachines(context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	for _, o := range f.orders {
		if _, ok := seen[o.MachineName]; !ok && o.MachineName != "" {
			seen[o.MachineName] = struct{}{}
			out = append(out, o.MachineName)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeOrders) UpsertOrders(_ context.Context, orders []models.Order) (int, error) {
	f.orders = append(f.orders, orders...)
	return len(orders), nil
}

// fakeSessions keeps sessions in memory with the same admission rules as the store.
type fakeSessions struct {
	mu        sync.Mutex
	orders    *fakeOrders
	rows      map[string]*models.SessionRecord
	active    map[string]string // operator -> session key
	finalized []*models.FinalizationReport
	failWith  error
	// onFinalize runs before Finalize takes the lock.
	onFinalize func()
}

var _ repository.SessionRepositoryInterface = (*fakeSessions)(nil)

func newFakeSessions(orders *fakeOrders) *fakeSessions {
	return &fakeSessions{
		orders: orders,
		rows:   map[string]*models.SessionRecord{},
		active: map[string]string{},
	}
}

func (f *fakeSessions) quotaLocked(parent string) (models.Quota, error) {
	orders, _ := f.orders.ListByParent(context.Background(), parent)
	meta, err := quota.Meta(orders)
	if err != nil {
		return models.Quota{}, apperrors.ErrNoOrdersFound(parent)
	}
	var finalized, inProcess int
	for _, r := range f.rows {
		if r.Rows[0].ParentBatchID != parent {
			continue
		}
		if r.State == models.SessionStateFinalized {
			finalized += r.Rows[0].SheetCount
		} else {
			inProcess += r.Rows[0].SheetCount
		}
	}
	return quota.Compute(parent, meta, finalized, inProcess), nil
}

func (f *fakeSessions) activeView(key string) models.ActiveSession {
	r := f.rows[key]
	first := r.Rows[0]
	s := models.ActiveSession{
		SessionKey: key, OperatorID: first.OperatorID, OperatorName: first.OperatorName,
		ParentBatchID: first.ParentBatchID, Machine: first.Machine, SheetCount: first.SheetCount,
		StartedAt: first.StartTime,
	}
	for _, row := range r.Rows {
		s.ChildOrderIDs = append(s.ChildOrderIDs, row.ChildOrderID)
	}
	return s
}

func (f *fakeSessions) GetQuota(_ context.Context, parent string) (models.Quota, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quotaLocked(parent)
}

func (f *fakeSessions) FindActiveByOperator(_ context.Context, operatorID string) (*models.ActiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.active[operatorID]
	if !ok {
		return nil, nil
	}
	s := f.activeView(key)
	return &s, nil
}

func (f *fakeSessions) GetSession(_ context.Context, key string) (*models.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[key]
	if !ok {
		return nil, apperrors.ErrUnknownSession(key)
	}
	cp := *r
	return &cp, nil
}

func (f *fakeSessions) Start(_ context.Context, p repository.StartParams) (*repository.StartResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}

	orders, _ := f.orders.ListByParent(context.Background(), p.ParentBatch)
	if key, ok := f.active[p.OperatorID]; ok {
		s := f.activeView(key)
		if s.ParentBatchID != p.ParentBatch {
			return nil, apperrors.ErrSessionConflict(s.ParentBatchID, key)
		}
		q, _ := f.quotaLocked(p.ParentBatch)
		return &repository.StartResult{Session: s, Resumed: true, Quota: q, Orders: orders}, nil
	}
	if len(orders) == 0 {
		return nil, apperrors.ErrNoOrdersFound(p.ParentBatch)
	}
	q, err := f.quotaLocked(p.ParentBatch)
	if err != nil {
		return nil, err
	}
	if err := quota.CheckStart(q, p.SheetCount); err != nil {
		return nil, err
	}

	record := &models.SessionRecord{SessionKey: p.SessionKey, OperatorID: p.OperatorID, State: models.SessionStateActive}
	for _, o := range orders {
		record.Rows = append(record.Rows, models.ProductionSession{
			SessionKey: p.SessionKey, ChildOrderID: o.ChildOrderID, ParentBatchID: p.ParentBatch,
			OperatorID: p.OperatorID, OperatorName: p.OperatorName, SheetCount: p.SheetCount,
			Machine: p.Machine, StartTime: p.StartedAt, State: models.SessionStateActive,
		})
	}
	f.rows[p.SessionKey] = record
	f.active[p.OperatorID] = p.SessionKey

	q, _ = f.quotaLocked(p.ParentBatch)
	return &repository.StartResult{Session: f.activeView(p.SessionKey), Quota: q, Orders: orders}, nil
}

func (f *fakeSessions) Finalize(_ context.Context, report *models.FinalizationReport) error {
	if f.onFinalize != nil {
		f.onFinalize()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	r, ok := f.rows[report.SessionKey]
	if !ok {
		return apperrors.ErrUnknownSession(report.SessionKey)
	}
	if r.State == models.SessionStateFinalized {
		return apperrors.ErrAlreadyFinalized(report.SessionKey)
	}
	r.State = models.SessionStateFinalized
	for i := range r.Rows {
		r.Rows[i].State = models.SessionStateFinalized
	}
	delete(f.active, report.OperatorID)
	f.finalized = append(f.finalized, report)
	return nil
}

func (f *fakeSessions) ListActiveByParent(_ context.Context, parent string) ([]models.ActiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ActiveSession
	for _, key := range f.active {
		s := f.activeView(key)
		if s.ParentBatchID == parent {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (f *fakeSessions) ListStale(_ context.Context, before time.Time) ([]models.ActiveSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ActiveSession
	for _, key := range f.active {
		s := f.activeView(key)
		if s.StartedAt.Before(before) {
			out = append(out, s)
		}
	}
	return out, nil
}

type recordingSink struct {
	reports []*models.FinalizationReport
	err     error
}

func (r *recordingSink) Archive(_ context.Context, report *models.FinalizationReport) error {
	r.reports = append(r.reports, report)
	return r.err
}

func catalogOrders() []models.Order {
	return []models.Order{
		{
			ChildOrderID: "4019635-01", ParentBatchID: "4019635", MachineName: "SLITTER 2",
			TargetSheetCount: 100, SheetWidthCapacity: 100, Width: 30, Length: 1000, Thickness: 1,
			CutCount: 2, Destination: models.DestinationPlegado, ReferenceUnitWeight: 0.5,
			Codes: models.CatalogCodes{SAP: "SAP-1"}, Description: "FLEJE 30",
		},
		{
			ChildOrderID: "4019635-02", ParentBatchID: "4019635", MachineName: "SLITTER 2",
			TargetSheetCount: 100, SheetWidthCapacity: 100, Width: 20, Length: 1000, Thickness: 1,
			CutCount: 1, Destination: models.DestinationVenta, ReferenceUnitWeight: 0.3,
			Codes: models.CatalogCodes{SAP: "SAP-2"}, Description: "FLEJE 20",
		},
		{
			ChildOrderID: "5000000-01", ParentBatchID: "5000000", MachineName: "CORTADORA 1",
			TargetSheetCount: 20, Width: 45, Length: 2000, Thickness: 2,
			CutCount: 4, ReferenceUnitWeight: 0.9, Description: "OTRO 45",
		},
	}
}
