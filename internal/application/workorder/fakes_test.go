package workorder

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

// memOrders repositorio en memoria; ApplyChange replica el UPDATE ... WHERE state = $3 AND
// jsonb_array_length(history) = $12.
type memOrders struct {
	mu         sync.Mutex
	orders     map[string]*entity.WorkOrder
	failCreate error
	// beforeApply se ejecuta dentro de ApplyChange antes de comparar (simula un escritor concurrente).
	beforeApply func(wo *entity.WorkOrder)
}

func newMemOrders() *memOrders { return &memOrders{orders: map[string]*entity.WorkOrder{}} }

func (m *memOrders) Create(_ context.Context, wo *entity.WorkOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	m.orders[wo.ID] = wo.Clone()
	return nil
}

func (m *memOrders) GetByID(_ context.Context, orgID, id string) (*entity.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wo, ok := m.orders[id]
	if !ok || wo.OrgID != orgID || wo.Deleted {
		return nil, nil
	}
	return wo.Clone(), nil
}

func (m *memOrders) ApplyChange(_ context.Context, orgID, id string, expected entity.Version, c entity.StateChange) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wo, ok := m.orders[id]
	if !ok || wo.OrgID != orgID || wo.Deleted {
		return false, nil
	}
	if m.beforeApply != nil {
		m.beforeApply(wo)
	}
	if wo.Version() != expected {
		return false, nil
	}
	m.orders[id] = wo.Apply(c)
	return true, nil
}

func (m *memOrders) UpdateData(_ context.Context, orgID, id string, p entity.WorkOrderPatch, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wo, ok := m.orders[id]
	if !ok || wo.OrgID != orgID || wo.Deleted || wo.State == entity.StateTerminado {
		return false, nil
	}
	m.orders[id] = wo.ApplyPatch(p, at)
	return true, nil
}

func (m *memOrders) SoftDelete(_ context.Context, orgID, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wo, ok := m.orders[id]
	if !ok || wo.OrgID != orgID || wo.Deleted {
		return false, nil
	}
	wo.Deleted = true
	wo.UpdatedAt = at
	return true, nil
}

func (m *memOrders) List(_ context.Context, orgID string, f entity.WorkOrderFilter) ([]*entity.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.WorkOrder
	for _, wo := range m.orders {
		if wo.OrgID != orgID || wo.Deleted {
			continue
		}
		if f.State != "" && wo.State != f.State {
			continue
		}
		if f.AssigneeID != "" && wo.AssigneeID != f.AssigneeID {
			continue
		}
		out = append(out, wo.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrgSeq > out[j].OrgSeq })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memOrders) stored(id string) *entity.WorkOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Clone()
}

// numberedOrders emula la transacción contador + insert: el contador solo avanza si la orden se guarda.
type numberedOrders struct {
	orders *memOrders
	mu     sync.Mutex
	seq    map[string]int64
}

func (n *numberedOrders) CreateNumbered(ctx context.Context, wo *entity.WorkOrder) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	next := n.seq[wo.OrgID] + 1
	wo.OrgSeq = next
	if err := n.orders.Create(ctx, wo); err != nil {
		wo.OrgSeq = 0
		return 0, err
	}
	n.seq[wo.OrgID] = next
	return next, nil
}

type memMembers struct {
	users []entity.Member // en orden de antigüedad
}

func (m *memMembers) IsMember(_ context.Context, orgID, userID string) (bool, error) {
	for _, u := range m.users {
		if u.OrgID == orgID && u.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memMembers) FirstWithRole(_ context.Context, orgID, roleID string) (string, error) {
	for _, u := range m.users {
		if u.OrgID == orgID && u.RoleID == roleID {
			return u.UserID, nil
		}
	}
	return "", nil
}

type seqStub struct {
	mu    sync.Mutex
	next  map[string]int64
	calls int
}

func (s *seqStub) GetNextSequence(_ context.Context, orgID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == nil {
		s.next = map[string]int64{}
	}
	s.calls++
	s.next[orgID]++
	return s.next[orgID], nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.WorkOrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev entity.WorkOrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

type stubReports struct{}

func (stubReports) WorkOrderPDF(wo *entity.WorkOrder) ([]byte, error) {
	if wo == nil {
		return nil, errors.New("orden nil")
	}
	return []byte("%PDF-" + wo.ID), nil
}
