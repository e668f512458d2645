package inventory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
	"github.com/jhoicas/mantenimiento-api/internal/domain/repository"
)

type lineKey struct{ org, item, wh string }

// memStock repositorio en memoria con semántica CAS equivalente al UPDATE condicionado de Postgres.
type memStock struct {
	mu    sync.Mutex
	lines map[lineKey]*entity.StockLine
}

func newMemStock() *memStock { return &memStock{lines: map[lineKey]*entity.StockLine{}} }

func (m *memStock) GetOrCreate(_ context.Context, org, item, wh string) (*entity.StockLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := lineKey{org, item, wh}
	if l, ok := m.lines[k]; ok {
		return l.Clone(), nil
	}
	l := entity.NewStockLine(org, item, wh, time.Now())
	m.lines[k] = l
	return l.Clone(), nil
}

func (m *memStock) Get(_ context.Context, org, item, wh string) (*entity.StockLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.lines[lineKey{org, item, wh}]; ok {
		return l.Clone(), nil
	}
	return nil, nil
}

func (m *memStock) GetForUpdate(ctx context.Context, org, item, wh string) (*entity.StockLine, error) {
	return m.GetOrCreate(ctx, org, item, wh)
}

func (m *memStock) CompareAndSwap(_ context.Context, next *entity.StockLine, expQty, expRes decimal.Decimal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.lines[lineKey{next.OrgID, next.ItemID, next.WarehouseID}]
	if !ok || !cur.Quantity.Equal(expQty) || !cur.Reserved.Equal(expRes) {
		return false, nil
	}
	cur.Quantity = next.Quantity
	cur.Reserved = next.Reserved
	cur.UpdatedAt = next.UpdatedAt
	return true, nil
}

func (m *memStock) Save(_ context.Context, line *entity.StockLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[lineKey{line.OrgID, line.ItemID, line.WarehouseID}] = line.Clone()
	return nil
}

func (m *memStock) List(_ context.Context, org string, f entity.StockFilter) ([]*entity.StockLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.StockLine
	for k, l := range m.lines {
		if k.org != org || (f.ItemID != "" && k.item != f.ItemID) || (f.WarehouseID != "" && k.wh != f.WarehouseID) {
			continue
		}
		out = append(out, l.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemID != out[j].ItemID {
			return out[i].ItemID < out[j].ItemID
		}
		return out[i].WarehouseID < out[j].WarehouseID
	})
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStock) line(org, item, wh string) *entity.StockLine {
	l, _ := m.Get(context.Background(), org, item, wh)
	return l
}

// flakyStock pierde los primeros n compare-and-swap, como si otro escritor se adelantara.
type flakyStock struct {
	*memStock
	mu    sync.Mutex
	fails int
	calls int
}

func (f *flakyStock) CompareAndSwap(ctx context.Context, next *entity.StockLine, q, r decimal.Decimal) (bool, error) {
	f.mu.Lock()
	f.calls++
	lose := f.fails > 0
	if lose {
		f.fails--
	}
	f.mu.Unlock()
	if lose {
		return false, nil
	}
	return f.memStock.CompareAndSwap(ctx, next, q, r)
}

type memMovements struct {
	mu         sync.Mutex
	list       []*entity.StockMovement
	failCreate error
}

func (m *memMovements) Create(_ context.Context, mv *entity.StockMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	c := *mv
	m.list = append(m.list, &c)
	return nil
}

func (m *memMovements) List(_ context.Context, org string, f entity.MovementFilter, limit int) ([]*entity.StockMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.StockMovement
	for _, mv := range m.list {
		if mv.OrgID != org {
			continue
		}
		if f.ItemID != "" && mv.ItemID != f.ItemID {
			continue
		}
		if f.WarehouseID != "" && mv.WarehouseID != f.WarehouseID && mv.ToWarehouseID != f.WarehouseID {
			continue
		}
		if f.Type != "" && mv.Type != f.Type {
			continue
		}
		if f.ReferenceID != "" && mv.ReferenceID != f.ReferenceID {
			continue
		}
		if f.From != nil && mv.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && mv.CreatedAt.After(*f.To) {
			continue
		}
		c := *mv
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memMovements) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.list)
}

// memTx emula transacciones READ COMMITTED sin candado global: las lecturas simples no bloquean; la
// fila que la transacción crea, bloquea con GetForUpdate o escribe con CompareAndSwap/Save queda
// bloqueada hasta el final. Si fn falla se deshacen sus escrituras en orden inverso.
type memTx struct {
	stock repository.StockRepository
	base  *memStock
	movs  *memMovements
	// afterRead se ejecuta tras cada lectura de GetOrCreate (permite alinear lectores concurrentes).
	afterRead func()

	mu   sync.Mutex
	rows map[lineKey]*sync.Mutex
	runs int64
}

func (t *memTx) row(k lineKey) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rows == nil {
		t.rows = map[lineKey]*sync.Mutex{}
	}
	m, ok := t.rows[k]
	if !ok {
		m = &sync.Mutex{}
		t.rows[k] = m
	}
	return m
}

func (t *memTx) attempts() int64 { return atomic.LoadInt64(&t.runs) }

func (t *memTx) Run(_ context.Context, fn func(repository.StockRepository, repository.StockMovementRepository) error) error {
	atomic.AddInt64(&t.runs, 1)
	sc := &txScope{tx: t, held: map[lineKey]bool{}}
	err := fn(&txStock{sc: sc}, &txMovements{sc: sc})
	if err != nil {
		for i := len(sc.undo) - 1; i >= 0; i-- {
			sc.undo[i]()
		}
	}
	for k := range sc.held {
		t.row(k).Unlock()
	}
	return err
}

type txScope struct {
	tx   *memTx
	held map[lineKey]bool
	undo []func()
}

func (sc *txScope) lock(k lineKey) {
	if sc.held[k] {
		return
	}
	sc.tx.row(k).Lock()
	sc.held[k] = true
}

// restoreLater registra cómo devolver la fila k al valor que tiene ahora (o borrarla si no existe).
func (sc *txScope) restoreLater(k lineKey) {
	base := sc.tx.base
	prev := base.line(k.org, k.item, k.wh)
	sc.undo = append(sc.undo, func() {
		base.mu.Lock()
		defer base.mu.Unlock()
		if prev == nil {
			delete(base.lines, k)
			return
		}
		base.lines[k] = prev
	})
}

// txStock vista de la transacción sobre el repositorio de stock.
type txStock struct{ sc *txScope }

func (s *txStock) GetOrCreate(ctx context.Context, org, item, wh string) (*entity.StockLine, error) {
	k := lineKey{org, item, wh}
	if s.sc.tx.base.line(org, item, wh) == nil {
		s.sc.lock(k)
		s.sc.restoreLater(k)
	}
	l, err := s.sc.tx.stock.GetOrCreate(ctx, org, item, wh)
	if err == nil && s.sc.tx.afterRead != nil {
		s.sc.tx.afterRead()
	}
	return l, err
}

func (s *txStock) Get(ctx context.Context, org, item, wh string) (*entity.StockLine, error) {
	return s.sc.tx.stock.Get(ctx, org, item, wh)
}

func (s *txStock) GetForUpdate(ctx context.Context, org, item, wh string) (*entity.StockLine, error) {
	k := lineKey{org, item, wh}
	s.sc.lock(k)
	s.sc.restoreLater(k)
	return s.sc.tx.stock.GetForUpdate(ctx, org, item, wh)
}

func (s *txStock) CompareAndSwap(ctx context.Context, next *entity.StockLine, q, r decimal.Decimal) (bool, error) {
	k := lineKey{next.OrgID, next.ItemID, next.WarehouseID}
	s.sc.lock(k)
	s.sc.restoreLater(k)
	return s.sc.tx.stock.CompareAndSwap(ctx, next, q, r)
}

func (s *txStock) Save(ctx context.Context, line *entity.StockLine) error {
	k := lineKey{line.OrgID, line.ItemID, line.WarehouseID}
	s.sc.lock(k)
	s.sc.restoreLater(k)
	return s.sc.tx.stock.Save(ctx, line)
}

func (s *txStock) List(ctx context.Context, org string, f entity.StockFilter) ([]*entity.StockLine, error) {
	return s.sc.tx.stock.List(ctx, org, f)
}

// txMovements registra los movimientos creados para retirarlos si la transacción falla.
type txMovements struct{ sc *txScope }

func (m *txMovements) Create(ctx context.Context, mv *entity.StockMovement) error {
	movs := m.sc.tx.movs
	if err := movs.Create(ctx, mv); err != nil {
		return err
	}
	id := mv.ID
	m.sc.undo = append(m.sc.undo, func() {
		movs.mu.Lock()
		defer movs.mu.Unlock()
		for i, x := range movs.list {
			if x.ID == id {
				movs.list = append(movs.list[:i], movs.list[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (m *txMovements) List(ctx context.Context, org string, f entity.MovementFilter, limit int) ([]*entity.StockMovement, error) {
	return m.sc.tx.movs.List(ctx, org, f, limit)
}
