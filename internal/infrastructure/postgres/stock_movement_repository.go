package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
	"github.com/jhoicas/mantenimiento-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo bitácora de movimientos sobre PostgreSQL (usable con pool o tx). Solo INSERT y SELECT.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste un movimiento.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (id, org_id, item_id, warehouse_id, to_warehouse_id, type, qty, reference_id, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.OrgID, m.ItemID, m.WarehouseID, nullIfEmpty(m.ToWarehouseID),
		m.Type, m.Qty, nullIfEmpty(m.ReferenceID), nullIfEmpty(m.UserID), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// List devuelve movimientos de la organización, más recientes primero.
func (r *StockMovementRepo) List(ctx context.Context, orgID string, filter entity.MovementFilter, limit int) ([]*entity.StockMovement, error) {
	query, args := buildMovementQuery(orgID, filter, limit)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		var toWh, ref, user *string
		if err := rows.Scan(&m.ID, &m.OrgID, &m.ItemID, &m.WarehouseID, &toWh, &m.Type, &m.Qty, &ref, &user, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.ToWarehouseID = deref(toWh)
		m.ReferenceID = deref(ref)
		m.UserID = deref(user)
		list = append(list, &m)
	}
	return list, rows.Err()
}

func buildMovementQuery(orgID string, f entity.MovementFilter, limit int) (string, []any) {
	query := `
		SELECT id, org_id, item_id, warehouse_id, to_warehouse_id, type, qty, reference_id, user_id, created_at
		FROM stock_movements WHERE org_id = $1`
	args := []any{orgID}
	pos := 2
	if f.ItemID != "" {
		query += fmt.Sprintf(" AND item_id = $%d", pos)
		args = append(args, f.ItemID)
		pos++
	}
	if f.WarehouseID != "" {
		query += fmt.Sprintf(" AND (warehouse_id = $%d OR to_warehouse_id = $%d)", pos, pos)
		args = append(args, f.WarehouseID)
		pos++
	}
	if f.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", pos)
		args = append(args, f.Type)
		pos++
	}
	if f.ReferenceID != "" {
		query += fmt.Sprintf(" AND reference_id = $%d", pos)
		args = append(args, f.ReferenceID)
		pos++
	}
	if f.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *f.From)
		pos++
	}
	if f.To != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *f.To)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", pos)
	args = append(args, limit)
	return query, args
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
