package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
	"github.com/jhoicas/mantenimiento-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `org_id, item_id, warehouse_id, quantity, reserved, unit_price, created_at, updated_at`

func scanStock(row pgx.Row) (*entity.StockLine, error) {
	var s entity.StockLine
	err := row.Scan(&s.OrgID, &s.ItemID, &s.WarehouseID, &s.Quantity, &s.Reserved, &s.UnitPrice, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ensure inserta la línea en cero si no existe.
func (r *StockRepo) ensure(ctx context.Context, orgID, itemID, warehouseID string) error {
	query := `
		INSERT INTO stock_lines (org_id, item_id, warehouse_id, quantity, reserved, unit_price, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, 0, now(), now())
		ON CONFLICT (org_id, item_id, warehouse_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, query, orgID, itemID, warehouseID); err != nil {
		return fmt.Errorf("ensure stock line: %w", err)
	}
	return nil
}

// GetOrCreate devuelve la línea existente o la crea en cero.
func (r *StockRepo) GetOrCreate(ctx context.Context, orgID, itemID, warehouseID string) (*entity.StockLine, error) {
	if err := r.ensure(ctx, orgID, itemID, warehouseID); err != nil {
		return nil, err
	}
	line, err := r.Get(ctx, orgID, itemID, warehouseID)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, fmt.Errorf("get or create stock: línea %s/%s no visible tras insertar", itemID, warehouseID)
	}
	return line, nil
}

// Get obtiene la línea; (nil, nil) si no existe.
func (r *StockRepo) Get(ctx context.Context, orgID, itemID, warehouseID string) (*entity.StockLine, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_lines WHERE org_id = $1 AND item_id = $2 AND warehouse_id = $3`
	s, err := scanStock(r.q.QueryRow(ctx, query, orgID, itemID, warehouseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return s, nil
}

// GetForUpdate crea la línea si falta y la bloquea (SELECT FOR UPDATE) hasta el fin de la tx.
func (r *StockRepo) GetForUpdate(ctx context.Context, orgID, itemID, warehouseID string) (*entity.StockLine, error) {
	if err := r.ensure(ctx, orgID, itemID, warehouseID); err != nil {
		return nil, err
	}
	query := `SELECT ` + stockColumns + ` FROM stock_lines
		WHERE org_id = $1 AND item_id = $2 AND warehouse_id = $3
		FOR UPDATE`
	s, err := scanStock(r.q.QueryRow(ctx, query, orgID, itemID, warehouseID))
	if err != nil {
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	return s, nil
}

// CompareAndSwap actualiza solo si quantity y reserved siguen siendo los leídos.
func (r *StockRepo) CompareAndSwap(ctx context.Context, next *entity.StockLine, expectedQty, expectedReserved decimal.Decimal) (bool, error) {
	query := `
		UPDATE stock_lines SET quantity = $4, reserved = $5, updated_at = $6
		WHERE org_id = $1 AND item_id = $2 AND warehouse_id = $3
		  AND quantity = $7 AND reserved = $8`
	tag, err := r.q.Exec(ctx, query,
		next.OrgID, next.ItemID, next.WarehouseID,
		next.Quantity, next.Reserved, next.UpdatedAt,
		expectedQty, expectedReserved,
	)
	if err != nil {
		return false, fmt.Errorf("cas stock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Save escribe quantity/reserved sin condición (la fila debe estar bloqueada por la tx).
func (r *StockRepo) Save(ctx context.Context, line *entity.StockLine) error {
	query := `
		UPDATE stock_lines SET quantity = $4, reserved = $5, updated_at = $6
		WHERE org_id = $1 AND item_id = $2 AND warehouse_id = $3`
	tag, err := r.q.Exec(ctx, query, line.OrgID, line.ItemID, line.WarehouseID, line.Quantity, line.Reserved, line.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save stock: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("save stock: línea %s/%s inexistente", line.ItemID, line.WarehouseID)
	}
	return nil
}

// List lista líneas de la organización ordenadas por ítem y bodega.
func (r *StockRepo) List(ctx context.Context, orgID string, filter entity.StockFilter) ([]*entity.StockLine, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_lines WHERE org_id = $1`
	args := []any{orgID}
	pos := 2
	if filter.ItemID != "" {
		query += fmt.Sprintf(" AND item_id = $%d", pos)
		args = append(args, filter.ItemID)
		pos++
	}
	if filter.WarehouseID != "" {
		query += fmt.Sprintf(" AND warehouse_id = $%d", pos)
		args = append(args, filter.WarehouseID)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY item_id, warehouse_id LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockLine
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
