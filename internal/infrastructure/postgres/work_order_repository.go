package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/mantenimiento-api/internal/domain"
	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
	"github.com/jhoicas/mantenimiento-api/internal/domain/repository"
)

var _ repository.WorkOrderRepository = (*WorkOrderRepo)(nil)

// WorkOrderRepo órdenes de trabajo sobre PostgreSQL. El historial vive en una columna jsonb:
// estado e historial se escriben en el mismo UPDATE.
type WorkOrderRepo struct {
	q Querier
}

// NewWorkOrderRepository construye el adaptador.
func NewWorkOrderRepository(q Querier) *WorkOrderRepo {
	return &WorkOrderRepo{q: q}
}

const workOrderColumns = `id, org_id, org_seq, state, assignee_id, title, description, priority, asset_id, template_id,
	data, history, created_at, start_at, end_at, assigned_at, scheduled_start, estimated_end, approved_at,
	deleted, created_by, updated_at`

// Create inserta la orden con su historial inicial.
func (r *WorkOrderRepo) Create(ctx context.Context, wo *entity.WorkOrder) error {
	history, err := json.Marshal(wo.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	data, err := marshalData(wo.Data)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO work_orders (` + workOrderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`
	_, err = r.q.Exec(ctx, query,
		wo.ID, wo.OrgID, wo.OrgSeq, string(wo.State), nullIfEmpty(wo.AssigneeID), wo.Title, wo.Description,
		wo.Priority, nullIfEmpty(wo.AssetID), nullIfEmpty(wo.TemplateID), data, history,
		wo.Dates.Created, wo.Dates.Start, wo.Dates.End, wo.Dates.AssignedAt, wo.Dates.ScheduledStart,
		wo.Dates.EstimatedEnd, wo.Dates.ApprovedAt, wo.Deleted, nullIfEmpty(wo.CreatedBy), wo.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: consecutivo %d ya usado en la organización", domain.ErrConflict, wo.OrgSeq)
		}
		return fmt.Errorf("create work order: %w", err)
	}
	return nil
}

// GetByID devuelve la orden viva; (nil, nil) si no existe o está eliminada.
func (r *WorkOrderRepo) GetByID(ctx context.Context, orgID, id string) (*entity.WorkOrder, error) {
	query := `SELECT ` + workOrderColumns + ` FROM work_orders WHERE org_id = $1 AND id = $2 AND NOT deleted`
	wo, err := scanWorkOrder(r.q.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get work order: %w", err)
	}
	return wo, nil
}

// ApplyChange un único UPDATE: estado, fechas, asignado y append al historial, condicionado a la versión
// leída. El largo del historial cubre el caso A->B->A en que el estado coincide pero las fechas no.
func (r *WorkOrderRepo) ApplyChange(ctx context.Context, orgID, id string, expected entity.Version, c entity.StateChange) (bool, error) {
	entry, err := json.Marshal([]entity.HistoryEntry{c.Entry})
	if err != nil {
		return false, fmt.Errorf("marshal history entry: %w", err)
	}
	query := `
		UPDATE work_orders SET
			state = $4,
			assignee_id = COALESCE($5, assignee_id),
			start_at = $6, end_at = $7, assigned_at = $8, approved_at = $9,
			history = history || $10::jsonb,
			updated_at = $11
		WHERE org_id = $1 AND id = $2 AND state = $3 AND jsonb_array_length(history) = $12 AND NOT deleted`
	tag, err := r.q.Exec(ctx, query,
		orgID, id, string(expected.State),
		string(c.To), c.AssigneeID,
		c.Dates.Start, c.Dates.End, c.Dates.AssignedAt, c.Dates.ApprovedAt,
		string(entry), c.UpdatedAt, expected.HistoryLen,
	)
	if err != nil {
		return false, fmt.Errorf("apply work order change: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateData aplica los campos presentes del parche si la orden está viva y no terminada.
func (r *WorkOrderRepo) UpdateData(ctx context.Context, orgID, id string, p entity.WorkOrderPatch, at time.Time) (bool, error) {
	sets := []string{"updated_at = $3"}
	args := []any{orgID, id, at}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Priority != nil {
		add("priority", *p.Priority)
	}
	if p.ScheduledStart != nil {
		add("scheduled_start", *p.ScheduledStart)
	}
	if p.EstimatedEnd != nil {
		add("estimated_end", *p.EstimatedEnd)
	}
	if p.Data != nil {
		data, err := marshalData(p.Data)
		if err != nil {
			return false, err
		}
		add("data", data)
	}
	args = append(args, string(entity.StateTerminado))
	query := fmt.Sprintf(`UPDATE work_orders SET %s WHERE org_id = $1 AND id = $2 AND NOT deleted AND state <> $%d`,
		strings.Join(sets, ", "), len(args))
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update work order data: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SoftDelete marca deleted = true.
func (r *WorkOrderRepo) SoftDelete(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE work_orders SET deleted = true, updated_at = $3 WHERE org_id = $1 AND id = $2 AND NOT deleted`,
		orgID, id, at)
	if err != nil {
		return false, fmt.Errorf("soft delete work order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List órdenes vivas, consecutivo más alto primero.
func (r *WorkOrderRepo) List(ctx context.Context, orgID string, f entity.WorkOrderFilter) ([]*entity.WorkOrder, error) {
	query := `SELECT ` + workOrderColumns + ` FROM work_orders WHERE org_id = $1 AND NOT deleted`
	args := []any{orgID}
	pos := 2
	if f.State != "" {
		query += fmt.Sprintf(" AND state = $%d", pos)
		args = append(args, string(f.State))
		pos++
	}
	if f.AssigneeID != "" {
		query += fmt.Sprintf(" AND assignee_id = $%d", pos)
		args = append(args, f.AssigneeID)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY org_seq DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list work orders: %w", err)
	}
	defer rows.Close()
	var list []*entity.WorkOrder
	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work order: %w", err)
		}
		list = append(list, wo)
	}
	return list, rows.Err()
}

func scanWorkOrder(row pgx.Row) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	var state string
	var assignee, asset, template, createdBy *string
	var data, history []byte
	err := row.Scan(
		&wo.ID, &wo.OrgID, &wo.OrgSeq, &state, &assignee, &wo.Title, &wo.Description, &wo.Priority, &asset, &template,
		&data, &history, &wo.Dates.Created, &wo.Dates.Start, &wo.Dates.End, &wo.Dates.AssignedAt,
		&wo.Dates.ScheduledStart, &wo.Dates.EstimatedEnd, &wo.Dates.ApprovedAt,
		&wo.Deleted, &createdBy, &wo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	wo.State = entity.WorkOrderState(state)
	wo.AssigneeID = deref(assignee)
	wo.AssetID = deref(asset)
	wo.TemplateID = deref(template)
	wo.CreatedBy = deref(createdBy)
	if len(history) > 0 {
		if err := json.Unmarshal(history, &wo.History); err != nil {
			return nil, fmt.Errorf("unmarshal history: %w", err)
		}
	}
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &wo.Data); err != nil {
			return nil, fmt.Errorf("unmarshal data: %w", err)
		}
	}
	return &wo, nil
}

func marshalData(data map[string]any) ([]byte, error) {
	if data == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: data no serializable: %v", domain.ErrInvalidInput, err)
	}
	return b, nil
}
