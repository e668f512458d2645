package repository

import (
	"context"
	"time"

	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

// WorkOrderRepository puerto de persistencia de órdenes de trabajo.
type WorkOrderRepository interface {
	// Create inserta la orden con su historial inicial en una sola escritura.
	Create(ctx context.Context, wo *entity.WorkOrder) error
	// GetByID devuelve (nil, nil) si no existe o está eliminada.
	GetByID(ctx context.Context, orgID, id string) (*entity.WorkOrder, error)
	// ApplyChange cambia estado, fechas y asignado y agrega change.Entry al historial en un único
	// update condicionado a expected (estado y largo del historial). Devuelve false si la orden cambió
	// desde esa lectura, aunque haya vuelto al mismo estado.
	ApplyChange(ctx context.Context, orgID, id string, expected entity.Version, change entity.StateChange) (bool, error)
	// UpdateData aplica el parche si la orden sigue viva y no terminada.
	UpdateData(ctx context.Context, orgID, id string, patch entity.WorkOrderPatch, at time.Time) (bool, error)
	SoftDelete(ctx context.Context, orgID, id string, at time.Time) (bool, error)
	List(ctx context.Context, orgID string, filter entity.WorkOrderFilter) ([]*entity.WorkOrder, error)
}
