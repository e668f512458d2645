package repository

import (
	"context"

	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

// StockMovementRepository bitácora de movimientos: solo inserción y lectura.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	// List ordena por created_at descendente y corta en limit.
	List(ctx context.Context, orgID string, filter entity.MovementFilter, limit int) ([]*entity.StockMovement, error)
}
