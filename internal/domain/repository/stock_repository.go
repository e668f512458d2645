package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

// StockRepository puerto de persistencia de líneas de stock. Toda operación va acotada por orgID.
type StockRepository interface {
	// GetOrCreate devuelve la línea existente o la crea en cero (idempotente).
	GetOrCreate(ctx context.Context, orgID, itemID, warehouseID string) (*entity.StockLine, error)
	// Get devuelve (nil, nil) si la línea no existe; no la crea.
	Get(ctx context.Context, orgID, itemID, warehouseID string) (*entity.StockLine, error)
	// GetForUpdate crea la línea si falta y la bloquea hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, orgID, itemID, warehouseID string) (*entity.StockLine, error)
	// CompareAndSwap escribe quantity/reserved de next solo si los valores guardados siguen siendo
	// expectedQty/expectedReserved. Devuelve false si otro escritor ganó la carrera.
	CompareAndSwap(ctx context.Context, next *entity.StockLine, expectedQty, expectedReserved decimal.Decimal) (bool, error)
	// Save escribe sin condición; solo para filas bloqueadas con GetForUpdate.
	Save(ctx context.Context, line *entity.StockLine) error
	List(ctx context.Context, orgID string, filter entity.StockFilter) ([]*entity.StockLine, error)
}
