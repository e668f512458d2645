package inventory

import (
	"context"

	"github.com/jhoicas/mantenimiento-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error, nada de lo escrito dentro es visible para otros lectores.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		stockRepo repository.StockRepository,
		movRepo repository.StockMovementRepository,
	) error) error
}
