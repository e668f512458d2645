package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del libro de stock.
const (
	MovementTypeReserve  = "reserve"
	MovementTypeConsume  = "consume"
	MovementTypeAdjust   = "adjust"
	MovementTypeTransfer = "transfer"
	MovementTypeRelease  = "release" // liberación de una reserva no consumida
)

// IsValidMovementType indica si t es un tipo de movimiento conocido.
func IsValidMovementType(t string) bool {
	switch t {
	case MovementTypeReserve, MovementTypeConsume, MovementTypeAdjust, MovementTypeTransfer, MovementTypeRelease:
		return true
	}
	return false
}

// StockMovement registro inmutable de una operación exitosa del libro.
// Qty es positivo salvo en ajustes, donde conserva el signo del delta.
type StockMovement struct {
	ID            string
	OrgID         string
	ItemID        string
	WarehouseID   string
	ToWarehouseID string // solo transfer
	Type          string
	Qty           decimal.Decimal
	ReferenceID   string // opaco: orden de trabajo, nota de ajuste, etc.
	UserID        string
	CreatedAt     time.Time
}

// MovementFilter filtros para listar movimientos (siempre dentro de una organización).
type MovementFilter struct {
	ItemID      string
	WarehouseID string // coincide con origen o destino
	Type        string
	ReferenceID string
	From        *time.Time
	To          *time.Time
}

// StockFilter filtros para listar líneas de stock.
type StockFilter struct {
	ItemID      string
	WarehouseID string
	Limit       int
	Offset      int
}
