package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLine representa las existencias de un ítem (repuesto o insumo) en una bodega de una organización.
// Invariante tras toda operación exitosa: 0 <= Reserved <= Quantity. Se crea perezosamente en cero y nunca se borra.
type StockLine struct {
	OrgID       string
	ItemID      string
	WarehouseID string
	Quantity    decimal.Decimal
	Reserved    decimal.Decimal
	UnitPrice   decimal.Decimal // denormalizado para reportes; el libro no lo modifica
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewStockLine línea vacía (quantity=0, reserved=0).
func NewStockLine(orgID, itemID, warehouseID string, now time.Time) *StockLine {
	return &StockLine{
		OrgID:       orgID,
		ItemID:      itemID,
		WarehouseID: warehouseID,
		Quantity:    decimal.Zero,
		Reserved:    decimal.Zero,
		UnitPrice:   decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Available cantidad disponible para reservar o trasladar.
func (s *StockLine) Available() decimal.Decimal {
	return s.Quantity.Sub(s.Reserved)
}

// Clone copia por valor; los repositorios en memoria y el libro la usan para no compartir punteros.
func (s *StockLine) Clone() *StockLine {
	c := *s
	return &c
}
