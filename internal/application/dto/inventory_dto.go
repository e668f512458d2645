package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockMovementRequest body para reservar, consumir o liberar (qty > 0) y para ajustar (qty = delta con signo).
type StockMovementRequest struct {
	ItemID      string          `json:"item_id" validate:"required,max=64"`
	WarehouseID string          `json:"warehouse_id" validate:"required,max=64"`
	Qty         decimal.Decimal `json:"qty"`
	ReferenceID string          `json:"reference_id,omitempty" validate:"max=128"`
}

// TransferRequest body para POST /api/inventory/transfers.
type TransferRequest struct {
	ItemID          string          `json:"item_id" validate:"required,max=64"`
	FromWarehouseID string          `json:"from_warehouse_id" validate:"required,max=64"`
	ToWarehouseID   string          `json:"to_warehouse_id" validate:"required,max=64,nefield=FromWarehouseID"`
	Qty             decimal.Decimal `json:"qty"`
	ReferenceID     string          `json:"reference_id,omitempty" validate:"max=128"`
}

// MovementQuery filtros de GET /api/inventory/movements.
type MovementQuery struct {
	ItemID      string `query:"item_id" validate:"max=64"`
	WarehouseID string `query:"warehouse_id" validate:"max=64"`
	Type        string `query:"type" validate:"omitempty,oneof=reserve consume adjust transfer release"`
	ReferenceID string `query:"reference_id" validate:"max=128"`
	From        string `query:"from"` // RFC3339
	To          string `query:"to"`
	Limit       int    `query:"limit" validate:"min=0,max=500"`
}

// StockLineResponse línea de stock en respuestas.
type StockLineResponse struct {
	ItemID      string          `json:"item_id"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reserved    decimal.Decimal `json:"reserved"`
	Available   decimal.Decimal `json:"available"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TransferResponse estado de ambas líneas tras el traslado.
type TransferResponse struct {
	From StockLineResponse `json:"from"`
	To   StockLineResponse `json:"to"`
}

// StockMovementResponse movimiento del libro.
type StockMovementResponse struct {
	ID            string          `json:"id"`
	ItemID        string          `json:"item_id"`
	WarehouseID   string          `json:"warehouse_id"`
	ToWarehouseID string          `json:"to_warehouse_id,omitempty"`
	Type          string          `json:"type"`
	Qty           decimal.Decimal `json:"qty"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	UserID        string          `json:"user_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
