package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/mantenimiento-api/internal/application/dto"
	"github.com/jhoicas/mantenimiento-api/internal/application/inventory"
	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

// stockLedger operaciones del libro que expone la API. Lo implementa *inventory.StockLedger.
type stockLedger interface {
	GetStock(ctx context.Context, orgID, itemID, warehouseID string) (*entity.StockLine, error)
	ListStock(ctx context.Context, orgID string, filter entity.StockFilter) ([]*entity.StockLine, error)
	ReservePart(ctx context.Context, in inventory.MovementInput) (*entity.StockLine, error)
	ConsumePart(ctx context.Context, in inventory.MovementInput) (*entity.StockLine, error)
	ReleaseReservation(ctx context.Context, in inventory.MovementInput) (*entity.StockLine, error)
	AdjustStock(ctx context.Context, in inventory.MovementInput) (*entity.StockLine, error)
	TransferStock(ctx context.Context, in inventory.TransferInput) (from, to *entity.StockLine, err error)
	ListMovements(ctx context.Context, orgID string, filter entity.MovementFilter, limit int) ([]*entity.StockMovement, error)
}

// InventoryHandler maneja las peticiones HTTP del libro de stock (protegido).
type InventoryHandler struct {
	ledger stockLedger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger stockLedger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

type movementFunc func(context.Context, inventory.MovementInput) (*entity.StockLine, error)

func (h *InventoryHandler) movement(c *fiber.Ctx, op movementFunc) error {
	orgID, userID := GetOrgID(c), GetUserID(c)
	if orgID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.StockMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}
	line, err := op(c.Context(), inventory.MovementInputFromRequest(orgID, userID, in))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(inventory.ToStockLineResponse(line))
}

// Reserve godoc
// @Summary      Reservar repuesto
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockMovementRequest  true  "item_id, warehouse_id, qty > 0, reference_id (orden)"
// @Success      200   {object}  dto.StockLineResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations [post]
func (h *InventoryHandler) Reserve(c *fiber.Ctx) error {
	return h.movement(c, h.ledger.ReservePart)
}

// Consume godoc
// @Summary      Consumir repuesto reservado
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockMovementRequest  true  "qty <= reserved"
// @Success      200   {object}  dto.StockLineResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/consumptions [post]
func (h *InventoryHandler) Consume(c *fiber.Ctx) error {
	return h.movement(c, h.ledger.ConsumePart)
}

// Release godoc
// @Summary      Liberar reserva
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockMovementRequest  true  "qty <= reserved"
// @Success      200   {object}  dto.StockLineResponse
// @Router       /api/inventory/releases [post]
func (h *InventoryHandler) Release(c *fiber.Ctx) error {
	return h.movement(c, h.ledger.ReleaseReservation)
}

// Adjust godoc
// @Summary      Ajuste manual de existencias (delta con signo)
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockMovementRequest  true  "qty = delta, distinto de cero"
// @Success      200   {object}  dto.StockLineResponse
// @Router       /api/inventory/adjustments [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	return h.movement(c, h.ledger.AdjustStock)
}

// Transfer godoc
// @Summary      Trasladar existencias entre bodegas
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "origen y destino distintos"
// @Success      200   {object}  dto.TransferResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	orgID, userID := GetOrgID(c), GetUserID(c)
	if orgID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}
	from, to, err := h.ledger.TransferStock(c.Context(), inventory.TransferInputFromRequest(orgID, userID, in))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.TransferResponse{
		From: inventory.ToStockLineResponse(from),
		To:   inventory.ToStockLineResponse(to),
	})
}

// GetStock godoc
// @Summary      Existencias: una línea (item_id + warehouse_id) o listado filtrado
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id       query  string  false  "ítem"
// @Param        warehouse_id  query  string  false  "bodega"
// @Success      200  {array}  dto.StockLineResponse
// @Router       /api/inventory/stock [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	orgID := GetOrgID(c)
	if orgID == "" {
		return unauthorized(c)
	}
	itemID, warehouseID := c.Query("item_id"), c.Query("warehouse_id")
	if itemID != "" && warehouseID != "" {
		line, err := h.ledger.GetStock(c.Context(), orgID, itemID, warehouseID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(inventory.ToStockLineResponse(line))
	}
	lines, err := h.ledger.ListStock(c.Context(), orgID, entity.StockFilter{
		ItemID:      itemID,
		WarehouseID: warehouseID,
		Limit:       c.QueryInt("limit", 100),
		Offset:      c.QueryInt("offset", 0),
	})
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.StockLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, inventory.ToStockLineResponse(l))
	}
	return c.JSON(fiber.Map{"total": len(out), "items": out})
}

// ListMovements godoc
// @Summary      Movimientos del libro, más recientes primero
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id       query  string  false  "ítem"
// @Param        warehouse_id  query  string  false  "bodega (origen o destino)"
// @Param        type          query  string  false  "reserve|consume|adjust|transfer|release"
// @Param        from          query  string  false  "RFC3339"
// @Param        to            query  string  false  "RFC3339"
// @Param        limit         query  int     false  "por defecto 50, máximo 500"
// @Success      200  {array}  dto.StockMovementResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	orgID := GetOrgID(c)
	if orgID == "" {
		return unauthorized(c)
	}
	var q dto.MovementQuery
	if err := c.QueryParser(&q); err != nil {
		return badBody(c)
	}
	if err := validate.Struct(q); err != nil {
		return validationFailed(c, err)
	}
	filter, err := inventory.MovementFilterFromQuery(q)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "fechas en formato RFC3339"})
	}
	list, err := h.ledger.ListMovements(c.Context(), orgID, filter, q.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(list), "movements": inventory.ToMovementResponses(list)})
}
