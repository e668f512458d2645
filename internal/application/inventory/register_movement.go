package inventory

import (
	"time"

	"github.com/jhoicas/mantenimiento-api/internal/application/dto"
	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

// MovementInputFromRequest adapta el body HTTP a la entrada del libro. orgID y userID vienen del token.
func MovementInputFromRequest(orgID, userID string, in dto.StockMovementRequest) MovementInput {
	return MovementInput{
		OrgID:       orgID,
		ItemID:      in.ItemID,
		WarehouseID: in.WarehouseID,
		Qty:         in.Qty,
		ReferenceID: in.ReferenceID,
		UserID:      userID,
	}
}

// TransferInputFromRequest adapta el body de traslado.
func TransferInputFromRequest(orgID, userID string, in dto.TransferRequest) TransferInput {
	return TransferInput{
		OrgID:           orgID,
		ItemID:          in.ItemID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Qty:             in.Qty,
		ReferenceID:     in.ReferenceID,
		UserID:          userID,
	}
}

// ToStockLineResponse convierte una línea al DTO de respuesta.
func ToStockLineResponse(l *entity.StockLine) dto.StockLineResponse {
	return dto.StockLineResponse{
		ItemID:      l.ItemID,
		WarehouseID: l.WarehouseID,
		Quantity:    l.Quantity,
		Reserved:    l.Reserved,
		Available:   l.Available(),
		UpdatedAt:   l.UpdatedAt,
	}
}

// ToMovementResponses convierte movimientos al DTO de respuesta.
func ToMovementResponses(list []*entity.StockMovement) []dto.StockMovementResponse {
	out := make([]dto.StockMovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, dto.StockMovementResponse{
			ID:            m.ID,
			ItemID:        m.ItemID,
			WarehouseID:   m.WarehouseID,
			ToWarehouseID: m.ToWarehouseID,
			Type:          m.Type,
			Qty:           m.Qty,
			ReferenceID:   m.ReferenceID,
			UserID:        m.UserID,
			CreatedAt:     m.CreatedAt,
		})
	}
	return out
}

// MovementFilterFromQuery convierte los query params; las fechas deben venir en RFC3339.
func MovementFilterFromQuery(q dto.MovementQuery) (entity.MovementFilter, error) {
	f := entity.MovementFilter{
		ItemID:      q.ItemID,
		WarehouseID: q.WarehouseID,
		Type:        q.Type,
		ReferenceID: q.ReferenceID,
	}
	if q.From != "" {
		t, err := time.Parse(time.RFC3339, q.From)
		if err != nil {
			return f, err
		}
		f.From = &t
	}
	if q.To != "" {
		t, err := time.Parse(time.RFC3339, q.To)
		if err != nil {
			return f, err
		}
		f.To = &t
	}
	return f, nil
}
