package workorder

import (
	"context"

	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

// SequenceIssuer emite el consecutivo por organización (counter.Service).
type SequenceIssuer interface {
	GetNextSequence(ctx context.Context, orgID string) (int64, error)
}

// NumberedCreator emite el consecutivo e inserta la orden en la misma transacción: si la inserción
// falla el contador no avanza. Devuelve el consecutivo asignado (también queda en wo.OrgSeq).
type NumberedCreator interface {
	CreateNumbered(ctx context.Context, wo *entity.WorkOrder) (int64, error)
}

// EventPublisher notifica a servicios externos (push, correo, sockets) tras confirmar un cambio.
type EventPublisher interface {
	Publish(ctx context.Context, event entity.WorkOrderEvent) error
}

// ReportGenerator renderiza una orden de trabajo como documento imprimible.
type ReportGenerator interface {
	WorkOrderPDF(wo *entity.WorkOrder) ([]byte, error)
}

// NopPublisher descarta los eventos (EVENTS_ENABLED=false).
type NopPublisher struct{}

// Publish no hace nada.
func (NopPublisher) Publish(context.Context, entity.WorkOrderEvent) error { return nil }
