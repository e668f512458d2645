// Package counter emite consecutivos por organización sin huecos ni duplicados.
package counter

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jhoicas/mantenimiento-api/internal/domain"
	"github.com/jhoicas/mantenimiento-api/internal/domain/repository"
)

var tracer = otel.Tracer("mantenimiento-api/counter")

// Service CounterService: un incremento atómico por llamada sobre el contador de la organización.
type Service struct {
	store repository.CounterRepository
	log   zerolog.Logger
}

// NewService construye el servicio sobre el almacenamiento elegido (Postgres o Redis).
func NewService(store repository.CounterRepository, log zerolog.Logger) *Service {
	return &Service{store: store, log: log}
}

// GetNextSequence devuelve el siguiente consecutivo de la organización (1 en el primer uso).
func (s *Service) GetNextSequence(ctx context.Context, orgID string) (int64, error) {
	if err := domain.ValidateID("org_id", orgID); err != nil {
		return 0, err
	}
	ctx, span := tracer.Start(ctx, "counter.GetNextSequence")
	defer span.End()
	span.SetAttributes(attribute.String("org_id", orgID))

	seq, err := s.store.Increment(ctx, orgID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("siguiente consecutivo: %w", err)
	}
	s.log.Debug().Str("org_id", orgID).Int64("seq", seq).Msg("consecutivo emitido")
	return seq, nil
}
