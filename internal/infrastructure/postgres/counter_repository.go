package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/mantenimiento-api/internal/domain/repository"
)

var _ repository.CounterRepository = (*CounterRepo)(nil)

// CounterRepo contador por organización en org_counters. El upsert toma el lock de la fila,
// así que dos llamadas concurrentes de la misma organización nunca obtienen el mismo valor.
type CounterRepo struct {
	q Querier
}

// NewCounterRepository construye el adaptador.
func NewCounterRepository(q Querier) *CounterRepo {
	return &CounterRepo{q: q}
}

// Increment suma uno y devuelve el nuevo valor (1 en el primer uso).
func (r *CounterRepo) Increment(ctx context.Context, orgID string) (int64, error) {
	query := `
		INSERT INTO org_counters (org_id, seq, updated_at)
		VALUES ($1, 1, now())
		ON CONFLICT (org_id) DO UPDATE SET seq = org_counters.seq + 1, updated_at = now()
		RETURNING seq`
	var seq int64
	if err := r.q.QueryRow(ctx, query, orgID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return seq, nil
}
