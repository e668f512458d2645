package repository

import "context"

// CounterRepository incremento atómico por organización (upsert en el primer uso, empieza en 1).
type CounterRepository interface {
	Increment(ctx context.Context, orgID string) (int64, error)
}
