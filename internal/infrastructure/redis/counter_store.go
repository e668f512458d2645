// Package redis contiene el almacenamiento alternativo de consecutivos (COUNTER_BACKEND=redis).
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/mantenimiento-api/internal/domain/repository"
	"github.com/jhoicas/mantenimiento-api/pkg/config"
)

var _ repository.CounterRepository = (*CounterStore)(nil)

const keyPrefix = "orgseq:"

// NewClient crea el cliente y verifica la conexión.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

// CounterStore INCR sobre orgseq:<org>. INCR es atómico en Redis y crea la clave en 1.
// Requiere persistencia AOF en el servidor: sin ella un reinicio podría repetir consecutivos.
type CounterStore struct {
	client goredis.UniversalClient
}

// NewCounterStore construye el almacenamiento.
func NewCounterStore(client goredis.UniversalClient) *CounterStore {
	return &CounterStore{client: client}
}

// Increment devuelve el siguiente consecutivo de la organización.
func (s *CounterStore) Increment(ctx context.Context, orgID string) (int64, error) {
	seq, err := s.client.Incr(ctx, keyPrefix+orgID).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	return seq, nil
}
