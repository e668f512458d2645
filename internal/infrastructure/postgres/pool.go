package postgres

import (
	"context"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/jhoicas/mantenimiento-api/pkg/config"
)

// slowQueryThreshold consultas por encima de este tiempo se registran en warn.
const slowQueryThreshold = 200 * time.Millisecond

// NewPool crea el pool de conexiones. DATABASE_URL tiene prioridad sobre DB_HOST, DB_PORT, etc.
func NewPool(ctx context.Context, cfg config.DBConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	if poolConfig.MaxConns <= 0 {
		poolConfig.MaxConns = 25
	}
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.Tracer = newQueryLogger(log, slowQueryThreshold)

	// NUMERIC -> shopspring/decimal (cantidades fraccionarias de insumos: litros, metros).
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	return pool, nil
}

type queryStartKey struct{}

type queryStart struct {
	sql string
	at  time.Time
}

// queryLogger implementa pgx.QueryTracer: consultas lentas en warn, fallidas en debug
// (el error ya lo registra el caso de uso que lo recibe).
type queryLogger struct {
	log       zerolog.Logger
	threshold time.Duration
	now       func() time.Time
}

func newQueryLogger(log zerolog.Logger, threshold time.Duration) *queryLogger {
	return &queryLogger{log: log, threshold: threshold, now: time.Now}
}

func (l *queryLogger) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, at: l.now()})
}

func (l *queryLogger) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := l.now().Sub(start.at)
	switch {
	case data.Err != nil:
		l.log.Debug().Err(data.Err).Dur("elapsed", elapsed).Str("sql", start.sql).Msg("consulta fallida")
	case elapsed >= l.threshold:
		l.log.Warn().Dur("elapsed", elapsed).Str("sql", start.sql).Str("tag", data.CommandTag.String()).Msg("consulta lenta")
	}
}
