package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/mantenimiento-api/internal/application/inventory"
	"github.com/jhoicas/mantenimiento-api/internal/application/workorder"
	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
	"github.com/jhoicas/mantenimiento-api/internal/domain/repository"
)

var (
	_ inventory.TxRunner        = (*TxRunner)(nil)
	_ workorder.NumberedCreator = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL (READ COMMITTED).
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Interbloqueos y fallos de serialización se devuelven como domain.ErrConflict.
func (r *TxRunner) Run(ctx context.Context, fn func(
	stockRepo repository.StockRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewStockRepository(tx), NewStockMovementRepository(tx))
	})
}

// CreateNumbered incrementa org_counters e inserta la orden en la misma transacción. El upsert del
// contador bloquea la fila de la organización hasta el commit; si el insert falla, el incremento se
// revierte con él.
func (r *TxRunner) CreateNumbered(ctx context.Context, wo *entity.WorkOrder) (int64, error) {
	var seq int64
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		seq, err = NewCounterRepository(tx).Increment(ctx, wo.OrgID)
		if err != nil {
			return err
		}
		wo.OrgSeq = seq
		return NewWorkOrderRepository(tx).Create(ctx, wo)
	})
	if err != nil {
		wo.OrgSeq = 0
		return 0, err
	}
	return seq, nil
}

func (r *TxRunner) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return mapTxError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapTxError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}
