package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/mantenimiento-api/internal/domain"
	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
	inv "github.com/jhoicas/mantenimiento-api/internal/domain/inventory"
	"github.com/jhoicas/mantenimiento-api/internal/domain/repository"
)

// Límites del listado de movimientos.
const (
	DefaultMovementLimit = 50
	MaxMovementLimit     = 500
	DefaultMaxRetries    = 3
)

var tracer = otel.Tracer("mantenimiento-api/inventory")

// errCASLost señala que otro escritor modificó la línea entre la lectura y el update condicionado.
var errCASLost = errors.New("compare-and-swap perdido")

// StockLedger libro de existencias por (organización, ítem, bodega). Reserva, consumo, liberación y
// ajuste usan compare-and-swap con reintento acotado; el traslado usa una transacción con bloqueo de filas.
type StockLedger struct {
	txRunner   TxRunner
	stockRepo  repository.StockRepository
	movRepo    repository.StockMovementRepository
	maxRetries int
	log        zerolog.Logger
	now        func() time.Time
}

// NewStockLedger construye el libro. maxRetries < 1 usa DefaultMaxRetries.
func NewStockLedger(
	txRunner TxRunner,
	stockRepo repository.StockRepository,
	movRepo repository.StockMovementRepository,
	maxRetries int,
	log zerolog.Logger,
) *StockLedger {
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}
	return &StockLedger{
		txRunner:   txRunner,
		stockRepo:  stockRepo,
		movRepo:    movRepo,
		maxRetries: maxRetries,
		log:        log,
		now:        time.Now,
	}
}

// MovementInput entrada de reserva, consumo, liberación y ajuste. En ajustes Qty es el delta con signo.
type MovementInput struct {
	OrgID       string
	ItemID      string
	WarehouseID string
	Qty         decimal.Decimal
	ReferenceID string
	UserID      string
}

// TransferInput entrada de traslado entre bodegas.
type TransferInput struct {
	OrgID           string
	ItemID          string
	FromWarehouseID string
	ToWarehouseID   string
	Qty             decimal.Decimal
	ReferenceID     string
	UserID          string
}

func validateLineKey(orgID, itemID, warehouseID string) error {
	if err := domain.ValidateID("org_id", orgID); err != nil {
		return err
	}
	if err := domain.ValidateID("item_id", itemID); err != nil {
		return err
	}
	return domain.ValidateID("warehouse_id", warehouseID)
}

func (in MovementInput) validate() error {
	if err := validateLineKey(in.OrgID, in.ItemID, in.WarehouseID); err != nil {
		return err
	}
	if len(in.ReferenceID) > 128 {
		return fmt.Errorf("%w: reference_id demasiado largo", domain.ErrInvalidInput)
	}
	return nil
}

// GetOrCreateStock devuelve la línea existente o la crea en cero.
func (l *StockLedger) GetOrCreateStock(ctx context.Context, orgID, itemID, warehouseID string) (*entity.StockLine, error) {
	if err := validateLineKey(orgID, itemID, warehouseID); err != nil {
		return nil, err
	}
	return l.stockRepo.GetOrCreate(ctx, orgID, itemID, warehouseID)
}

// GetStock consulta una línea sin crearla; si no existe devuelve una línea en cero.
func (l *StockLedger) GetStock(ctx context.Context, orgID, itemID, warehouseID string) (*entity.StockLine, error) {
	if err := validateLineKey(orgID, itemID, warehouseID); err != nil {
		return nil, err
	}
	line, err := l.stockRepo.Get(ctx, orgID, itemID, warehouseID)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return entity.NewStockLine(orgID, itemID, warehouseID, l.now()), nil
	}
	return line, nil
}

// ListStock lista líneas de la organización filtrando por ítem o bodega.
func (l *StockLedger) ListStock(ctx context.Context, orgID string, filter entity.StockFilter) ([]*entity.StockLine, error) {
	if err := domain.ValidateID("org_id", orgID); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultMovementLimit
	}
	if filter.Limit > MaxMovementLimit {
		filter.Limit = MaxMovementLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return l.stockRepo.List(ctx, orgID, filter)
}

// ReservePart aparta qty del disponible (quantity - reserved).
func (l *StockLedger) ReservePart(ctx context.Context, in MovementInput) (*entity.StockLine, error) {
	return l.mutate(ctx, "inventory.ReservePart", entity.MovementTypeReserve, in, func(cur *entity.StockLine) (*entity.StockLine, error) {
		return inv.Reserve(cur, in.Qty)
	})
}

// ConsumePart retira del stock una cantidad previamente reservada.
func (l *StockLedger) ConsumePart(ctx context.Context, in MovementInput) (*entity.StockLine, error) {
	return l.mutate(ctx, "inventory.ConsumePart", entity.MovementTypeConsume, in, func(cur *entity.StockLine) (*entity.StockLine, error) {
		return inv.Consume(cur, in.Qty)
	})
}

// ReleaseReservation devuelve al disponible una reserva que no se va a consumir.
func (l *StockLedger) ReleaseReservation(ctx context.Context, in MovementInput) (*entity.StockLine, error) {
	return l.mutate(ctx, "inventory.ReleaseReservation", entity.MovementTypeRelease, in, func(cur *entity.StockLine) (*entity.StockLine, error) {
		return inv.Release(cur, in.Qty)
	})
}

// AdjustStock corrige quantity por in.Qty (delta con signo).
func (l *StockLedger) AdjustStock(ctx context.Context, in MovementInput) (*entity.StockLine, error) {
	return l.mutate(ctx, "inventory.AdjustStock", entity.MovementTypeAdjust, in, func(cur *entity.StockLine) (*entity.StockLine, error) {
		return inv.Adjust(cur, in.Qty)
	})
}

// mutate lee la línea, aplica la regla y escribe con compare-and-swap junto con el movimiento, en una
// transacción por intento. Si el CAS se pierde reintenta hasta maxRetries y luego devuelve ErrConflict.
func (l *StockLedger) mutate(
	ctx context.Context,
	op, movType string,
	in MovementInput,
	rule func(cur *entity.StockLine) (*entity.StockLine, error),
) (*entity.StockLine, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ctx, span := startSpan(ctx, op, in.OrgID, in.ItemID, in.WarehouseID)
	defer span.End()

	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		var result *entity.StockLine
		err := l.txRunner.Run(ctx, func(stockRepo repository.StockRepository, movRepo repository.StockMovementRepository) error {
			cur, err := stockRepo.GetOrCreate(ctx, in.OrgID, in.ItemID, in.WarehouseID)
			if err != nil {
				return err
			}
			next, err := rule(cur)
			if err != nil {
				return err
			}
			now := l.now()
			next.UpdatedAt = now
			ok, err := stockRepo.CompareAndSwap(ctx, next, cur.Quantity, cur.Reserved)
			if err != nil {
				return err
			}
			if !ok {
				return errCASLost
			}
			if err := movRepo.Create(ctx, &entity.StockMovement{
				ID:          uuid.New().String(),
				OrgID:       in.OrgID,
				ItemID:      in.ItemID,
				WarehouseID: in.WarehouseID,
				Type:        movType,
				Qty:         in.Qty,
				ReferenceID: in.ReferenceID,
				UserID:      in.UserID,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
			result = next
			return nil
		})
		if errors.Is(err, errCASLost) {
			l.log.Debug().Str("op", op).Str("org_id", in.OrgID).Str("item_id", in.ItemID).
				Str("warehouse_id", in.WarehouseID).Int("attempt", attempt).Msg("CAS perdido, reintentando")
			continue
		}
		if err != nil {
			endSpanErr(span, err)
			return nil, err
		}
		l.log.Info().Str("op", op).Str("org_id", in.OrgID).Str("item_id", in.ItemID).
			Str("warehouse_id", in.WarehouseID).Str("qty", in.Qty.String()).
			Str("quantity", result.Quantity.String()).Str("reserved", result.Reserved.String()).Msg("movimiento aplicado")
		return result, nil
	}
	err := fmt.Errorf("%w: la línea cambió %d veces durante %s", domain.ErrConflict, l.maxRetries, op)
	endSpanErr(span, err)
	return nil, err
}

// TransferStock mueve qty de una bodega a otra: descuento en origen, suma en destino y un movimiento
// transfer, todo en una transacción. Las filas se bloquean en orden de bodega para evitar interbloqueos.
func (l *StockLedger) TransferStock(ctx context.Context, in TransferInput) (from, to *entity.StockLine, err error) {
	if err := validateLineKey(in.OrgID, in.ItemID, in.FromWarehouseID); err != nil {
		return nil, nil, err
	}
	if err := domain.ValidateID("to_warehouse_id", in.ToWarehouseID); err != nil {
		return nil, nil, err
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return nil, nil, fmt.Errorf("%w: origen y destino son la misma bodega", domain.ErrInvalidInput)
	}
	if err := inv.RequirePositive(in.Qty); err != nil {
		return nil, nil, err
	}
	ctx, span := startSpan(ctx, "inventory.TransferStock", in.OrgID, in.ItemID, in.FromWarehouseID)
	defer span.End()
	span.SetAttributes(attribute.String("to_warehouse_id", in.ToWarehouseID))

	err = l.txRunner.Run(ctx, func(stockRepo repository.StockRepository, movRepo repository.StockMovementRepository) error {
		order := []string{in.FromWarehouseID, in.ToWarehouseID}
		sort.Strings(order)
		locked := make(map[string]*entity.StockLine, 2)
		for _, wh := range order {
			line, err := stockRepo.GetForUpdate(ctx, in.OrgID, in.ItemID, wh)
			if err != nil {
				return err
			}
			locked[wh] = line
		}

		nextFrom, err := inv.TransferOut(locked[in.FromWarehouseID], in.Qty)
		if err != nil {
			return err
		}
		nextTo, err := inv.TransferIn(locked[in.ToWarehouseID], in.Qty)
		if err != nil {
			return err
		}
		now := l.now()
		nextFrom.UpdatedAt = now
		nextTo.UpdatedAt = now

		if err := stockRepo.Save(ctx, nextFrom); err != nil {
			return err
		}
		if err := stockRepo.Save(ctx, nextTo); err != nil {
			return err
		}
		if err := movRepo.Create(ctx, &entity.StockMovement{
			ID:            uuid.New().String(),
			OrgID:         in.OrgID,
			ItemID:        in.ItemID,
			WarehouseID:   in.FromWarehouseID,
			ToWarehouseID: in.ToWarehouseID,
			Type:          entity.MovementTypeTransfer,
			Qty:           in.Qty,
			ReferenceID:   in.ReferenceID,
			UserID:        in.UserID,
			CreatedAt:     now,
		}); err != nil {
			return err
		}
		from, to = nextFrom, nextTo
		return nil
	})
	if err != nil {
		endSpanErr(span, err)
		return nil, nil, err
	}
	l.log.Info().Str("op", "inventory.TransferStock").Str("org_id", in.OrgID).Str("item_id", in.ItemID).
		Str("warehouse_id", in.FromWarehouseID).Str("to_warehouse_id", in.ToWarehouseID).
		Str("qty", in.Qty.String()).Msg("traslado aplicado")
	return from, to, nil
}

// ListMovements lista movimientos de la organización, más recientes primero.
// limit <= 0 usa DefaultMovementLimit; por encima de MaxMovementLimit se recorta.
func (l *StockLedger) ListMovements(ctx context.Context, orgID string, filter entity.MovementFilter, limit int) ([]*entity.StockMovement, error) {
	if err := domain.ValidateID("org_id", orgID); err != nil {
		return nil, err
	}
	if filter.Type != "" && !entity.IsValidMovementType(filter.Type) {
		return nil, fmt.Errorf("%w: tipo de movimiento %q", domain.ErrInvalidInput, filter.Type)
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, fmt.Errorf("%w: rango de fechas invertido", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultMovementLimit
	}
	if limit > MaxMovementLimit {
		limit = MaxMovementLimit
	}
	return l.movRepo.List(ctx, orgID, filter, limit)
}

func startSpan(ctx context.Context, name, orgID, itemID, warehouseID string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("org_id", orgID),
		attribute.String("item_id", itemID),
		attribute.String("warehouse_id", warehouseID),
	)
	return ctx, span
}

func endSpanErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
