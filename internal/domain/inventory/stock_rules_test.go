package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/mantenimiento-api/internal/domain"
	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

func line(qty, reserved int64) *entity.StockLine {
	l := entity.NewStockLine("org1", "item1", "wh1", time.Now())
	l.Quantity = decimal.NewFromInt(qty)
	l.Reserved = decimal.NewFromInt(reserved)
	return l
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestReserve(t *testing.T) {
	_, err := Reserve(line(0, 0), d(5))
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	_, err = Reserve(line(10, 0), d(0))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	orig := line(10, 2)
	next, err := Reserve(orig, d(8))
	require.NoError(t, err)
	assert.True(t, next.Reserved.Equal(d(10)))
	assert.True(t, orig.Reserved.Equal(d(2)), "la línea original no se modifica")

	_, err = Reserve(line(10, 2), d(9))
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
}

func TestConsume(t *testing.T) {
	next, err := Consume(line(10, 5), d(5))
	require.NoError(t, err)
	assert.True(t, next.Quantity.Equal(d(5)))
	assert.True(t, next.Reserved.IsZero())

	_, err = Consume(line(10, 2), d(3))
	assert.True(t, errors.Is(err, domain.ErrInsufficientReserved))

	_, err = Consume(line(10, 2), d(-1))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestRelease(t *testing.T) {
	next, err := Release(line(10, 5), d(2))
	require.NoError(t, err)
	assert.True(t, next.Reserved.Equal(d(3)))
	assert.True(t, next.Quantity.Equal(d(10)))

	_, err = Release(line(10, 1), d(2))
	assert.True(t, errors.Is(err, domain.ErrInsufficientReserved))
}

func TestAdjust(t *testing.T) {
	next, err := Adjust(line(0, 0), d(10))
	require.NoError(t, err)
	assert.True(t, next.Quantity.Equal(d(10)))

	next, err = Adjust(line(10, 4), d(-6))
	require.NoError(t, err)
	assert.True(t, next.Quantity.Equal(d(4)))

	_, err = Adjust(line(10, 4), d(-7))
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	_, err = Adjust(line(0, 0), d(-1))
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock), "no se permiten cantidades negativas")

	_, err = Adjust(line(3, 0), decimal.Zero)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestAdjust_Fraccionario(t *testing.T) {
	next, err := Adjust(line(1, 0), decimal.RequireFromString("0.25"))
	require.NoError(t, err)
	assert.Equal(t, "1.25", next.Quantity.String())
}

func TestTransfer(t *testing.T) {
	from, err := TransferOut(line(10, 3), d(7))
	require.NoError(t, err)
	assert.True(t, from.Quantity.Equal(d(3)))
	assert.NoError(t, CheckInvariant(from))

	_, err = TransferOut(line(10, 3), d(8))
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	to, err := TransferIn(line(1, 0), d(7))
	require.NoError(t, err)
	assert.True(t, to.Quantity.Equal(d(8)))

	_, err = TransferIn(line(99999999999999, 0), d(1))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "el destino no puede superar 10^14")
}

func TestPrecision_CuatroDecimales(t *testing.T) {
	_, err := Reserve(line(10, 0), decimal.RequireFromString("0.00001"))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "la columna redondearía a cero")

	_, err = Consume(line(10, 5), decimal.RequireFromString("1.23456"))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = Adjust(line(10, 0), decimal.RequireFromString("-0.00001"))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	next, err := Reserve(line(10, 0), decimal.RequireFromString("0.0001"))
	require.NoError(t, err)
	assert.Equal(t, "0.0001", next.Reserved.String())

	next, err = Adjust(line(1, 0), decimal.RequireFromString("2.50000"))
	require.NoError(t, err, "los ceros a la derecha no cuentan como decimales")
	assert.True(t, next.Quantity.Equal(decimal.RequireFromString("3.5")))
}

func TestPrecision_Magnitud(t *testing.T) {
	_, err := Adjust(line(0, 0), decimal.New(1, 14))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = Adjust(line(99999999999999, 0), d(1))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "el resultado tampoco puede llegar a 10^14")

	_, err = TransferOut(line(10, 0), decimal.New(5, 20))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	next, err := Adjust(line(0, 0), decimal.RequireFromString("99999999999999.9999"))
	require.NoError(t, err)
	assert.NoError(t, CheckInvariant(next))
}

func TestCheckInvariant(t *testing.T) {
	assert.NoError(t, CheckInvariant(line(5, 5)))
	assert.Error(t, CheckInvariant(line(4, 5)))
	assert.Error(t, CheckInvariant(line(4, -1)))
}
