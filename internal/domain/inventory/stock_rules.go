package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/mantenimiento-api/internal/domain"
	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

// Reglas puras del libro de stock (servicio de dominio). Cada función recibe la línea leída y devuelve
// la línea resultante sin tocar la original; el caso de uso decide cómo persistirla.

// Límites de las columnas NUMERIC(18,4): cuatro decimales y menos de 10^14 en valor absoluto.
const QuantityScale = 4

// MaxQuantity cota exclusiva del valor absoluto de una cantidad.
var MaxQuantity = decimal.New(1, 14)

// CheckPrecision rechaza cantidades que la columna redondearía o no podría guardar.
func CheckPrecision(qty decimal.Decimal) error {
	if !qty.Equal(qty.Truncate(QuantityScale)) {
		return fmt.Errorf("%w: la cantidad %s tiene más de %d decimales", domain.ErrInvalidInput, qty, QuantityScale)
	}
	if qty.Abs().GreaterThanOrEqual(MaxQuantity) {
		return fmt.Errorf("%w: la cantidad %s excede el máximo permitido", domain.ErrInvalidInput, qty)
	}
	return nil
}

// RequirePositive exige qty > 0 y representable.
func RequirePositive(qty decimal.Decimal) error {
	if !qty.GreaterThan(decimal.Zero) {
		return fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrInvalidInput)
	}
	return CheckPrecision(qty)
}

// Reserve aparta qty de lo disponible (quantity - reserved).
func Reserve(line *entity.StockLine, qty decimal.Decimal) (*entity.StockLine, error) {
	if err := RequirePositive(qty); err != nil {
		return nil, err
	}
	if line.Available().LessThan(qty) {
		return nil, fmt.Errorf("%w: disponible %s, solicitado %s", domain.ErrInsufficientStock, line.Available(), qty)
	}
	next := line.Clone()
	next.Reserved = line.Reserved.Add(qty)
	return next, nil
}

// Consume retira físicamente stock previamente reservado: baja reserved y quantity.
func Consume(line *entity.StockLine, qty decimal.Decimal) (*entity.StockLine, error) {
	if err := RequirePositive(qty); err != nil {
		return nil, err
	}
	if line.Reserved.LessThan(qty) {
		return nil, fmt.Errorf("%w: reservado %s, solicitado %s", domain.ErrInsufficientReserved, line.Reserved, qty)
	}
	next := line.Clone()
	next.Reserved = line.Reserved.Sub(qty)
	next.Quantity = line.Quantity.Sub(qty)
	return next, nil
}

// Release devuelve a disponible una reserva no consumida.
func Release(line *entity.StockLine, qty decimal.Decimal) (*entity.StockLine, error) {
	if err := RequirePositive(qty); err != nil {
		return nil, err
	}
	if line.Reserved.LessThan(qty) {
		return nil, fmt.Errorf("%w: reservado %s, solicitado %s", domain.ErrInsufficientReserved, line.Reserved, qty)
	}
	next := line.Clone()
	next.Reserved = line.Reserved.Sub(qty)
	return next, nil
}

// Adjust corrige quantity por delta (cualquier signo, distinto de cero). Un delta que deje
// quantity < reserved se rechaza: esto también impide cantidades negativas.
func Adjust(line *entity.StockLine, delta decimal.Decimal) (*entity.StockLine, error) {
	if delta.IsZero() {
		return nil, fmt.Errorf("%w: el ajuste no puede ser cero", domain.ErrInvalidInput)
	}
	if err := CheckPrecision(delta); err != nil {
		return nil, err
	}
	newQty := line.Quantity.Add(delta)
	if newQty.LessThan(line.Reserved) {
		return nil, fmt.Errorf("%w: el ajuste dejaría %s con %s reservado", domain.ErrInsufficientStock, newQty, line.Reserved)
	}
	if err := CheckPrecision(newQty); err != nil {
		return nil, err
	}
	next := line.Clone()
	next.Quantity = newQty
	return next, nil
}

// TransferOut descuenta qty del origen respetando lo reservado.
func TransferOut(from *entity.StockLine, qty decimal.Decimal) (*entity.StockLine, error) {
	if err := RequirePositive(qty); err != nil {
		return nil, err
	}
	if from.Available().LessThan(qty) {
		return nil, fmt.Errorf("%w: disponible en origen %s, solicitado %s", domain.ErrInsufficientStock, from.Available(), qty)
	}
	next := from.Clone()
	next.Quantity = from.Quantity.Sub(qty)
	return next, nil
}

// TransferIn suma qty al destino; falla si el resultado no cabe en la columna.
func TransferIn(to *entity.StockLine, qty decimal.Decimal) (*entity.StockLine, error) {
	if err := RequirePositive(qty); err != nil {
		return nil, err
	}
	newQty := to.Quantity.Add(qty)
	if err := CheckPrecision(newQty); err != nil {
		return nil, err
	}
	next := to.Clone()
	next.Quantity = newQty
	return next, nil
}

// CheckInvariant verifica 0 <= reserved <= quantity.
func CheckInvariant(line *entity.StockLine) error {
	if line.Reserved.IsNegative() || line.Reserved.GreaterThan(line.Quantity) {
		return fmt.Errorf("invariante de stock violado: quantity=%s reserved=%s", line.Quantity, line.Reserved)
	}
	return nil
}
