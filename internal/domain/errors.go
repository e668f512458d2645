package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Errores de dominio (sin dependencias externas). La capa HTTP los traduce a códigos de estado.
var (
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrInvalidInput         = errors.New("entrada inválida")
	ErrUnauthorized         = errors.New("no autorizado")
	ErrForbidden            = errors.New("acceso denegado")
	ErrConflict             = errors.New("conflicto con el estado actual")
	ErrInsufficientStock    = errors.New("stock insuficiente")
	ErrInsufficientReserved = errors.New("reserva insuficiente")
	ErrInvalidTransition    = errors.New("transición de estado no permitida")
)

// maxIDLen límite de longitud para identificadores opacos.
const maxIDLen = 64

// ValidateID verifica que un identificador opaco (org, ítem, bodega, usuario, rol) esté bien formado:
// no vacío, sin espacios ni caracteres de control y de longitud acotada.
func ValidateID(field, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s requerido", ErrInvalidInput, field)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%w: %s excede %d caracteres", ErrInvalidInput, field, maxIDLen)
	}
	if strings.IndexFunc(id, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return fmt.Errorf("%w: %s mal formado", ErrInvalidInput, field)
	}
	return nil
}
