// Package workorder contiene la máquina de estados de las órdenes de trabajo (servicio de dominio).
// Agregar o auditar estados es un cambio en la tabla, no en el código de los casos de uso.
package workorder

import (
	"fmt"

	"github.com/jhoicas/mantenimiento-api/internal/domain"
	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

// InitialState estado de una orden recién creada sin asignación.
const InitialState = entity.StateCreado

var transitions = map[entity.WorkOrderState][]entity.WorkOrderState{
	entity.StateCreado:     {entity.StateAsignado},
	entity.StateAsignado:   {entity.StateIniciado},
	entity.StateIniciado:   {entity.StateEnRevision},
	entity.StateEnRevision: {entity.StateTerminado, entity.StateAsignado},
	entity.StateTerminado:  {},
}

// AllowedFrom devuelve los destinos permitidos desde un estado (copia).
func AllowedFrom(from entity.WorkOrderState) []entity.WorkOrderState {
	return append([]entity.WorkOrderState(nil), transitions[from]...)
}

// CanTransition indica si existe la arista from -> to.
func CanTransition(from, to entity.WorkOrderState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal indica que el estado no tiene salidas.
func IsTerminal(s entity.WorkOrderState) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// ValidateTransition devuelve domain.ErrInvalidTransition (envuelto) si la arista no existe.
func ValidateTransition(from, to entity.WorkOrderState) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: estado destino desconocido %q", domain.ErrInvalidInput, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	return nil
}
