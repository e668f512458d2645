package entity

import "time"

// WorkOrderState estado del ciclo de vida de una orden de trabajo.
type WorkOrderState string

const (
	StateCreado     WorkOrderState = "Creado"
	StateAsignado   WorkOrderState = "Asignado"
	StateIniciado   WorkOrderState = "Iniciado"
	StateEnRevision WorkOrderState = "En revisión"
	StateTerminado  WorkOrderState = "Terminado"
)

// IsValid verifica que el estado exista.
func (s WorkOrderState) IsValid() bool {
	switch s {
	case StateCreado, StateAsignado, StateIniciado, StateEnRevision, StateTerminado:
		return true
	}
	return false
}

// HistoryEntry registro inmutable de un cambio de estado. From es nil en la creación y en las
// asignaciones forzadas.
type HistoryEntry struct {
	UserID string          `json:"user_id,omitempty"`
	From   *WorkOrderState `json:"from"`
	To     WorkOrderState  `json:"to"`
	Note   string          `json:"note,omitempty"`
	At     time.Time       `json:"at"`
}

// WorkOrderDates fechas relevantes de la orden.
type WorkOrderDates struct {
	Created        time.Time
	Start          *time.Time
	End            *time.Time
	AssignedAt     *time.Time
	ScheduledStart *time.Time
	EstimatedEnd   *time.Time
	ApprovedAt     *time.Time
}

// WorkOrder orden de trabajo de mantenimiento.
// Invariante: State == History[len(History)-1].To. History solo crece. OrgSeq se asigna una vez al crear.
type WorkOrder struct {
	ID          string
	OrgID       string
	OrgSeq      int64
	State       WorkOrderState
	AssigneeID  string
	Title       string
	Description string
	Priority    string
	AssetID     string
	TemplateID  string
	Data        map[string]any // respuestas del formulario; opacas para el núcleo
	History     []HistoryEntry
	Dates       WorkOrderDates
	Deleted     bool
	CreatedBy   string
	UpdatedAt   time.Time
}

// Version identifica la lectura sobre la que se calculó un cambio. Todo cambio de ciclo de vida
// agrega una entrada al historial, así que HistoryLen distingue dos lecturas con el mismo estado.
type Version struct {
	State      WorkOrderState
	HistoryLen int
}

// Version devuelve la versión de la orden tal como fue leída.
func (w *WorkOrder) Version() Version {
	return Version{State: w.State, HistoryLen: len(w.History)}
}

// LastEntry devuelve la última entrada del historial (nil si está vacío).
func (w *WorkOrder) LastEntry() *HistoryEntry {
	if len(w.History) == 0 {
		return nil
	}
	return &w.History[len(w.History)-1]
}

// Clone copia profunda suficiente para que el llamador no comparta historial ni fechas.
func (w *WorkOrder) Clone() *WorkOrder {
	c := *w
	c.History = append([]HistoryEntry(nil), w.History...)
	if w.Data != nil {
		c.Data = make(map[string]any, len(w.Data))
		for k, v := range w.Data {
			c.Data[k] = v
		}
	}
	return &c
}

// WorkOrderFilter filtros de listado.
type WorkOrderFilter struct {
	State      WorkOrderState
	AssigneeID string
	Limit      int
	Offset     int
}

// WorkOrderPatch campos editables fuera del ciclo de vida. Los nil no se modifican.
type WorkOrderPatch struct {
	Title          *string
	Description    *string
	Priority       *string
	ScheduledStart *time.Time
	EstimatedEnd   *time.Time
	Data           map[string]any
}

// IsEmpty indica que el parche no modifica nada.
func (p WorkOrderPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.ScheduledStart == nil && p.EstimatedEnd == nil && p.Data == nil
}

// Tipos de evento publicados tras confirmar cambios en una orden.
const (
	EventWorkOrderCreated      = "workorder:created"
	EventWorkOrderTransitioned = "workorder:transitioned"
	EventWorkOrderAssigned     = "workorder:assigned"
)

// WorkOrderEvent notificación hacia servicios externos (push, correo, sockets).
type WorkOrderEvent struct {
	Type        string          `json:"type"`
	OrgID       string          `json:"org_id"`
	WorkOrderID string          `json:"work_order_id"`
	OrgSeq      int64           `json:"org_seq"`
	From        *WorkOrderState `json:"from,omitempty"`
	To          WorkOrderState  `json:"to"`
	AssigneeID  string          `json:"assignee_id,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	At          time.Time       `json:"at"`
}

// StateChange cambio atómico de ciclo de vida: estado, fechas, asignado opcional y la entrada de historial.
type StateChange struct {
	To         WorkOrderState
	AssigneeID *string
	Dates      WorkOrderDates
	Entry      HistoryEntry
	UpdatedAt  time.Time
}

// Apply aplica el cambio sobre una copia de la orden.
func (w *WorkOrder) Apply(c StateChange) *WorkOrder {
	next := w.Clone()
	next.State = c.To
	if c.AssigneeID != nil {
		next.AssigneeID = *c.AssigneeID
	}
	next.Dates = c.Dates
	next.History = append(next.History, c.Entry)
	next.UpdatedAt = c.UpdatedAt
	return next
}

// ApplyPatch aplica un parche sobre una copia de la orden.
func (w *WorkOrder) ApplyPatch(p WorkOrderPatch, at time.Time) *WorkOrder {
	next := w.Clone()
	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Priority != nil {
		next.Priority = *p.Priority
	}
	if p.ScheduledStart != nil {
		t := *p.ScheduledStart
		next.Dates.ScheduledStart = &t
	}
	if p.EstimatedEnd != nil {
		t := *p.EstimatedEnd
		next.Dates.EstimatedEnd = &t
	}
	if p.Data != nil {
		next.Data = p.Data
	}
	next.UpdatedAt = at
	return next
}
