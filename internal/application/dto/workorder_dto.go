package dto

import "time"

// CreateWorkOrderRequest body para POST /api/work-orders. assignee_id y assignee_role son excluyentes.
type CreateWorkOrderRequest struct {
	Title          string         `json:"title" validate:"required,max=200"`
	Description    string         `json:"description" validate:"max=4000"`
	Priority       string         `json:"priority" validate:"omitempty,oneof=baja media alta urgente"`
	AssetID        string         `json:"asset_id,omitempty" validate:"max=64"`
	TemplateID     string         `json:"template_id,omitempty" validate:"max=64"`
	AssigneeID     string         `json:"assignee_id,omitempty" validate:"max=64,excluded_with=AssigneeRole"`
	AssigneeRole   string         `json:"assignee_role,omitempty" validate:"max=64"`
	ScheduledStart *time.Time     `json:"scheduled_start,omitempty"`
	EstimatedEnd   *time.Time     `json:"estimated_end,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

// TransitionRequest body de start / submit / approve / reject.
type TransitionRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

// AssignRequest body de POST /api/work-orders/:id/assign.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id" validate:"required,max=64"`
	Note       string `json:"note" validate:"max=1000"`
}

// PatchWorkOrderRequest body de PATCH /api/work-orders/:id. Solo se aplican los campos presentes.
type PatchWorkOrderRequest struct {
	Title          *string        `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description    *string        `json:"description,omitempty" validate:"omitempty,max=4000"`
	Priority       *string        `json:"priority,omitempty" validate:"omitempty,oneof=baja media alta urgente"`
	ScheduledStart *time.Time     `json:"scheduled_start,omitempty"`
	EstimatedEnd   *time.Time     `json:"estimated_end,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

// WorkOrderQuery filtros de GET /api/work-orders.
type WorkOrderQuery struct {
	State      string `query:"state"`
	AssigneeID string `query:"assignee_id" validate:"max=64"`
	PageRequest
}

// HistoryEntryResponse entrada del historial.
type HistoryEntryResponse struct {
	UserID string    `json:"user_id,omitempty"`
	From   *string   `json:"from"`
	To     string    `json:"to"`
	Note   string    `json:"note,omitempty"`
	At     time.Time `json:"at"`
}

// WorkOrderDatesResponse fechas de la orden.
type WorkOrderDatesResponse struct {
	Created        time.Time  `json:"created"`
	Start          *time.Time `json:"start,omitempty"`
	End            *time.Time `json:"end,omitempty"`
	AssignedAt     *time.Time `json:"assigned_at,omitempty"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	EstimatedEnd   *time.Time `json:"estimated_end,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
}

// WorkOrderResponse orden de trabajo en respuestas.
type WorkOrderResponse struct {
	ID          string                 `json:"id"`
	OrgSeq      int64                  `json:"org_seq"`
	State       string                 `json:"state"`
	AssigneeID  string                 `json:"assignee_id,omitempty"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Priority    string                 `json:"priority,omitempty"`
	AssetID     string                 `json:"asset_id,omitempty"`
	TemplateID  string                 `json:"template_id,omitempty"`
	Data        map[string]any         `json:"data,omitempty"`
	History     []HistoryEntryResponse `json:"history"`
	Dates       WorkOrderDatesResponse `json:"dates"`
	CreatedBy   string                 `json:"created_by,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
}
