// Package workorder implementa el ciclo de vida de las órdenes de trabajo: creación con consecutivo,
// transiciones validadas contra la tabla de estados, asignación forzada y edición de datos.
package workorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/mantenimiento-api/internal/domain"
	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
	"github.com/jhoicas/mantenimiento-api/internal/domain/repository"
	sm "github.com/jhoicas/mantenimiento-api/internal/domain/workorder"
)

// Límites del listado.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

var tracer = otel.Tracer("mantenimiento-api/workorder")

// Lifecycle WorkOrderLifecycle.
type Lifecycle struct {
	repo      repository.WorkOrderRepository
	members   repository.MemberRepository
	sequences SequenceIssuer
	numbered  NumberedCreator
	events    EventPublisher
	reports   ReportGenerator
	log       zerolog.Logger
	now       func() time.Time
}

// NewLifecycle construye el caso de uso. events y reports pueden ser nil.
func NewLifecycle(
	repo repository.WorkOrderRepository,
	members repository.MemberRepository,
	sequences SequenceIssuer,
	events EventPublisher,
	reports ReportGenerator,
	log zerolog.Logger,
) *Lifecycle {
	if events == nil {
		events = NopPublisher{}
	}
	return &Lifecycle{
		repo:      repo,
		members:   members,
		sequences: sequences,
		events:    events,
		reports:   reports,
		log:       log,
		now:       time.Now,
	}
}

// WithNumberedCreate hace que Create emita el consecutivo dentro de la transacción de inserción en lugar
// de pedirlo a sequences. Solo aplica cuando el contador vive en la misma base que las órdenes.
func (uc *Lifecycle) WithNumberedCreate(nc NumberedCreator) *Lifecycle {
	uc.numbered = nc
	return uc
}

// CreateInput datos de creación. AssigneeID y AssigneeRole son excluyentes.
type CreateInput struct {
	OrgID          string
	CreatedBy      string
	Title          string
	Description    string
	Priority       string
	AssetID        string
	TemplateID     string
	AssigneeID     string
	AssigneeRole   string
	ScheduledStart *time.Time
	EstimatedEnd   *time.Time
	Data           map[string]any
}

// Create obtiene el consecutivo una sola vez e inserta la orden con su primera entrada de historial.
// Si el asignado (o alguien con el rol) pertenece a la organización, nace en Asignado; si no, en Creado.
// Con WithNumberedCreate consecutivo e inserción van en una transacción y un fallo no deja hueco.
func (uc *Lifecycle) Create(ctx context.Context, in CreateInput) (*entity.WorkOrder, error) {
	if err := domain.ValidateID("org_id", in.OrgID); err != nil {
		return nil, err
	}
	if in.AssigneeID != "" && in.AssigneeRole != "" {
		return nil, fmt.Errorf("%w: assignee_id y assignee_role son excluyentes", domain.ErrInvalidInput)
	}
	for field, v := range map[string]string{"assignee_id": in.AssigneeID, "assignee_role": in.AssigneeRole, "created_by": in.CreatedBy} {
		if v == "" {
			continue
		}
		if err := domain.ValidateID(field, v); err != nil {
			return nil, err
		}
	}
	ctx, span := startSpan(ctx, "workorder.Create", in.OrgID, "")
	defer span.End()

	assignee, err := uc.resolveAssignee(ctx, in)
	if err != nil {
		endSpanErr(span, err)
		return nil, err
	}

	now := uc.now()
	state := sm.InitialState
	note := "orden creada"
	dates := entity.WorkOrderDates{Created: now, ScheduledStart: in.ScheduledStart, EstimatedEnd: in.EstimatedEnd}
	if assignee != "" {
		state = entity.StateAsignado
		note = "orden creada y asignada"
		dates.AssignedAt = &now
	}
	wo := &entity.WorkOrder{
		ID:          uuid.New().String(),
		OrgID:       in.OrgID,
		State:       state,
		AssigneeID:  assignee,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		AssetID:     in.AssetID,
		TemplateID:  in.TemplateID,
		Data:        in.Data,
		History:     []entity.HistoryEntry{{UserID: in.CreatedBy, From: nil, To: state, Note: note, At: now}},
		Dates:       dates,
		CreatedBy:   in.CreatedBy,
		UpdatedAt:   now,
	}
	seq, err := uc.insert(ctx, wo)
	if err != nil {
		endSpanErr(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("work_order_id", wo.ID), attribute.Int64("org_seq", seq))
	uc.log.Info().Str("org_id", wo.OrgID).Str("work_order_id", wo.ID).Int64("org_seq", seq).
		Str("state", string(state)).Msg("orden creada")

	uc.publish(ctx, entity.WorkOrderEvent{
		Type: entity.EventWorkOrderCreated, OrgID: wo.OrgID, WorkOrderID: wo.ID, OrgSeq: wo.OrgSeq,
		To: state, AssigneeID: assignee, UserID: in.CreatedBy, At: now,
	})
	return wo, nil
}

func (uc *Lifecycle) insert(ctx context.Context, wo *entity.WorkOrder) (int64, error) {
	if uc.numbered != nil {
		seq, err := uc.numbered.CreateNumbered(ctx, wo)
		if err != nil {
			uc.log.Error().Err(err).Str("org_id", wo.OrgID).Msg("no se pudo insertar la orden")
			return 0, err
		}
		wo.OrgSeq = seq
		return seq, nil
	}
	seq, err := uc.sequences.GetNextSequence(ctx, wo.OrgID)
	if err != nil {
		return 0, err
	}
	wo.OrgSeq = seq
	if err := uc.repo.Create(ctx, wo); err != nil {
		// El consecutivo ya emitido queda sin usar; es el único caso en que aparece un hueco.
		uc.log.Error().Err(err).Str("org_id", wo.OrgID).Int64("org_seq", seq).Msg("no se pudo insertar la orden")
		return 0, err
	}
	return seq, nil
}

func (uc *Lifecycle) resolveAssignee(ctx context.Context, in CreateInput) (string, error) {
	switch {
	case in.AssigneeID != "":
		ok, err := uc.members.IsMember(ctx, in.OrgID, in.AssigneeID)
		if err != nil {
			return "", err
		}
		if ok {
			return in.AssigneeID, nil
		}
		uc.log.Warn().Str("org_id", in.OrgID).Str("assignee_id", in.AssigneeID).Msg("asignado no pertenece a la organización; la orden queda en Creado")
	case in.AssigneeRole != "":
		return uc.members.FirstWithRole(ctx, in.OrgID, in.AssigneeRole)
	}
	return "", nil
}

// FindByID devuelve la orden o ErrNotFound (también si está eliminada).
func (uc *Lifecycle) FindByID(ctx context.Context, orgID, id string) (*entity.WorkOrder, error) {
	if err := validateKey(orgID, id); err != nil {
		return nil, err
	}
	wo, err := uc.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if wo == nil {
		return nil, fmt.Errorf("%w: orden %s", domain.ErrNotFound, id)
	}
	return wo, nil
}

// List lista órdenes vivas de la organización, consecutivo más alto primero.
func (uc *Lifecycle) List(ctx context.Context, orgID string, filter entity.WorkOrderFilter) ([]*entity.WorkOrder, error) {
	if err := domain.ValidateID("org_id", orgID); err != nil {
		return nil, err
	}
	if filter.State != "" && !filter.State.IsValid() {
		return nil, fmt.Errorf("%w: estado %q", domain.ErrInvalidInput, filter.State)
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.repo.List(ctx, orgID, filter)
}

// Transition mueve la orden a toState si la tabla lo permite. El update se condiciona a la versión leída:
// de dos cambios concurrentes solo uno gana; el otro recibe ErrConflict.
func (uc *Lifecycle) Transition(ctx context.Context, orgID, id string, toState entity.WorkOrderState, userID, note string) (*entity.WorkOrder, error) {
	return uc.transition(ctx, orgID, id, toState, userID, note, nil)
}

// transition aplica guard sobre la misma lectura que condiciona el update; si la orden cambia entre
// ambos pasos el update no aplica y la decisión del guard no queda confirmada.
func (uc *Lifecycle) transition(ctx context.Context, orgID, id string, toState entity.WorkOrderState, userID, note string, guard func(*entity.WorkOrder) error) (*entity.WorkOrder, error) {
	if err := validateKey(orgID, id); err != nil {
		return nil, err
	}
	ctx, span := startSpan(ctx, "workorder.Transition", orgID, id)
	defer span.End()
	span.SetAttributes(attribute.String("to", string(toState)))

	cur, err := uc.FindByID(ctx, orgID, id)
	if err != nil {
		endSpanErr(span, err)
		return nil, err
	}
	if err := sm.ValidateTransition(cur.State, toState); err != nil {
		endSpanErr(span, err)
		return nil, err
	}
	if guard != nil {
		if err := guard(cur); err != nil {
			endSpanErr(span, err)
			return nil, err
		}
	}

	now := uc.now()
	dates := cur.Dates
	switch toState {
	case entity.StateIniciado:
		dates.Start = &now
	case entity.StateEnRevision:
		dates.End = &now
	case entity.StateTerminado:
		dates.ApprovedAt = &now
	case entity.StateAsignado:
		if cur.State == entity.StateCreado {
			dates.AssignedAt = &now
		}
	}
	from := cur.State
	change := entity.StateChange{
		To:        toState,
		Dates:     dates,
		Entry:     entity.HistoryEntry{UserID: userID, From: &from, To: toState, Note: note, At: now},
		UpdatedAt: now,
	}
	next, err := uc.apply(ctx, cur, change)
	if err != nil {
		endSpanErr(span, err)
		return nil, err
	}
	uc.log.Info().Str("org_id", orgID).Str("work_order_id", id).Str("from", string(from)).
		Str("to", string(toState)).Str("user_id", userID).Msg("transición aplicada")

	uc.publish(ctx, entity.WorkOrderEvent{
		Type: entity.EventWorkOrderTransitioned, OrgID: orgID, WorkOrderID: id, OrgSeq: next.OrgSeq,
		From: &from, To: toState, AssigneeID: next.AssigneeID, UserID: userID, At: now,
	})
	return next, nil
}

// Start Asignado -> Iniciado. Solo el asignado puede iniciar; si otro reasigna la orden entre la lectura
// y el update, el inicio falla con ErrConflict.
func (uc *Lifecycle) Start(ctx context.Context, orgID, id, userID, note string) (*entity.WorkOrder, error) {
	return uc.transition(ctx, orgID, id, entity.StateIniciado, userID, note, func(cur *entity.WorkOrder) error {
		if cur.AssigneeID != userID {
			return fmt.Errorf("%w: solo el asignado puede iniciar la orden", domain.ErrForbidden)
		}
		return nil
	})
}

// SubmitForReview Iniciado -> En revisión.
func (uc *Lifecycle) SubmitForReview(ctx context.Context, orgID, id, userID, note string) (*entity.WorkOrder, error) {
	return uc.Transition(ctx, orgID, id, entity.StateEnRevision, userID, note)
}

// Approve En revisión -> Terminado.
func (uc *Lifecycle) Approve(ctx context.Context, orgID, id, userID, note string) (*entity.WorkOrder, error) {
	return uc.Transition(ctx, orgID, id, entity.StateTerminado, userID, note)
}

// Reject En revisión -> Asignado (vuelve al técnico).
func (uc *Lifecycle) Reject(ctx context.Context, orgID, id, userID, note string) (*entity.WorkOrder, error) {
	return uc.Transition(ctx, orgID, id, entity.StateAsignado, userID, note)
}

// Assign fija el asignado y fuerza el estado Asignado sin consultar la tabla de transiciones.
// Borra dates.start. No valida que assigneeID pertenezca a la organización: lo hace el llamador.
func (uc *Lifecycle) Assign(ctx context.Context, orgID, id, assigneeID, assignedBy, note string) (*entity.WorkOrder, error) {
	if err := validateKey(orgID, id); err != nil {
		return nil, err
	}
	if err := domain.ValidateID("assignee_id", assigneeID); err != nil {
		return nil, err
	}
	ctx, span := startSpan(ctx, "workorder.Assign", orgID, id)
	defer span.End()

	cur, err := uc.FindByID(ctx, orgID, id)
	if err != nil {
		endSpanErr(span, err)
		return nil, err
	}
	now := uc.now()
	dates := cur.Dates
	dates.Start = nil
	dates.AssignedAt = &now
	change := entity.StateChange{
		To:         entity.StateAsignado,
		AssigneeID: &assigneeID,
		Dates:      dates,
		Entry:      entity.HistoryEntry{UserID: assignedBy, From: nil, To: entity.StateAsignado, Note: note, At: now},
		UpdatedAt:  now,
	}
	next, err := uc.apply(ctx, cur, change)
	if err != nil {
		endSpanErr(span, err)
		return nil, err
	}
	uc.log.Info().Str("org_id", orgID).Str("work_order_id", id).Str("assignee_id", assigneeID).
		Str("user_id", assignedBy).Msg("orden asignada")

	uc.publish(ctx, entity.WorkOrderEvent{
		Type: entity.EventWorkOrderAssigned, OrgID: orgID, WorkOrderID: id, OrgSeq: next.OrgSeq,
		To: entity.StateAsignado, AssigneeID: assigneeID, UserID: assignedBy, At: now,
	})
	return next, nil
}

func (uc *Lifecycle) apply(ctx context.Context, cur *entity.WorkOrder, change entity.StateChange) (*entity.WorkOrder, error) {
	ok, err := uc.repo.ApplyChange(ctx, cur.OrgID, cur.ID, cur.Version(), change)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: la orden %s cambió desde la lectura", domain.ErrConflict, cur.ID)
	}
	return cur.Apply(change), nil
}

// PatchData edita campos fuera del ciclo de vida (título, fechas planeadas, respuestas del formulario).
// Nunca toca estado, asignado, historial ni consecutivo.
func (uc *Lifecycle) PatchData(ctx context.Context, orgID, id string, patch entity.WorkOrderPatch) (*entity.WorkOrder, error) {
	if err := validateKey(orgID, id); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: nada que actualizar", domain.ErrInvalidInput)
	}
	cur, err := uc.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if sm.IsTerminal(cur.State) {
		return nil, fmt.Errorf("%w: la orden está terminada", domain.ErrInvalidTransition)
	}
	now := uc.now()
	ok, err := uc.repo.UpdateData(ctx, orgID, id, patch, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: la orden %s cambió mientras se editaba", domain.ErrConflict, id)
	}
	return cur.ApplyPatch(patch, now), nil
}

// SoftDelete marca la orden como eliminada; deja de ser visible para el resto de operaciones.
func (uc *Lifecycle) SoftDelete(ctx context.Context, orgID, id, userID string) error {
	if err := validateKey(orgID, id); err != nil {
		return err
	}
	ok, err := uc.repo.SoftDelete(ctx, orgID, id, uc.now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: orden %s", domain.ErrNotFound, id)
	}
	uc.log.Info().Str("org_id", orgID).Str("work_order_id", id).Str("user_id", userID).Msg("orden eliminada")
	return nil
}

// Report genera el PDF de la orden.
func (uc *Lifecycle) Report(ctx context.Context, orgID, id string) ([]byte, error) {
	if uc.reports == nil {
		return nil, errors.New("generador de reportes no configurado")
	}
	wo, err := uc.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return uc.reports.WorkOrderPDF(wo)
}

// publish es best-effort: el cambio ya está confirmado y un fallo aquí solo se registra.
func (uc *Lifecycle) publish(ctx context.Context, ev entity.WorkOrderEvent) {
	if err := uc.events.Publish(ctx, ev); err != nil {
		uc.log.Warn().Err(err).Str("event", ev.Type).Str("org_id", ev.OrgID).
			Str("work_order_id", ev.WorkOrderID).Msg("no se pudo publicar el evento")
	}
}

func validateKey(orgID, id string) error {
	if err := domain.ValidateID("org_id", orgID); err != nil {
		return err
	}
	return domain.ValidateID("id", id)
}

func startSpan(ctx context.Context, name, orgID, id string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(attribute.String("org_id", orgID))
	if id != "" {
		span.SetAttributes(attribute.String("work_order_id", id))
	}
	return ctx, span
}

func endSpanErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
