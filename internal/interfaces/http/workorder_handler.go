package http

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/mantenimiento-api/internal/application/dto"
	"github.com/jhoicas/mantenimiento-api/internal/application/workorder"
	"github.com/jhoicas/mantenimiento-api/internal/domain"
	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

// workOrderLifecycle operaciones de órdenes que expone la API. Lo implementa *workorder.Lifecycle.
type workOrderLifecycle interface {
	Create(ctx context.Context, in workorder.CreateInput) (*entity.WorkOrder, error)
	FindByID(ctx context.Context, orgID, id string) (*entity.WorkOrder, error)
	List(ctx context.Context, orgID string, filter entity.WorkOrderFilter) ([]*entity.WorkOrder, error)
	Start(ctx context.Context, orgID, id, userID, note string) (*entity.WorkOrder, error)
	SubmitForReview(ctx context.Context, orgID, id, userID, note string) (*entity.WorkOrder, error)
	Approve(ctx context.Context, orgID, id, userID, note string) (*entity.WorkOrder, error)
	Reject(ctx context.Context, orgID, id, userID, note string) (*entity.WorkOrder, error)
	Assign(ctx context.Context, orgID, id, assigneeID, assignedBy, note string) (*entity.WorkOrder, error)
	PatchData(ctx context.Context, orgID, id string, patch entity.WorkOrderPatch) (*entity.WorkOrder, error)
	SoftDelete(ctx context.Context, orgID, id, userID string) error
	Report(ctx context.Context, orgID, id string) ([]byte, error)
}

// memberChecker verifica que el nuevo asignado pertenezca a la organización.
type memberChecker interface {
	IsMember(ctx context.Context, orgID, userID string) (bool, error)
}

// WorkOrderHandler maneja las peticiones HTTP de órdenes de trabajo (protegido).
type WorkOrderHandler struct {
	uc      workOrderLifecycle
	members memberChecker
}

// NewWorkOrderHandler construye el handler.
func NewWorkOrderHandler(uc workOrderLifecycle, members memberChecker) *WorkOrderHandler {
	return &WorkOrderHandler{uc: uc, members: members}
}

// Create godoc
// @Summary      Crear orden de trabajo
// @Description  Con assignee_id (miembro) o assignee_role nace en Asignado; si no, en Creado.
// @Tags         work-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateWorkOrderRequest  true  "assignee_id y assignee_role son excluyentes"
// @Success      201   {object}  dto.WorkOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/work-orders [post]
func (h *WorkOrderHandler) Create(c *fiber.Ctx) error {
	orgID, userID := GetOrgID(c), GetUserID(c)
	if orgID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.CreateWorkOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}
	wo, err := h.uc.Create(c.Context(), workorder.CreateInputFromRequest(orgID, userID, in))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(workorder.ToResponse(wo))
}

// List godoc
// @Summary      Listar órdenes (orgSeq descendente)
// @Tags         work-orders
// @Security     Bearer
// @Produce      json
// @Param        state        query  string  false  "estado"
// @Param        assignee_id  query  string  false  "asignado"
// @Param        limit        query  int     false  "máximo 100"
// @Param        offset       query  int     false  "desplazamiento"
// @Success      200  {array}  dto.WorkOrderResponse
// @Router       /api/work-orders [get]
func (h *WorkOrderHandler) List(c *fiber.Ctx) error {
	orgID := GetOrgID(c)
	if orgID == "" {
		return unauthorized(c)
	}
	q := dto.WorkOrderQuery{
		State:      c.Query("state"),
		AssigneeID: c.Query("assignee_id"),
		PageRequest: dto.PageRequest{
			Limit:  c.QueryInt("limit", 0),
			Offset: c.QueryInt("offset", 0),
		},
	}
	q.DefaultPage()
	if err := validate.Struct(q); err != nil {
		return validationFailed(c, err)
	}
	state := entity.WorkOrderState(q.State)
	if state != "" && !state.IsValid() {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "estado desconocido"})
	}
	list, err := h.uc.List(c.Context(), orgID, entity.WorkOrderFilter{
		State: state, AssigneeID: q.AssigneeID, Limit: q.Limit, Offset: q.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"items": workorder.ToResponses(list),
		"page":  dto.PageResponse{Limit: q.Limit, Offset: q.Offset},
	})
}

// GetByID godoc
// @Summary      Obtener orden
// @Tags         work-orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID"
// @Success      200  {object}  dto.WorkOrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/work-orders/{id} [get]
func (h *WorkOrderHandler) GetByID(c *fiber.Ctx) error {
	orgID := GetOrgID(c)
	if orgID == "" {
		return unauthorized(c)
	}
	wo, err := h.uc.FindByID(c.Context(), orgID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(workorder.ToResponse(wo))
}

// Patch godoc
// @Summary      Editar datos de la orden (no estado ni asignado)
// @Tags         work-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID"
// @Param        body  body  dto.PatchWorkOrderRequest  true  "campos a modificar"
// @Success      200   {object}  dto.WorkOrderResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/work-orders/{id} [patch]
func (h *WorkOrderHandler) Patch(c *fiber.Ctx) error {
	orgID := GetOrgID(c)
	if orgID == "" {
		return unauthorized(c)
	}
	var in dto.PatchWorkOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}
	wo, err := h.uc.PatchData(c.Context(), orgID, c.Params("id"), workorder.PatchFromRequest(in))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(workorder.ToResponse(wo))
}

// Delete godoc
// @Summary      Borrado lógico
// @Tags         work-orders
// @Security     Bearer
// @Param        id   path  string  true  "ID"
// @Success      204
// @Router       /api/work-orders/{id} [delete]
func (h *WorkOrderHandler) Delete(c *fiber.Ctx) error {
	orgID, userID := GetOrgID(c), GetUserID(c)
	if orgID == "" || userID == "" {
		return unauthorized(c)
	}
	if err := h.uc.SoftDelete(c.Context(), orgID, c.Params("id"), userID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type transitionFunc func(ctx context.Context, orgID, id, userID, note string) (*entity.WorkOrder, error)

func (h *WorkOrderHandler) transition(c *fiber.Ctx, op transitionFunc) error {
	orgID, userID := GetOrgID(c), GetUserID(c)
	if orgID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.TransitionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	if err := validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}
	wo, err := op(c.Context(), orgID, c.Params("id"), userID, in.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(workorder.ToResponse(wo))
}

// Start godoc
// @Summary      Iniciar (Asignado → Iniciado). Solo el técnico asignado.
// @Tags         work-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true   "ID"
// @Param        body  body  dto.TransitionRequest  false  "nota"
// @Success      200   {object}  dto.WorkOrderResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/work-orders/{id}/start [post]
func (h *WorkOrderHandler) Start(c *fiber.Ctx) error {
	return h.transition(c, h.uc.Start)
}

// Submit godoc
// @Summary      Enviar a revisión (Iniciado → En revisión)
// @Tags         work-orders
// @Security     Bearer
// @Param        id  path  string  true  "ID"
// @Success      200  {object}  dto.WorkOrderResponse
// @Router       /api/work-orders/{id}/submit [post]
func (h *WorkOrderHandler) Submit(c *fiber.Ctx) error {
	return h.transition(c, h.uc.SubmitForReview)
}

// Approve godoc
// @Summary      Aprobar (En revisión → Terminado)
// @Tags         work-orders
// @Security     Bearer
// @Param        id  path  string  true  "ID"
// @Success      200  {object}  dto.WorkOrderResponse
// @Router       /api/work-orders/{id}/approve [post]
func (h *WorkOrderHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, h.uc.Approve)
}

// Reject godoc
// @Summary      Rechazar (En revisión → Asignado)
// @Tags         work-orders
// @Security     Bearer
// @Param        id  path  string  true  "ID"
// @Success      200  {object}  dto.WorkOrderResponse
// @Router       /api/work-orders/{id}/reject [post]
func (h *WorkOrderHandler) Reject(c *fiber.Ctx) error {
	return h.transition(c, h.uc.Reject)
}

// Assign godoc
// @Summary      Asignar o reasignar técnico (fuerza Asignado)
// @Tags         work-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "ID"
// @Param        body  body  dto.AssignRequest  true  "assignee_id"
// @Success      200   {object}  dto.WorkOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/work-orders/{id}/assign [post]
func (h *WorkOrderHandler) Assign(c *fiber.Ctx) error {
	orgID, userID := GetOrgID(c), GetUserID(c)
	if orgID == "" || userID == "" {
		return unauthorized(c)
	}
	var in dto.AssignRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}
	ok, err := h.members.IsMember(c.Context(), orgID, in.AssigneeID)
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return respondError(c, fmt.Errorf("%w: el asignado no pertenece a la organización", domain.ErrInvalidInput))
	}
	wo, err := h.uc.Assign(c.Context(), orgID, c.Params("id"), in.AssigneeID, userID, in.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(workorder.ToResponse(wo))
}

// Report godoc
// @Summary      Reporte PDF de la orden
// @Tags         work-orders
// @Security     Bearer
// @Produce      application/pdf
// @Param        id  path  string  true  "ID"
// @Success      200  {file}  binary
// @Router       /api/work-orders/{id}/report [get]
func (h *WorkOrderHandler) Report(c *fiber.Ctx) error {
	orgID := GetOrgID(c)
	if orgID == "" {
		return unauthorized(c)
	}
	id := c.Params("id")
	pdf, err := h.uc.Report(c.Context(), orgID, id)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=\"orden-%s.pdf\"", id))
	return c.Send(pdf)
}
