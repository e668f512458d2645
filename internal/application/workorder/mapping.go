package workorder

import (
	"github.com/jhoicas/mantenimiento-api/internal/application/dto"
	"github.com/jhoicas/mantenimiento-api/internal/domain/entity"
)

// CreateInputFromRequest adapta el body HTTP; orgID y createdBy vienen del token.
func CreateInputFromRequest(orgID, createdBy string, in dto.CreateWorkOrderRequest) CreateInput {
	return CreateInput{
		OrgID:          orgID,
		CreatedBy:      createdBy,
		Title:          in.Title,
		Description:    in.Description,
		Priority:       in.Priority,
		AssetID:        in.AssetID,
		TemplateID:     in.TemplateID,
		AssigneeID:     in.AssigneeID,
		AssigneeRole:   in.AssigneeRole,
		ScheduledStart: in.ScheduledStart,
		EstimatedEnd:   in.EstimatedEnd,
		Data:           in.Data,
	}
}

// PatchFromRequest adapta el body de edición.
func PatchFromRequest(in dto.PatchWorkOrderRequest) entity.WorkOrderPatch {
	return entity.WorkOrderPatch{
		Title:          in.Title,
		Description:    in.Description,
		Priority:       in.Priority,
		ScheduledStart: in.ScheduledStart,
		EstimatedEnd:   in.EstimatedEnd,
		Data:           in.Data,
	}
}

// ToResponse convierte la orden al DTO de respuesta.
func ToResponse(wo *entity.WorkOrder) dto.WorkOrderResponse {
	history := make([]dto.HistoryEntryResponse, 0, len(wo.History))
	for _, h := range wo.History {
		var from *string
		if h.From != nil {
			s := string(*h.From)
			from = &s
		}
		history = append(history, dto.HistoryEntryResponse{
			UserID: h.UserID, From: from, To: string(h.To), Note: h.Note, At: h.At,
		})
	}
	return dto.WorkOrderResponse{
		ID:          wo.ID,
		OrgSeq:      wo.OrgSeq,
		State:       string(wo.State),
		AssigneeID:  wo.AssigneeID,
		Title:       wo.Title,
		Description: wo.Description,
		Priority:    wo.Priority,
		AssetID:     wo.AssetID,
		TemplateID:  wo.TemplateID,
		Data:        wo.Data,
		History:     history,
		Dates: dto.WorkOrderDatesResponse{
			Created:        wo.Dates.Created,
			Start:          wo.Dates.Start,
			End:            wo.Dates.End,
			AssignedAt:     wo.Dates.AssignedAt,
			ScheduledStart: wo.Dates.ScheduledStart,
			EstimatedEnd:   wo.Dates.EstimatedEnd,
			ApprovedAt:     wo.Dates.ApprovedAt,
		},
		CreatedBy: wo.CreatedBy,
		UpdatedAt: wo.UpdatedAt,
	}
}

// ToResponses convierte una lista.
func ToResponses(list []*entity.WorkOrder) []dto.WorkOrderResponse {
	out := make([]dto.WorkOrderResponse, 0, len(list))
	for _, wo := range list {
		out = append(out, ToResponse(wo))
	}
	return out
}
