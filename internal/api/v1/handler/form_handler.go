package handler

import (
	"context"

	"intakeflow/internal/api/v1/dto"
	"intakeflow/internal/api/v1/operation"
	"intakeflow/internal/model"
	"intakeflow/internal/service"

	"github.com/rs/zerolog"
)

// FormHandler handles form endpoints of the dashboard
type FormHandler struct {
	formService       service.FormService
	submissionService service.SubmissionService
	logger            zerolog.Logger
}

func NewFormHandler(formService service.FormService, submissionService service.SubmissionService, logger zerolog.Logger) *FormHandler {
	return &FormHandler{formService: formService, submissionService: submissionService, logger: logger}
}

func (h *FormHandler) CreateForm(ctx context.Context, input *operation.CreateFormInput) (*operation.CreateFormOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	f, quota, err := h.formService.CreateForm(ctx, userID, input.Body.Name, input.Body.Description)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to create form")
	}
	if quota != nil {
		return nil, quotaDenied(quota)
	}
	return &operation.CreateFormOutput{Body: toFormDTO(f)}, nil
}

func (h *FormHandler) ListForms(ctx context.Context, input *operation.ListFormsInput) (*operation.ListFormsOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	forms, err := h.formService.ListForms(ctx, userID, input.Limit, input.Offset)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to list forms")
	}
	out := make([]dto.FormResponseDTO, 0, len(forms))
	for i := range forms {
		out = append(out, toFormDTO(&forms[i]))
	}
	return &operation.ListFormsOutput{Body: out}, nil
}

func (h *FormHandler) GetForm(ctx context.Context, input *operation.GetFormInput) (*operation.GetFormOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireUUID(input.FormID, "Form"); err != nil {
		return nil, err
	}
	f, err := h.formService.GetForm(ctx, userID, input.FormID)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to get form")
	}
	return &operation.GetFormOutput{Body: toFormDTO(f)}, nil
}

func (h *FormHandler) UpdateForm(ctx context.Context, input *operation.UpdateFormInput) (*operation.UpdateFormOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireUUID(input.FormID, "Form"); err != nil {
		return nil, err
	}
	upd := service.FormUpdate{Name: input.Body.Name, Description: input.Body.Description}
	if input.Body.Status != nil {
		st := model.FormStatus(*input.Body.Status)
		upd.Status = &st
	}
	f, err := h.formService.UpdateForm(ctx, userID, input.FormID, upd)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to update form")
	}
	return &operation.UpdateFormOutput{Body: toFormDTO(f)}, nil
}

// DeleteForm removes a form together with its submissions and their stored files
func (h *FormHandler) DeleteForm(ctx context.Context, input *operation.DeleteFormInput) (*operation.DeleteFormOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireUUID(input.FormID, "Form"); err != nil {
		return nil, err
	}
	if err := h.formService.DeleteForm(ctx, userID, input.FormID); err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to delete form")
	}
	return &operation.DeleteFormOutput{}, nil
}

func (h *FormHandler) ListFormSubmissions(ctx context.Context, input *operation.ListFormSubmissionsInput) (*operation.ListSubmissionsOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireUUID(input.FormID, "Form"); err != nil {
		return nil, err
	}
	subs, err := h.submissionService.ListByForm(ctx, userID, input.FormID, input.Limit, input.Offset)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to list submissions")
	}
	return &operation.ListSubmissionsOutput{Body: toSubmissionDTOs(subs)}, nil
}
