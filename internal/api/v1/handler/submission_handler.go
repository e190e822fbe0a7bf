package handler

import (
	"context"

	"intakeflow/internal/api/v1/dto"
	"intakeflow/internal/api/v1/operation"
	"intakeflow/internal/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

// SubmissionHandler serves the owner's view of submissions and the public intake endpoints
type SubmissionHandler struct {
	submissionService service.SubmissionService
	processingService service.ProcessingService
	logger            zerolog.Logger
}

func NewSubmissionHandler(submissionService service.SubmissionService, processingService service.ProcessingService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService, processingService: processingService, logger: logger}
}

func (h *SubmissionHandler) ListSubmissions(ctx context.Context, input *operation.ListSubmissionsInput) (*operation.ListSubmissionsOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := h.submissionService.ListByUser(ctx, userID, input.Limit, input.Offset)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to list submissions")
	}
	return &operation.ListSubmissionsOutput{Body: toSubmissionDTOs(subs)}, nil
}

func (h *SubmissionHandler) GetSubmission(ctx context.Context, input *operation.GetSubmissionInput) (*operation.GetSubmissionOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireUUID(input.SubmissionID, "Submission"); err != nil {
		return nil, err
	}
	s, err := h.submissionService.GetSubmission(ctx, userID, input.SubmissionID)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to get submission")
	}
	return &operation.GetSubmissionOutput{Body: toSubmissionDTO(s)}, nil
}

func (h *SubmissionHandler) DeleteSubmission(ctx context.Context, input *operation.DeleteSubmissionInput) (*operation.DeleteSubmissionOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireUUID(input.SubmissionID, "Submission"); err != nil {
		return nil, err
	}
	if err := h.submissionService.Delete(ctx, userID, input.SubmissionID); err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to delete submission")
	}
	return &operation.DeleteSubmissionOutput{}, nil
}

func (h *SubmissionHandler) DeleteSubmissions(ctx context.Context, input *operation.DeleteSubmissionsInput) (*operation.DeleteSubmissionsOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range input.Body.IDs {
		if err := requireUUID(id, "Submission"); err != nil {
			return nil, huma.Error400BadRequest("Invalid submission id: " + id)
		}
	}
	n, err := h.submissionService.DeleteMany(ctx, userID, input.Body.IDs)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to delete submissions")
	}
	return &operation.DeleteSubmissionsOutput{Body: dto.SubmissionDeleteManyResponseDTO{Deleted: n}}, nil
}

// TriggerVideoIntelligence starts AI video analysis when the plan allows it
func (h *SubmissionHandler) TriggerVideoIntelligence(ctx context.Context, input *operation.TriggerVideoIntelligenceInput) (*operation.TriggerVideoIntelligenceOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireUUID(input.SubmissionID, "Submission"); err != nil {
		return nil, err
	}
	quota, err := h.processingService.TriggerVideoIntelligence(ctx, userID, input.SubmissionID)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to trigger video intelligence")
	}
	if quota != nil && !quota.Allowed {
		return nil, quotaDenied(quota)
	}
	return &operation.TriggerVideoIntelligenceOutput{Body: dto.VideoIntelligenceResponseDTO{Triggered: true}}, nil
}

// CreateUploadURL hands an end-user a presigned slot for the video of a new submission
func (h *SubmissionHandler) CreateUploadURL(ctx context.Context, input *operation.CreateUploadURLInput) (*operation.CreateUploadURLOutput, error) {
	if err := requireUUID(input.FormID, "Form"); err != nil {
		return nil, err
	}
	target, quota, err := h.submissionService.CreateUploadURL(ctx, input.FormID, input.Body.Filename)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to create upload URL")
	}
	if quota != nil {
		return nil, quotaDenied(quota)
	}
	return &operation.CreateUploadURLOutput{Body: dto.UploadURLResponseDTO{
		UploadURL:        target.UploadURL,
		UploadPath:       target.UploadPath,
		FileSubmissionID: target.FileSubmissionID,
		ExpiresAt:        target.ExpiresAt,
	}}, nil
}

func (h *SubmissionHandler) IntakeSubmission(ctx context.Context, input *operation.IntakeSubmissionInput) (*operation.IntakeSubmissionOutput, error) {
	if err := requireUUID(input.FormID, "Form"); err != nil {
		return nil, err
	}
	sub, quota, err := h.submissionService.Intake(ctx, service.IntakeRequest{
		FormID:           input.FormID,
		FileSubmissionID: input.Body.FileSubmissionID,
		UploadPath:       input.Body.UploadPath,
		Data:             input.Body.Data,
	})
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to submit form")
	}
	if quota != nil {
		return nil, quotaDenied(quota)
	}
	return &operation.IntakeSubmissionOutput{Body: dto.IntakeResponseDTO{SubmissionID: sub.ID, Status: string(sub.Status)}}, nil
}
