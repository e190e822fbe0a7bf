package handler

import (
	"context"

	"intakeflow/internal/api/v1/dto"
	"intakeflow/internal/api/v1/operation"
	"intakeflow/internal/model"
	"intakeflow/internal/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// InternalHandler serves the callbacks of the AI workflow.
type InternalHandler struct {
	usageReports service.UsageReportService
	submissions  service.SubmissionService
	validate     *validator.Validate
	logger       zerolog.Logger
}

func NewInternalHandler(usageReports service.UsageReportService, submissions service.SubmissionService, validate *validator.Validate, logger zerolog.Logger) *InternalHandler {
	return &InternalHandler{usageReports: usageReports, submissions: submissions, validate: validate, logger: logger}
}

// ReportUsage applies the minutes and bytes consumed by one workflow run.
func (h *InternalHandler) ReportUsage(ctx context.Context, input *operation.ReportUsageInput) (*operation.ReportUsageOutput, error) {
	if err := h.validate.Struct(&input.Body); err != nil {
		return nil, huma.Error400BadRequest("Validation failed: " + err.Error())
	}
	report := service.UsageReport{UserID: input.Body.UserID}
	if input.Body.AudioMinutesUsed != nil {
		report.AudioMinutesUsed = *input.Body.AudioMinutesUsed
	}
	if input.Body.StorageBytes != nil {
		report.StorageBytes = *input.Body.StorageBytes
	}
	if input.Body.VideoMinutesUsed != nil {
		report.VideoMinutesUsed = *input.Body.VideoMinutesUsed
	}

	applied, err := h.usageReports.Report(ctx, report, input.IdempotencyKey)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to record usage")
	}
	return &operation.ReportUsageOutput{Body: dto.UsageReportResponseDTO{Applied: applied}}, nil
}

// RecordResult stores transcript, summaries and artifact links for a processed submission.
func (h *InternalHandler) RecordResult(ctx context.Context, input *operation.RecordResultInput) (*operation.RecordResultOutput, error) {
	if err := requireUUID(input.SubmissionID, "Submission"); err != nil {
		return nil, err
	}
	if err := h.validate.Struct(&input.Body); err != nil {
		return nil, huma.Error400BadRequest("Validation failed: " + err.Error())
	}
	b := input.Body
	sub, err := h.submissions.RecordResult(ctx, input.SubmissionID, &model.SubmissionResult{
		Status:            model.SubmissionStatus(b.Status),
		Transcript:        b.Transcript,
		Summary:           b.Summary,
		VideoSummary:      b.VideoSummary,
		JSONResultURL:     b.JSONResultURL,
		MarkdownResultURL: b.MarkdownResultURL,
		ErrorMessage:      b.ErrorMessage,
	})
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to record submission result")
	}
	return &operation.RecordResultOutput{Body: toSubmissionDTO(sub)}, nil
}
