package operation

import "intakeflow/internal/api/v1/dto"

// Internal workflow callbacks

type ReportUsageInput struct {
	IdempotencyKey string             `header:"Idempotency-Key" doc:"Deduplicates retried reports"`
	Body           dto.UsageReportDTO `json:"body"`
}

type ReportUsageOutput struct {
	Body dto.UsageReportResponseDTO `json:"body"`
}

type RecordResultInput struct {
	SubmissionID string                  `path:"submissionId" doc:"Submission ID"`
	Body         dto.SubmissionResultDTO `json:"body"`
}

type RecordResultOutput struct {
	Body dto.SubmissionResponseDTO `json:"body"`
}
