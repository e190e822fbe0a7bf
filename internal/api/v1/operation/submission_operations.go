package operation

import "intakeflow/internal/api/v1/dto"

// Submission Operations

type ListFormSubmissionsInput struct {
	FormID string `path:"formId" doc:"Form ID"`
	Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Number of submissions"`
	Offset int    `query:"offset" default:"0" minimum:"0" doc:"Offset for pagination"`
}

type ListSubmissionsInput struct {
	Limit  int `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Number of submissions"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Offset for pagination"`
}

type ListSubmissionsOutput struct {
	Body []dto.SubmissionResponseDTO `json:"body"`
}

type GetSubmissionInput struct {
	SubmissionID string `path:"submissionId" doc:"Submission ID"`
}

type GetSubmissionOutput struct {
	Body dto.SubmissionResponseDTO `json:"body"`
}

type DeleteSubmissionInput struct {
	SubmissionID string `path:"submissionId" doc:"Submission ID"`
}

type DeleteSubmissionOutput struct {
	// 204 No Content
}

type DeleteSubmissionsInput struct {
	Body dto.SubmissionDeleteManyDTO `json:"body"`
}

type DeleteSubmissionsOutput struct {
	Body dto.SubmissionDeleteManyResponseDTO `json:"body"`
}

type TriggerVideoIntelligenceInput struct {
	SubmissionID string `path:"submissionId" doc:"Submission ID"`
}

type TriggerVideoIntelligenceOutput struct {
	Body dto.VideoIntelligenceResponseDTO `json:"body"`
}

// Public intake operations, called by end-users without an account

type CreateUploadURLInput struct {
	FormID string                  `path:"formId" doc:"Form ID"`
	Body   dto.UploadURLRequestDTO `json:"body"`
}

type CreateUploadURLOutput struct {
	Body dto.UploadURLResponseDTO `json:"body"`
}

type IntakeSubmissionInput struct {
	FormID string               `path:"formId" doc:"Form ID"`
	Body   dto.IntakeRequestDTO `json:"body"`
}

type IntakeSubmissionOutput struct {
	Body dto.IntakeResponseDTO `json:"body"`
}
