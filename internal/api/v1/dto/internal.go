package dto

// UsageReportDTO is posted by the AI workflow after processing a submission.
type UsageReportDTO struct {
	UserID           string   `json:"userId" validate:"required"`
	AudioMinutesUsed *float64 `json:"audioMinutesUsed,omitempty" validate:"omitempty,gte=0"`
	StorageBytes     *int64   `json:"storageBytes,omitempty" validate:"omitempty,gte=0"`
	VideoMinutesUsed *float64 `json:"videoMinutesUsed,omitempty" validate:"omitempty,gte=0"`
}

type UsageReportResponseDTO struct {
	Applied bool `json:"applied"`
}

// SubmissionResultDTO is the workflow's processing outcome for one submission.
type SubmissionResultDTO struct {
	Status            string  `json:"status" validate:"required,oneof=completed failed"`
	Transcript        *string `json:"transcript,omitempty"`
	Summary           *string `json:"summary,omitempty"`
	VideoSummary      *string `json:"videoSummary,omitempty"`
	JSONResultURL     *string `json:"jsonResultUrl,omitempty" validate:"omitempty,url"`
	MarkdownResultURL *string `json:"markdownResultUrl,omitempty" validate:"omitempty,url"`
	ErrorMessage      *string `json:"errorMessage,omitempty"`
}
