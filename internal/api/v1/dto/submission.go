package dto

import (
	"encoding/json"
	"time"
)

type SubmissionResponseDTO struct {
	ID                string          `json:"id"`
	FormID            string          `json:"form_id"`
	FileSubmissionID  string          `json:"file_submission_id"`
	Data              json.RawMessage `json:"data"`
	VideoURL          string          `json:"video_url"`
	Status            string          `json:"status"`
	Transcript        *string         `json:"transcript,omitempty"`
	Summary           *string         `json:"summary,omitempty"`
	VideoSummary      *string         `json:"video_summary,omitempty"`
	JSONResultURL     *string         `json:"json_result_url,omitempty"`
	MarkdownResultURL *string         `json:"markdown_result_url,omitempty"`
	FilesSize         int64           `json:"files_size"`
	ErrorMessage      *string         `json:"error_message,omitempty"`
	ProcessedAt       *time.Time      `json:"processed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

type SubmissionDeleteManyDTO struct {
	IDs []string `json:"ids" minItems:"1" maxItems:"500"`
}

type SubmissionDeleteManyResponseDTO struct {
	Deleted int `json:"deleted"`
}

type VideoIntelligenceResponseDTO struct {
	Triggered bool `json:"triggered"`
}

// UploadURLRequestDTO asks for a presigned upload slot on a public form.
type UploadURLRequestDTO struct {
	Filename string `json:"filename,omitempty" maxLength:"255"`
}

type UploadURLResponseDTO struct {
	UploadURL        string    `json:"uploadUrl"`
	UploadPath       string    `json:"uploadPath"`
	FileSubmissionID string    `json:"fileSubmissionId"`
	ExpiresAt        time.Time `json:"expiresAt"`
}

// IntakeRequestDTO is an end-user submission after the video has been uploaded.
type IntakeRequestDTO struct {
	FileSubmissionID string          `json:"fileSubmissionId" format:"uuid"`
	UploadPath       string          `json:"uploadPath" minLength:"1"`
	Data             json.RawMessage `json:"data,omitempty"`
}

type IntakeResponseDTO struct {
	SubmissionID string `json:"submissionId"`
	Status       string `json:"status"`
}
