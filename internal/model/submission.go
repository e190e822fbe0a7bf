package model

import (
	"encoding/json"
	"time"
)

type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "pending"
	SubmissionStatusCompleted SubmissionStatus = "completed"
	SubmissionStatusFailed    SubmissionStatus = "failed"
)

// Submission is one end-user response to a form: contact data plus an uploaded video.
// The derived artifacts are filled in asynchronously by the AI workflow.
type Submission struct {
	ID                string           `db:"id" json:"id"`
	FormID            string           `db:"form_id" json:"form_id"`
	UserID            string           `db:"user_id" json:"user_id"`
	FileSubmissionID  string           `db:"file_submission_id" json:"file_submission_id"`
	Data              json.RawMessage  `db:"data" json:"data"`
	VideoURL          string           `db:"video_url" json:"video_url"`
	VideoPath         string           `db:"video_path" json:"video_path"`
	Transcript        *string          `db:"transcript" json:"transcript,omitempty"`
	Summary           *string          `db:"summary" json:"summary,omitempty"`
	VideoSummary      *string          `db:"video_summary" json:"video_summary,omitempty"`
	JSONResultURL     *string          `db:"json_result_url" json:"json_result_url,omitempty"`
	MarkdownResultURL *string          `db:"markdown_result_url" json:"markdown_result_url,omitempty"`
	FilesSize         int64            `db:"files_size" json:"files_size"`
	Status            SubmissionStatus `db:"status" json:"status"`
	ErrorMessage      *string          `db:"error_message" json:"error_message,omitempty"`
	ProcessedAt       *time.Time       `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// ResultURLs returns the non-empty artifact URLs produced by the workflow.
func (s *Submission) ResultURLs() []string {
	var urls []string
	for _, u := range []*string{s.JSONResultURL, s.MarkdownResultURL} {
		if u != nil && *u != "" {
			urls = append(urls, *u)
		}
	}
	return urls
}

// SubmissionResult is the outcome reported by the AI workflow.
type SubmissionResult struct {
	Status            SubmissionStatus
	Transcript        *string
	Summary           *string
	VideoSummary      *string
	JSONResultURL     *string
	MarkdownResultURL *string
	ErrorMessage      *string
}
