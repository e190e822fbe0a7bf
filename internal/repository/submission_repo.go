package repository

import (
	"context"
	"errors"
	"fmt"

	"intakeflow/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeletedSubmission is what a delete hands back for ledger refunds.
type DeletedSubmission struct {
	ID        string
	FormID    string
	UserID    string
	FilesSize int64
}

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, s *model.Submission) error
	GetSubmissionByID(ctx context.Context, submissionID string) (*model.Submission, error)
	GetSubmissionsByIDs(ctx context.Context, submissionIDs []string) ([]model.Submission, error)
	GetSubmissionsByFormID(ctx context.Context, formID string, limit, offset int) ([]model.Submission, error)
	GetSubmissionsByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Submission, error)
	// DeleteSubmissions removes the rows and returns only those actually deleted by this call.
	DeleteSubmissions(ctx context.Context, submissionIDs []string) ([]DeletedSubmission, error)
	// UpdateResult records the workflow outcome. Returns ErrNoRows when the submission does not exist.
	UpdateResult(ctx context.Context, submissionID string, res *model.SubmissionResult) (*model.Submission, error)
}

type submissionRepository struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepository(pool *pgxpool.Pool) SubmissionRepository {
	return &submissionRepository{pool: pool}
}

const submissionColumns = `
	id, form_id, user_id, file_submission_id, data, video_url, video_path,
	transcript, summary, video_summary, json_result_url, markdown_result_url,
	files_size, status, error_message, processed_at, created_at, updated_at
`

func scanSubmission(row pgx.Row, s *model.Submission) error {
	return row.Scan(
		&s.ID,
		&s.FormID,
		&s.UserID,
		&s.FileSubmissionID,
		&s.Data,
		&s.VideoURL,
		&s.VideoPath,
		&s.Transcript,
		&s.Summary,
		&s.VideoSummary,
		&s.JSONResultURL,
		&s.MarkdownResultURL,
		&s.FilesSize,
		&s.Status,
		&s.ErrorMessage,
		&s.ProcessedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
}

func (r *submissionRepository) CreateSubmission(ctx context.Context, s *model.Submission) error {
	query := `
		INSERT INTO submissions (form_id, user_id, file_submission_id, data, video_url, video_path, files_size, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	if s.Status == "" {
		s.Status = model.SubmissionStatusPending
	}
	data := s.Data
	if len(data) == 0 {
		data = []byte(`{}`)
	}
	err := r.pool.QueryRow(ctx, query,
		s.FormID, s.UserID, s.FileSubmissionID, data, s.VideoURL, s.VideoPath, s.FilesSize, s.Status,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *submissionRepository) GetSubmissionByID(ctx context.Context, submissionID string) (*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	var s model.Submission
	if err := scanSubmission(r.pool.QueryRow(ctx, query, submissionID), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan submission row: %w", err)
	}
	return &s, nil
}

func (r *submissionRepository) GetSubmissionsByIDs(ctx context.Context, submissionIDs []string) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = ANY($1::text[]::uuid[])`
	return r.list(ctx, query, submissionIDs)
}

func (r *submissionRepository) GetSubmissionsByFormID(ctx context.Context, formID string, limit, offset int) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + `
		FROM submissions
		WHERE form_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	return r.list(ctx, query, formID, limit, offset)
}

func (r *submissionRepository) GetSubmissionsByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + `
		FROM submissions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	return r.list(ctx, query, userID, limit, offset)
}

func (r *submissionRepository) list(ctx context.Context, query string, args ...any) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := scanSubmission(rows, &s); err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return subs, nil
}

func (r *submissionRepository) DeleteSubmissions(ctx context.Context, submissionIDs []string) ([]DeletedSubmission, error) {
	if len(submissionIDs) == 0 {
		return nil, nil
	}
	query := `
		DELETE FROM submissions
		WHERE id = ANY($1::text[]::uuid[])
		RETURNING id, form_id, user_id, files_size
	`
	rows, err := r.pool.Query(ctx, query, submissionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to delete submissions: %w", err)
	}
	defer rows.Close()

	var deleted []DeletedSubmission
	for rows.Next() {
		var d DeletedSubmission
		if err := rows.Scan(&d.ID, &d.FormID, &d.UserID, &d.FilesSize); err != nil {
			return nil, fmt.Errorf("failed to scan deleted submission: %w", err)
		}
		deleted = append(deleted, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return deleted, nil
}

func (r *submissionRepository) UpdateResult(ctx context.Context, submissionID string, res *model.SubmissionResult) (*model.Submission, error) {
	query := `
		UPDATE submissions
		SET status = $2,
		    transcript = COALESCE($3, transcript),
		    summary = COALESCE($4, summary),
		    video_summary = COALESCE($5, video_summary),
		    json_result_url = COALESCE($6, json_result_url),
		    markdown_result_url = COALESCE($7, markdown_result_url),
		    error_message = $8,
		    processed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + submissionColumns
	var s model.Submission
	err := scanSubmission(r.pool.QueryRow(ctx, query,
		submissionID,
		res.Status,
		res.Transcript,
		res.Summary,
		res.VideoSummary,
		res.JSONResultURL,
		res.MarkdownResultURL,
		res.ErrorMessage,
	), &s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("failed to update submission %s result: %w", submissionID, err)
	}
	return &s, nil
}
