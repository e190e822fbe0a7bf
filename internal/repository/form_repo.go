package repository

import (
	"context"
	"errors"
	"fmt"

	"intakeflow/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FormRepository interface {
	CreateForm(ctx context.Context, f *model.Form) error
	GetFormByID(ctx context.Context, formID string) (*model.Form, error)
	GetFormsByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Form, error)
	UpdateForm(ctx context.Context, f *model.Form) error
	// AdjustSubmissionsCount moves the denormalised per-form counter, never below zero.
	AdjustSubmissionsCount(ctx context.Context, formID string, delta int64) error
	// DeleteForm reports whether a row was removed.
	DeleteForm(ctx context.Context, formID string) (bool, error)
}

type formRepository struct {
	pool *pgxpool.Pool
}

func NewFormRepository(pool *pgxpool.Pool) FormRepository {
	return &formRepository{pool: pool}
}

func (r *formRepository) CreateForm(ctx context.Context, f *model.Form) error {
	query := `
		INSERT INTO forms (user_id, name, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, submissions_count, created_at, updated_at
	`
	if f.Status == "" {
		f.Status = model.FormStatusActive
	}
	err := r.pool.QueryRow(ctx, query, f.UserID, f.Name, f.Description, f.Status).
		Scan(&f.ID, &f.SubmissionsCount, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create form: %w", err)
	}
	return nil
}

func (r *formRepository) GetFormByID(ctx context.Context, formID string) (*model.Form, error) {
	query := `
		SELECT id, user_id, name, description, submissions_count, status, created_at, updated_at
		FROM forms
		WHERE id = $1
	`
	var f model.Form
	err := r.pool.QueryRow(ctx, query, formID).Scan(
		&f.ID,
		&f.UserID,
		&f.Name,
		&f.Description,
		&f.SubmissionsCount,
		&f.Status,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan form row: %w", err)
	}
	return &f, nil
}

func (r *formRepository) GetFormsByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Form, error) {
	query := `
		SELECT id, user_id, name, description, submissions_count, status, created_at, updated_at
		FROM forms
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query forms: %w", err)
	}
	defer rows.Close()

	var forms []model.Form
	for rows.Next() {
		var f model.Form
		if err := rows.Scan(
			&f.ID,
			&f.UserID,
			&f.Name,
			&f.Description,
			&f.SubmissionsCount,
			&f.Status,
			&f.CreatedAt,
			&f.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan form row: %w", err)
		}
		forms = append(forms, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return forms, nil
}

func (r *formRepository) UpdateForm(ctx context.Context, f *model.Form) error {
	query := `
		UPDATE forms
		SET name = $1, description = $2, status = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING user_id, submissions_count, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query, f.Name, f.Description, f.Status, f.ID).
		Scan(&f.UserID, &f.SubmissionsCount, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoRows
		}
		return fmt.Errorf("failed to update form %s: %w", f.ID, err)
	}
	return nil
}

func (r *formRepository) AdjustSubmissionsCount(ctx context.Context, formID string, delta int64) error {
	query := `
		UPDATE forms
		SET submissions_count = GREATEST(0, submissions_count + $2), updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.pool.Exec(ctx, query, formID, delta); err != nil {
		return fmt.Errorf("failed to adjust submissions count of form %s: %w", formID, err)
	}
	return nil
}

func (r *formRepository) DeleteForm(ctx context.Context, formID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM forms WHERE id = $1`, formID)
	if err != nil {
		return false, fmt.Errorf("failed to delete form: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
