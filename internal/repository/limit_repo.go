package repository

import (
	"context"
	"errors"
	"fmt"

	"intakeflow/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LimitRepository reads and writes the per-user ceilings.
type LimitRepository interface {
	// GetByUserID returns nil, nil when the user has no limit row.
	GetByUserID(ctx context.Context, userID string) (*model.Limit, error)
	// Upsert replaces every ceiling of the user's row, creating it when absent.
	Upsert(ctx context.Context, l *model.Limit) error
}

type limitRepo struct {
	pool *pgxpool.Pool
}

// NewLimitRepo creates a new LimitRepository.
func NewLimitRepo(pool *pgxpool.Pool) LimitRepository {
	return &limitRepo{pool: pool}
}

func (r *limitRepo) GetByUserID(ctx context.Context, userID string) (*model.Limit, error) {
	const q = `
		SELECT user_id, subscription_id, storage_limit_bytes, forms_limit, submissions_limit,
		       audio_minutes_limit, video_minutes_limit, video_intelligence_enabled,
		       created_at, updated_at
		FROM limits
		WHERE user_id = $1
	`
	var l model.Limit
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&l.UserID,
		&l.SubscriptionID,
		&l.StorageLimitBytes,
		&l.FormsLimit,
		&l.SubmissionsLimit,
		&l.AudioMinutesLimit,
		&l.VideoMinutesLimit,
		&l.VideoIntelligenceEnabled,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch limits for user %s: %w", userID, err)
	}
	return &l, nil
}

func (r *limitRepo) Upsert(ctx context.Context, l *model.Limit) error {
	const q = `
		INSERT INTO limits (user_id, subscription_id, storage_limit_bytes, forms_limit, submissions_limit,
		                    audio_minutes_limit, video_minutes_limit, video_intelligence_enabled,
		                    created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET subscription_id = EXCLUDED.subscription_id,
		    storage_limit_bytes = EXCLUDED.storage_limit_bytes,
		    forms_limit = EXCLUDED.forms_limit,
		    submissions_limit = EXCLUDED.submissions_limit,
		    audio_minutes_limit = EXCLUDED.audio_minutes_limit,
		    video_minutes_limit = EXCLUDED.video_minutes_limit,
		    video_intelligence_enabled = EXCLUDED.video_intelligence_enabled,
		    updated_at = NOW()
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, q,
		l.UserID,
		l.SubscriptionID,
		l.StorageLimitBytes,
		l.FormsLimit,
		l.SubmissionsLimit,
		l.AudioMinutesLimit,
		l.VideoMinutesLimit,
		l.VideoIntelligenceEnabled,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting limits for user %s: %w", l.UserID, err)
	}
	return nil
}
