package repository

import (
	"context"
	"errors"
	"fmt"

	"intakeflow/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// usageColumns maps resources to their counter columns. Only these names are ever
// interpolated into SQL.
var usageColumns = map[model.Resource]string{
	model.ResourceStorageBytes:       "storage_used_bytes",
	model.ResourceAudioMinutes:       "audio_minutes_transcribed",
	model.ResourceVideoMinutes:       "video_minutes_used",
	model.ResourceFormsCreated:       "forms_created_count",
	model.ResourceSubmissionsCreated: "submissions_count",
}

// UsageRepository holds the per-user cumulative counters.
type UsageRepository interface {
	// Adjust applies col = col + delta in a single statement; negative results are clamped to 0.
	// Returns ErrNoRows when the user has no usage row.
	Adjust(ctx context.Context, userID string, resource model.Resource, delta float64) error
	// GetByUserID returns nil, nil when the user has no usage row.
	GetByUserID(ctx context.Context, userID string) (*model.Usage, error)
	// Ensure creates the usage row if it does not exist yet.
	Ensure(ctx context.Context, userID string, subscriptionID *string) error
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

func (r *usageRepo) Adjust(ctx context.Context, userID string, resource model.Resource, delta float64) error {
	col, ok := usageColumns[resource]
	if !ok {
		return fmt.Errorf("unknown usage resource %q", resource)
	}
	q := fmt.Sprintf(`
		UPDATE usage
		SET %[1]s = GREATEST(0, %[1]s + $2),
		    updated_at = NOW()
		WHERE user_id = $1
	`, col)
	var arg any = delta
	if resource.IsCount() {
		arg = int64(delta)
	}
	tag, err := r.pool.Exec(ctx, q, userID, arg)
	if err != nil {
		return fmt.Errorf("adjusting %s for user %s: %w", col, userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

func (r *usageRepo) GetByUserID(ctx context.Context, userID string) (*model.Usage, error) {
	const q = `
		SELECT user_id, subscription_id, storage_used_bytes,
		       audio_minutes_transcribed::float8, video_minutes_used::float8,
		       forms_created_count, submissions_count, created_at, updated_at
		FROM usage
		WHERE user_id = $1
	`
	var u model.Usage
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&u.UserID,
		&u.SubscriptionID,
		&u.StorageUsedBytes,
		&u.AudioMinutesTranscribed,
		&u.VideoMinutesUsed,
		&u.FormsCreatedCount,
		&u.SubmissionsCount,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch usage for user %s: %w", userID, err)
	}
	return &u, nil
}

func (r *usageRepo) Ensure(ctx context.Context, userID string, subscriptionID *string) error {
	const q = `
		INSERT INTO usage (user_id, subscription_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, q, userID, subscriptionID); err != nil {
		return fmt.Errorf("ensuring usage row for user %s: %w", userID, err)
	}
	return nil
}
