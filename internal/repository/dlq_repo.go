package repository

import (
	"context"
	"fmt"

	"intakeflow/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DLQRepository interface {
	// Create stores the message; a redelivery of the same message id is ignored.
	Create(ctx context.Context, message *model.DeadLetterMessage) error
}

type dlqRepository struct {
	pool *pgxpool.Pool
}

func NewDLQRepository(pool *pgxpool.Pool) DLQRepository {
	return &dlqRepository{pool: pool}
}

func (r *dlqRepository) Create(ctx context.Context, message *model.DeadLetterMessage) error {
	query := `
        INSERT INTO dead_letter_messages (subscription_name, message_id, submission_id, payload, attributes, status)
        VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6)
        ON CONFLICT (subscription_name, message_id) DO NOTHING
    `
	_, err := r.pool.Exec(
		ctx,
		query,
		message.SubscriptionName,
		message.MessageID,
		message.SubmissionID,
		message.Payload,
		message.Attributes,
		message.Status,
	)
	if err != nil {
		return fmt.Errorf("creating dead letter message for subscription %s: %w", message.SubscriptionName, err)
	}
	return nil
}
