package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intakeflow/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository defines methods for accessing subscription data.
// Getters return nil, nil when nothing matches.
type SubscriptionRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.Subscription, error)
	GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error)
	GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*model.Subscription, error)
	// EnsureFree creates an active free subscription for a new user if none exists.
	EnsureFree(ctx context.Context, userID string) error
	// UpsertStripeSubscription writes the processor's view of the user's subscription and returns the stored row.
	UpsertStripeSubscription(ctx context.Context, s *model.Subscription) (*model.Subscription, error)
	UpdateStatus(ctx context.Context, stripeSubscriptionID string, status model.SubscriptionStatus) error
	SetLastBilledAt(ctx context.Context, stripeSubscriptionID string, at time.Time) error
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `
	id, user_id, plan, plan_key, status, stripe_customer_id, stripe_subscription_id,
	current_period_start, current_period_end, last_billed_at, created_at, updated_at
`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Plan,
		&s.PlanKey,
		&s.Status,
		&s.StripeCustomerID,
		&s.StripeSubscriptionID,
		&s.CurrentPeriodStart,
		&s.CurrentPeriodEnd,
		&s.LastBilledAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *subscriptionRepo) GetByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
	s, err := scanSubscription(r.pool.QueryRow(ctx, q, userID))
	if err != nil {
		return nil, fmt.Errorf("fetch subscription for user %s: %w", userID, err)
	}
	return s, nil
}

func (r *subscriptionRepo) GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE stripe_subscription_id = $1`
	s, err := scanSubscription(r.pool.QueryRow(ctx, q, stripeSubscriptionID))
	if err != nil {
		return nil, fmt.Errorf("fetch subscription by stripe id %s: %w", stripeSubscriptionID, err)
	}
	return s, nil
}

func (r *subscriptionRepo) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE stripe_customer_id = $1`
	s, err := scanSubscription(r.pool.QueryRow(ctx, q, stripeCustomerID))
	if err != nil {
		return nil, fmt.Errorf("fetch subscription by stripe customer %s: %w", stripeCustomerID, err)
	}
	return s, nil
}

func (r *subscriptionRepo) EnsureFree(ctx context.Context, userID string) error {
	const q = `
		INSERT INTO subscriptions (user_id, plan, plan_key, status)
		VALUES ($1, 'free', 'free', 'active')
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, q, userID); err != nil {
		return fmt.Errorf("ensuring free subscription for user %s: %w", userID, err)
	}
	return nil
}

func (r *subscriptionRepo) UpsertStripeSubscription(ctx context.Context, s *model.Subscription) (*model.Subscription, error) {
	// COALESCE keeps ids learned from earlier events when a later event does not carry them.
	q := `
		INSERT INTO subscriptions (user_id, plan, plan_key, status, stripe_customer_id, stripe_subscription_id,
		                           current_period_start, current_period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET plan = EXCLUDED.plan,
		    plan_key = EXCLUDED.plan_key,
		    status = EXCLUDED.status,
		    stripe_customer_id = COALESCE(EXCLUDED.stripe_customer_id, subscriptions.stripe_customer_id),
		    stripe_subscription_id = COALESCE(EXCLUDED.stripe_subscription_id, subscriptions.stripe_subscription_id),
		    current_period_start = COALESCE(EXCLUDED.current_period_start, subscriptions.current_period_start),
		    current_period_end = COALESCE(EXCLUDED.current_period_end, subscriptions.current_period_end),
		    updated_at = NOW()
		RETURNING ` + subscriptionColumns
	stored, err := scanSubscription(r.pool.QueryRow(ctx, q,
		s.UserID,
		s.Plan,
		s.PlanKey,
		s.Status,
		s.StripeCustomerID,
		s.StripeSubscriptionID,
		s.CurrentPeriodStart,
		s.CurrentPeriodEnd,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert stripe subscription for user %s: %w", s.UserID, err)
	}
	return stored, nil
}

func (r *subscriptionRepo) UpdateStatus(ctx context.Context, stripeSubscriptionID string, status model.SubscriptionStatus) error {
	const q = `
		UPDATE subscriptions
		SET status = $2, updated_at = NOW()
		WHERE stripe_subscription_id = $1
	`
	tag, err := r.pool.Exec(ctx, q, stripeSubscriptionID, status)
	if err != nil {
		return fmt.Errorf("update status of subscription %s: %w", stripeSubscriptionID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

func (r *subscriptionRepo) SetLastBilledAt(ctx context.Context, stripeSubscriptionID string, at time.Time) error {
	const q = `
		UPDATE subscriptions
		SET last_billed_at = $2, status = 'active', updated_at = NOW()
		WHERE stripe_subscription_id = $1
	`
	tag, err := r.pool.Exec(ctx, q, stripeSubscriptionID, at)
	if err != nil {
		return fmt.Errorf("set last billed for subscription %s: %w", stripeSubscriptionID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}
