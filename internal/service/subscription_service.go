package service

import (
	"context"
	"errors"
	"time"

	"intakeflow/internal/model"
	"intakeflow/internal/repository"

	"github.com/rs/zerolog"
)

// SubscriptionService keeps the local subscription in step with the payment processor
// and provisions limits when a paid plan becomes active.
type SubscriptionService interface {
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*model.Subscription, error)
	// SyncStripeSubscription stores the processor state and, for an active paid plan, re-provisions limits.
	SyncStripeSubscription(ctx context.Context, sub *model.Subscription) (*model.Subscription, error)
	// UpdateStatus leaves limits untouched; the quota guard denies any non-active status.
	UpdateStatus(ctx context.Context, stripeSubscriptionID string, status model.SubscriptionStatus) error
	MarkPaid(ctx context.Context, stripeSubscriptionID string, at time.Time) error
}

type subscriptionService struct {
	repo         repository.SubscriptionRepository
	provisioning ProvisioningService
	logger       zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(repo repository.SubscriptionRepository, provisioning ProvisioningService, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		repo:         repo,
		provisioning: provisioning,
		logger:       logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

func (s *subscriptionService) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription")
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) GetByStripeCustomerID(ctx context.Context, customerID string) (*model.Subscription, error) {
	sub, err := s.repo.GetByStripeCustomerID(ctx, customerID)
	if err != nil {
		s.logger.Error().Err(err).Str("stripe_customer_id", customerID).Msg("Failed to fetch subscription by customer")
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) SyncStripeSubscription(ctx context.Context, sub *model.Subscription) (*model.Subscription, error) {
	if sub.PlanKey == "" {
		sub.PlanKey = string(sub.Plan)
	}
	stored, err := s.repo.UpsertStripeSubscription(ctx, sub)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", sub.UserID).Str("plan", string(sub.Plan)).Str("status", string(sub.Status)).Msg("Failed to upsert stripe subscription")
		return nil, err
	}
	if !stored.IsActive() {
		return stored, nil
	}
	if _, ok := PlanConfig(string(stored.Plan)); !ok {
		return stored, nil
	}
	if _, err := s.provisioning.ProvisionLimits(ctx, stored.UserID, string(stored.Plan), &stored.ID); err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *subscriptionService) UpdateStatus(ctx context.Context, stripeSubscriptionID string, status model.SubscriptionStatus) error {
	if err := s.repo.UpdateStatus(ctx, stripeSubscriptionID, status); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			s.logger.Warn().Str("subscription_id", stripeSubscriptionID).Str("status", string(status)).Msg("Status update for unknown subscription")
			return nil
		}
		s.logger.Error().Err(err).Str("subscription_id", stripeSubscriptionID).Msg("Failed to update subscription status")
		return err
	}
	return nil
}

func (s *subscriptionService) MarkPaid(ctx context.Context, stripeSubscriptionID string, at time.Time) error {
	if err := s.repo.SetLastBilledAt(ctx, stripeSubscriptionID, at); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			s.logger.Warn().Str("subscription_id", stripeSubscriptionID).Msg("Payment for unknown subscription")
			return nil
		}
		s.logger.Error().Err(err).Str("subscription_id", stripeSubscriptionID).Msg("Failed to record payment")
		return err
	}
	return nil
}
