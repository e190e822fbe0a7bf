package service

import (
	"context"
	"fmt"

	"intakeflow/internal/model"
	"intakeflow/internal/repository"

	"github.com/rs/zerolog"
)

// ProvisioningService materialises a plan's ceilings into the user's limit row.
type ProvisioningService interface {
	// ProvisionLimits replaces every ceiling with the plan's values and ensures the usage row exists.
	// Calling it twice with the same plan leaves the same state.
	ProvisionLimits(ctx context.Context, userID, planKey string, subscriptionID *string) (*model.Limit, error)
}

type provisioningService struct {
	limitRepo repository.LimitRepository
	usageSvc  UsageService
	logger    zerolog.Logger
}

func NewProvisioningService(limitRepo repository.LimitRepository, usageSvc UsageService, logger zerolog.Logger) ProvisioningService {
	return &provisioningService{
		limitRepo: limitRepo,
		usageSvc:  usageSvc,
		logger:    logger.With().Str("service", "ProvisioningService").Logger(),
	}
}

func (s *provisioningService) ProvisionLimits(ctx context.Context, userID, planKey string, subscriptionID *string) (*model.Limit, error) {
	c, ok := PlanConfig(planKey)
	if !ok {
		s.logger.Error().Str("user_id", userID).Str("plan", planKey).Msg("Cannot provision unknown plan")
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, planKey)
	}

	l := &model.Limit{
		UserID:                   userID,
		SubscriptionID:           subscriptionID,
		StorageLimitBytes:        c.StorageBytes,
		FormsLimit:               c.Forms,
		SubmissionsLimit:         c.Submissions,
		AudioMinutesLimit:        c.AudioMinutes,
		VideoMinutesLimit:        c.VideoMinutes,
		VideoIntelligenceEnabled: c.VideoIntelligence,
	}
	if err := s.limitRepo.Upsert(ctx, l); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("plan", planKey).Msg("Failed to upsert limits")
		return nil, fmt.Errorf("provisioning limits: %w", err)
	}
	if err := s.usageSvc.Ensure(ctx, userID, subscriptionID); err != nil {
		return nil, fmt.Errorf("provisioning usage: %w", err)
	}

	s.logger.Info().Str("user_id", userID).Str("plan", planKey).Msg("Limits provisioned")
	return l, nil
}
