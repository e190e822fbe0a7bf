package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"intakeflow/internal/repository"

	"github.com/rs/zerolog"
)

// ProcessingService starts optional AI processing on an existing submission.
type ProcessingService interface {
	// TriggerVideoIntelligence checks, in order: active subscription, feature enabled, video minutes left.
	// The first failing check is returned as a denial. A failed trigger is an error.
	TriggerVideoIntelligence(ctx context.Context, userID, submissionID string) (*QuotaResult, error)
}

type processingService struct {
	subRepo        repository.SubscriptionRepository
	limitRepo      repository.LimitRepository
	submissionRepo repository.SubmissionRepository
	usageSvc       UsageService
	workflow       WorkflowClient
	logger         zerolog.Logger
}

func NewProcessingService(
	subRepo repository.SubscriptionRepository,
	limitRepo repository.LimitRepository,
	submissionRepo repository.SubmissionRepository,
	usageSvc UsageService,
	workflow WorkflowClient,
	logger zerolog.Logger,
) ProcessingService {
	return &processingService{
		subRepo:        subRepo,
		limitRepo:      limitRepo,
		submissionRepo: submissionRepo,
		usageSvc:       usageSvc,
		workflow:       workflow,
		logger:         logger.With().Str("service", "ProcessingService").Logger(),
	}
}

func (s *processingService) TriggerVideoIntelligence(ctx context.Context, userID, submissionID string) (*QuotaResult, error) {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubmissionNotFound
	}
	if sub.UserID != userID {
		return nil, ErrForbidden
	}

	subscription, err := s.subRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !entitled(subscription) {
		return s.deny(userID, &QuotaResult{
			Message:         inactiveMessage,
			RequiresUpgrade: true,
			Reason:          ReasonSubscriptionInactive,
		}), nil
	}

	limit, err := s.limitRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit == nil || !limit.VideoIntelligenceEnabled {
		return s.deny(userID, &QuotaResult{
			Message:         "Video intelligence is not included in your plan. Upgrade to Pro to analyse videos.",
			RequiresUpgrade: true,
			Reason:          ReasonFeatureDisabled,
			Feature:         FeatureVideoIntelligence,
		}), nil
	}

	usage, err := s.usageSvc.Read(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotProvisioned) {
			return s.deny(userID, &QuotaResult{
				Message: "Your plan limits are not set up yet. Please try again shortly or contact support.",
				Reason:  ReasonNotProvisioned,
			}), nil
		}
		return nil, err
	}
	if !Allows(usage.VideoMinutesUsed, limit.VideoMinutesLimit) {
		return s.deny(userID, &QuotaResult{
			Current: usage.VideoMinutesUsed,
			Limit:   limit.VideoMinutesLimit,
			Message: fmt.Sprintf("Video minutes limit reached (%s/%d).",
				strconv.FormatFloat(usage.VideoMinutesUsed, 'f', -1, 64), limit.VideoMinutesLimit),
			Reason:  ReasonLimitReached,
			Feature: FeatureVideoIntelligence,
		}), nil
	}

	trigger := WorkflowTrigger{
		SubmissionID:     sub.ID,
		UserID:           userID,
		FormID:           sub.FormID,
		VideoURL:         sub.VideoURL,
		FileSubmissionID: sub.FileSubmissionID,
	}
	if err := s.workflow.TriggerVideoIntelligence(ctx, trigger); err != nil {
		s.logger.Error().Err(err).Str("submission_id", sub.ID).Msg("Failed to trigger video intelligence workflow")
		return nil, fmt.Errorf("triggering video intelligence: %w", err)
	}
	return &QuotaResult{
		Allowed: true,
		Current: usage.VideoMinutesUsed,
		Limit:   limit.VideoMinutesLimit,
	}, nil
}

func (s *processingService) deny(userID string, res *QuotaResult) *QuotaResult {
	res.Allowed = false
	s.logger.Info().Str("user_id", userID).Str("reason", res.Reason).Str("feature", res.Feature).Msg("Video intelligence denied")
	return res
}
