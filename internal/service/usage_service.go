package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"intakeflow/internal/model"
	"intakeflow/internal/repository"

	"github.com/rs/zerolog"
)

// UsageService is the ledger of cumulative per-user consumption.
// Every mutation is a single relative update, so concurrent callers never lose each other's writes.
type UsageService interface {
	Increment(ctx context.Context, userID string, resource model.Resource, amount float64) error
	// Decrement clamps at zero.
	Decrement(ctx context.Context, userID string, resource model.Resource, amount float64) error
	Read(ctx context.Context, userID string) (*model.Usage, error)
	Ensure(ctx context.Context, userID string, subscriptionID *string) error
}

type usageService struct {
	repo   repository.UsageRepository
	logger zerolog.Logger
}

func NewUsageService(repo repository.UsageRepository, logger zerolog.Logger) UsageService {
	return &usageService{
		repo:   repo,
		logger: logger.With().Str("service", "UsageService").Logger(),
	}
}

func validateAmount(resource model.Resource, amount float64) error {
	if !resource.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidResource, resource)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	if resource.IsCount() && amount != math.Trunc(amount) {
		return fmt.Errorf("%w: %s takes whole units, got %v", ErrInvalidAmount, resource, amount)
	}
	return nil
}

func (s *usageService) Increment(ctx context.Context, userID string, resource model.Resource, amount float64) error {
	return s.adjust(ctx, userID, resource, amount)
}

func (s *usageService) Decrement(ctx context.Context, userID string, resource model.Resource, amount float64) error {
	return s.adjust(ctx, userID, resource, -amount)
}

func (s *usageService) adjust(ctx context.Context, userID string, resource model.Resource, delta float64) error {
	if err := validateAmount(resource, math.Abs(delta)); err != nil {
		return err
	}
	if err := s.repo.Adjust(ctx, userID, resource, delta); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return ErrUserNotProvisioned
		}
		s.logger.Error().Err(err).Str("user_id", userID).Str("resource", string(resource)).Float64("delta", delta).Msg("Failed to adjust usage")
		return err
	}
	s.logger.Debug().Str("user_id", userID).Str("resource", string(resource)).Float64("delta", delta).Msg("Usage adjusted")
	return nil
}

func (s *usageService) Read(ctx context.Context, userID string) (*model.Usage, error) {
	u, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to read usage")
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotProvisioned
	}
	return u, nil
}

func (s *usageService) Ensure(ctx context.Context, userID string, subscriptionID *string) error {
	if err := s.repo.Ensure(ctx, userID, subscriptionID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to ensure usage row")
		return err
	}
	return nil
}
