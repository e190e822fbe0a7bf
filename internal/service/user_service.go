package service

import (
	"context"
	"errors"

	"intakeflow/internal/model"
	"intakeflow/internal/repository"
)

// UsageOverview is what a user sees about their plan and consumption.
// Usage is nil until the account is provisioned.
type UsageOverview struct {
	Subscription *model.Subscription
	Limits       *ResolvedLimits
	Usage        *model.Usage
}

type UserService interface {
	// Create stores the profile and gives a first-time user a free subscription.
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	GetUsageOverview(ctx context.Context, userID string) (*UsageOverview, error)
}

type userService struct {
	userRepo repository.UserRepository
	subRepo  repository.SubscriptionRepository
	limits   LimitService
	usageSvc UsageService
}

func NewUserService(userRepo repository.UserRepository, subRepo repository.SubscriptionRepository, limits LimitService, usageSvc UsageService) UserService {
	return &userService{userRepo: userRepo, subRepo: subRepo, limits: limits, usageSvc: usageSvc}
}

func (s *userService) Create(ctx context.Context, u *model.User) (*model.User, error) {
	if err := s.userRepo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	if err := s.subRepo.EnsureFree(ctx, u.UserID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *userService) GetUsageOverview(ctx context.Context, userID string) (*UsageOverview, error) {
	sub, err := s.subRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	limits, err := s.limits.ResolveLimits(ctx, userID)
	if err != nil {
		return nil, err
	}
	usage, err := s.usageSvc.Read(ctx, userID)
	if err != nil && !errors.Is(err, ErrUserNotProvisioned) {
		return nil, err
	}
	return &UsageOverview{Subscription: sub, Limits: limits, Usage: usage}, nil
}
