package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"intakeflow/internal/model"
	"intakeflow/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Denial reasons.
const (
	ReasonSubscriptionInactive = "subscription_inactive"
	ReasonNotProvisioned       = "not_provisioned"
	ReasonLimitReached         = "limit_reached"
	ReasonFeatureDisabled      = "feature_disabled"
)

// FeatureVideoIntelligence names the gated AI video analysis feature in denials.
const FeatureVideoIntelligence = "videoIntelligence"

// QuotaResult is the outcome of a quota check. A denial is a normal result, not an error.
type QuotaResult struct {
	Allowed         bool    `json:"allowed"`
	Current         float64 `json:"current"`
	Limit           int64   `json:"limit"`
	Message         string  `json:"message,omitempty"`
	RequiresUpgrade bool    `json:"requiresUpgrade"`
	Reason          string  `json:"reason,omitempty"`
	Feature         string  `json:"feature,omitempty"`
}

// QuotaService answers "may this user consume one more unit" questions. It never mutates state.
type QuotaService interface {
	CheckQuota(ctx context.Context, userID string, resource model.Resource) (*QuotaResult, error)
	CheckStorageQuota(ctx context.Context, userID string, additionalBytes int64) (*QuotaResult, error)
}

type quotaService struct {
	subRepo  repository.SubscriptionRepository
	limits   LimitService
	usageSvc UsageService
	logger   zerolog.Logger
}

func NewQuotaService(subRepo repository.SubscriptionRepository, limits LimitService, usageSvc UsageService, logger zerolog.Logger) QuotaService {
	return &quotaService{
		subRepo:  subRepo,
		limits:   limits,
		usageSvc: usageSvc,
		logger:   logger.With().Str("service", "QuotaService").Logger(),
	}
}

var resourceLabels = map[model.Resource]string{
	model.ResourceStorageBytes:       "Storage",
	model.ResourceAudioMinutes:       "Audio minutes",
	model.ResourceVideoMinutes:       "Video minutes",
	model.ResourceFormsCreated:       "Form",
	model.ResourceSubmissionsCreated: "Submission",
}

type quotaState struct {
	sub    *model.Subscription
	limits *ResolvedLimits
	usage  *model.Usage
}

// loadState fetches the three inputs of a check concurrently.
func (s *quotaService) loadState(ctx context.Context, userID string) (*quotaState, error) {
	var st quotaState
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sub, err := s.subRepo.GetByUserID(gctx, userID)
		st.sub = sub
		return err
	})
	g.Go(func() error {
		l, err := s.limits.ResolveLimits(gctx, userID)
		st.limits = l
		return err
	})
	g.Go(func() error {
		u, err := s.usageSvc.Read(gctx, userID)
		if errors.Is(err, ErrUserNotProvisioned) {
			return nil
		}
		st.usage = u
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load quota state")
		return nil, fmt.Errorf("loading quota state: %w", err)
	}
	return &st, nil
}

const inactiveMessage = "Active subscription required. Please upgrade your plan."

// entitled reports whether sub is active on a paid plan. An active free subscription
// carries no quota.
func entitled(sub *model.Subscription) bool {
	if !sub.IsActive() {
		return false
	}
	_, paid := PlanConfig(string(sub.Plan))
	return paid
}

// gate applies the subscription and provisioning preconditions shared by every check.
func (s *quotaService) gate(userID string, st *quotaState) *QuotaResult {
	if !entitled(st.sub) {
		return &QuotaResult{
			Allowed:         false,
			Message:         inactiveMessage,
			RequiresUpgrade: true,
			Reason:          ReasonSubscriptionInactive,
		}
	}
	if st.limits == nil || st.limits.Source != LimitSourceRow || st.usage == nil {
		s.logger.Warn().Str("user_id", userID).Msg("Active subscription without provisioned limits or usage")
		return &QuotaResult{
			Allowed: false,
			Message: "Your plan limits are not set up yet. Please try again shortly or contact support.",
			Reason:  ReasonNotProvisioned,
		}
	}
	return nil
}

func (s *quotaService) CheckQuota(ctx context.Context, userID string, resource model.Resource) (*QuotaResult, error) {
	if !resource.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResource, resource)
	}
	st, err := s.loadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	if denied := s.gate(userID, st); denied != nil {
		s.logDenial(userID, string(resource), denied)
		return denied, nil
	}

	current := st.usage.Value(resource)
	limit := st.limits.Ceilings.For(resource)
	if Allows(current, limit) {
		return &QuotaResult{Allowed: true, Current: current, Limit: limit}, nil
	}
	res := &QuotaResult{
		Allowed:         false,
		Current:         current,
		Limit:           limit,
		Message:         fmt.Sprintf("%s limit reached (%s/%d). Upgrade your plan to continue.", resourceLabels[resource], formatAmount(resource, current), limit),
		RequiresUpgrade: true,
		Reason:          ReasonLimitReached,
	}
	s.logDenial(userID, string(resource), res)
	return res, nil
}

func (s *quotaService) CheckStorageQuota(ctx context.Context, userID string, additionalBytes int64) (*QuotaResult, error) {
	if additionalBytes < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, additionalBytes)
	}
	st, err := s.loadState(ctx, userID)
	if err != nil {
		return nil, err
	}
	if denied := s.gate(userID, st); denied != nil {
		s.logDenial(userID, string(model.ResourceStorageBytes), denied)
		return denied, nil
	}

	current := st.usage.StorageUsedBytes
	limit := st.limits.Ceilings.StorageBytes
	if AllowsAdditional(current, additionalBytes, limit) {
		return &QuotaResult{Allowed: true, Current: float64(current), Limit: limit}, nil
	}
	res := &QuotaResult{
		Allowed:         false,
		Current:         float64(current),
		Limit:           limit,
		Message:         fmt.Sprintf("Storage limit exceeded: %d/%d bytes used, upload needs %d more. Upgrade your plan to continue.", current, limit, additionalBytes),
		RequiresUpgrade: true,
		Reason:          ReasonLimitReached,
	}
	s.logDenial(userID, string(model.ResourceStorageBytes), res)
	return res, nil
}

func (s *quotaService) logDenial(userID, resource string, res *QuotaResult) {
	s.logger.Info().
		Str("user_id", userID).
		Str("resource", resource).
		Str("reason", res.Reason).
		Float64("current", res.Current).
		Int64("limit", res.Limit).
		Msg("Quota denied")
}

func formatAmount(resource model.Resource, v float64) string {
	if resource.IsCount() {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
