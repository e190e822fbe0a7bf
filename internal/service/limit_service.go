package service

import (
	"context"
	"fmt"

	"intakeflow/internal/model"
	"intakeflow/internal/repository"

	"github.com/rs/zerolog"
)

const gib int64 = 1 << 30

// Ceilings is one set of resource caps. Any numeric ceiling may be model.Unlimited.
type Ceilings struct {
	StorageBytes      int64 `json:"storage_bytes"`
	Forms             int64 `json:"forms"`
	Submissions       int64 `json:"submissions"`
	AudioMinutes      int64 `json:"audio_minutes"`
	VideoMinutes      int64 `json:"video_minutes"`
	VideoIntelligence bool  `json:"video_intelligence"`
}

// For returns the ceiling that governs a resource.
func (c Ceilings) For(r model.Resource) int64 {
	switch r {
	case model.ResourceStorageBytes:
		return c.StorageBytes
	case model.ResourceAudioMinutes:
		return c.AudioMinutes
	case model.ResourceVideoMinutes:
		return c.VideoMinutes
	case model.ResourceFormsCreated:
		return c.Forms
	case model.ResourceSubmissionsCreated:
		return c.Submissions
	}
	return 0
}

// Allows reports whether one more unit may be consumed when current units are used.
func Allows(current float64, limit int64) bool {
	if limit == model.Unlimited {
		return true
	}
	return current < float64(limit)
}

// AllowsAdditional reports whether current+additional stays within limit.
func AllowsAdditional(current, additional, limit int64) bool {
	if limit == model.Unlimited {
		return true
	}
	if current > limit {
		return false
	}
	return additional <= limit-current
}

func limitToCeilings(l *model.Limit) Ceilings {
	return Ceilings{
		StorageBytes:      l.StorageLimitBytes,
		Forms:             l.FormsLimit,
		Submissions:       l.SubmissionsLimit,
		AudioMinutes:      l.AudioMinutesLimit,
		VideoMinutes:      l.VideoMinutesLimit,
		VideoIntelligence: l.VideoIntelligenceEnabled,
	}
}

var planConfigs = map[model.Plan]Ceilings{
	model.PlanGo: {
		StorageBytes:      10 * gib,
		Forms:             5,
		Submissions:       20,
		AudioMinutes:      300,
		VideoMinutes:      0,
		VideoIntelligence: false,
	},
	model.PlanPro: {
		StorageBytes:      100 * gib,
		Forms:             model.Unlimited,
		Submissions:       500,
		AudioMinutes:      1500,
		VideoMinutes:      600,
		VideoIntelligence: true,
	},
}

// PlanConfig returns the static ceilings of a paid plan. The free plan has none.
func PlanConfig(planKey string) (Ceilings, bool) {
	c, ok := planConfigs[model.Plan(planKey)]
	return c, ok
}

type LimitSource string

const (
	LimitSourceRow        LimitSource = "limit_row"
	LimitSourcePlanConfig LimitSource = "plan_config"
	LimitSourceNone       LimitSource = "none"
)

// ResolvedLimits is the effective ceiling set for a user and where it came from.
type ResolvedLimits struct {
	Ceilings Ceilings    `json:"ceilings"`
	Source   LimitSource `json:"source"`
}

// LimitService resolves effective ceilings.
type LimitService interface {
	// ResolveLimits prefers the stored row, then the plan table for the subscription's plan.
	// With neither, every ceiling is zero and Source is LimitSourceNone.
	ResolveLimits(ctx context.Context, userID string) (*ResolvedLimits, error)
}

type limitService struct {
	limitRepo repository.LimitRepository
	subRepo   repository.SubscriptionRepository
	logger    zerolog.Logger
}

func NewLimitService(limitRepo repository.LimitRepository, subRepo repository.SubscriptionRepository, logger zerolog.Logger) LimitService {
	return &limitService{
		limitRepo: limitRepo,
		subRepo:   subRepo,
		logger:    logger.With().Str("service", "LimitService").Logger(),
	}
}

func (s *limitService) ResolveLimits(ctx context.Context, userID string) (*ResolvedLimits, error) {
	l, err := s.limitRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolving limits: %w", err)
	}
	if l != nil {
		return &ResolvedLimits{Ceilings: limitToCeilings(l), Source: LimitSourceRow}, nil
	}

	sub, err := s.subRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolving limits: %w", err)
	}
	if sub != nil {
		plan := string(sub.Plan)
		if plan == "" {
			plan = sub.PlanKey
		}
		if c, ok := PlanConfig(plan); ok {
			s.logger.Debug().Str("user_id", userID).Str("plan", plan).Msg("No limit row; using plan config")
			return &ResolvedLimits{Ceilings: c, Source: LimitSourcePlanConfig}, nil
		}
	}
	return &ResolvedLimits{Source: LimitSourceNone}, nil
}
