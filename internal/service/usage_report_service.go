package service

import (
	"context"
	"errors"

	"intakeflow/internal/idempotency"
	"intakeflow/internal/model"

	"github.com/rs/zerolog"
)

const usageReportScope = "usage_report"

// UsageReport is what the AI workflow reports after processing one submission.
type UsageReport struct {
	UserID           string
	AudioMinutesUsed float64
	StorageBytes     int64
	VideoMinutesUsed float64
}

// UsageReportService applies usage reported by the workflow through the internal side channel.
type UsageReportService interface {
	// Report applies the reported increments plus one submissions increment.
	// A repeated idempotencyKey is acknowledged without applying anything; applied is then false.
	Report(ctx context.Context, report UsageReport, idempotencyKey string) (applied bool, err error)
}

type usageReportService struct {
	usageSvc UsageService
	store    idempotency.Store
	logger   zerolog.Logger
}

func NewUsageReportService(usageSvc UsageService, store idempotency.Store, logger zerolog.Logger) UsageReportService {
	if store == nil {
		store = idempotency.NoopStore{}
	}
	return &usageReportService{
		usageSvc: usageSvc,
		store:    store,
		logger:   logger.With().Str("service", "UsageReportService").Logger(),
	}
}

func (s *usageReportService) Report(ctx context.Context, r UsageReport, idempotencyKey string) (bool, error) {
	if r.AudioMinutesUsed < 0 || r.StorageBytes < 0 || r.VideoMinutesUsed < 0 {
		return false, ErrInvalidAmount
	}
	log := s.logger.With().Str("user_id", r.UserID).Logger()

	if idempotencyKey != "" {
		claimed, err := s.store.Claim(ctx, usageReportScope, idempotencyKey)
		if err != nil {
			log.Error().Err(err).Msg("Idempotency store unavailable")
			return false, err
		}
		if !claimed {
			log.Info().Str("idempotency_key", idempotencyKey).Msg("Duplicate usage report ignored")
			return false, nil
		}
	}

	// The submissions increment goes first; a missing usage row fails here before anything is applied.
	if err := s.usageSvc.Increment(ctx, r.UserID, model.ResourceSubmissionsCreated, 1); err != nil {
		s.release(ctx, idempotencyKey)
		return false, err
	}

	var errs []error
	if r.AudioMinutesUsed > 0 {
		if err := s.usageSvc.Increment(ctx, r.UserID, model.ResourceAudioMinutes, r.AudioMinutesUsed); err != nil {
			errs = append(errs, err)
		}
	}
	if r.StorageBytes > 0 {
		if err := s.usageSvc.Increment(ctx, r.UserID, model.ResourceStorageBytes, float64(r.StorageBytes)); err != nil {
			errs = append(errs, err)
		}
	}
	if r.VideoMinutesUsed > 0 {
		if err := s.usageSvc.Increment(ctx, r.UserID, model.ResourceVideoMinutes, r.VideoMinutesUsed); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		// Part of the report is applied; keep the claim so a retry does not double count.
		log.Error().Err(errors.Join(errs...)).Msg("Usage report partially applied")
		return true, errors.Join(errs...)
	}

	log.Info().
		Float64("audio_minutes", r.AudioMinutesUsed).
		Int64("storage_bytes", r.StorageBytes).
		Float64("video_minutes", r.VideoMinutesUsed).
		Msg("Usage report applied")
	return true, nil
}

func (s *usageReportService) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Release(ctx, usageReportScope, key); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to release idempotency key")
	}
}
