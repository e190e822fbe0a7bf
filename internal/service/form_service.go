package service

import (
	"context"
	"errors"
	"fmt"

	"intakeflow/internal/model"
	"intakeflow/internal/repository"

	"github.com/rs/zerolog"
)

// FormUpdate carries the optional fields of a form edit.
type FormUpdate struct {
	Name        *string
	Description *string
	Status      *model.FormStatus
}

type FormService interface {
	// CreateForm returns a non-nil QuotaResult and no form when the forms quota denies creation.
	CreateForm(ctx context.Context, userID, name, description string) (*model.Form, *QuotaResult, error)
	GetForm(ctx context.Context, userID, formID string) (*model.Form, error)
	ListForms(ctx context.Context, userID string, limit, offset int) ([]model.Form, error)
	UpdateForm(ctx context.Context, userID, formID string, upd FormUpdate) (*model.Form, error)
	// DeleteForm removes the form with all of its submissions and refunds their storage.
	DeleteForm(ctx context.Context, userID, formID string) error
}

type formService struct {
	repo          repository.FormRepository
	quotaSvc      QuotaService
	usageSvc      UsageService
	submissionSvc SubmissionService
	logger        zerolog.Logger
}

func NewFormService(repo repository.FormRepository, quotaSvc QuotaService, usageSvc UsageService, submissionSvc SubmissionService, logger zerolog.Logger) FormService {
	return &formService{
		repo:          repo,
		quotaSvc:      quotaSvc,
		usageSvc:      usageSvc,
		submissionSvc: submissionSvc,
		logger:        logger.With().Str("service", "FormService").Logger(),
	}
}

func (s *formService) CreateForm(ctx context.Context, userID, name, description string) (*model.Form, *QuotaResult, error) {
	quota, err := s.quotaSvc.CheckQuota(ctx, userID, model.ResourceFormsCreated)
	if err != nil {
		return nil, nil, err
	}
	if !quota.Allowed {
		return nil, quota, nil
	}

	f := &model.Form{
		UserID:      userID,
		Name:        name,
		Description: description,
		Status:      model.FormStatusActive,
	}
	if err := s.repo.CreateForm(ctx, f); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create form")
		return nil, nil, err
	}

	if err := s.usageSvc.Increment(ctx, userID, model.ResourceFormsCreated, 1); err != nil {
		// The form exists; a missed increment only under-counts.
		s.logger.Error().Err(err).Str("user_id", userID).Str("form_id", f.ID).Msg("Failed to record form creation in usage")
	}
	return f, nil, nil
}

func (s *formService) GetForm(ctx context.Context, userID, formID string) (*model.Form, error) {
	f, err := s.repo.GetFormByID(ctx, formID)
	if err != nil {
		s.logger.Error().Err(err).Str("form_id", formID).Msg("Failed to get form")
		return nil, err
	}
	if f == nil {
		return nil, ErrFormNotFound
	}
	if f.UserID != userID {
		return nil, ErrForbidden
	}
	return f, nil
}

func (s *formService) ListForms(ctx context.Context, userID string, limit, offset int) ([]model.Form, error) {
	forms, err := s.repo.GetFormsByUserID(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list forms")
		return nil, err
	}
	return forms, nil
}

func (s *formService) UpdateForm(ctx context.Context, userID, formID string, upd FormUpdate) (*model.Form, error) {
	f, err := s.GetForm(ctx, userID, formID)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		f.Name = *upd.Name
	}
	if upd.Description != nil {
		f.Description = *upd.Description
	}
	if upd.Status != nil {
		f.Status = *upd.Status
	}
	if err := s.repo.UpdateForm(ctx, f); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrFormNotFound
		}
		s.logger.Error().Err(err).Str("form_id", formID).Msg("Failed to update form")
		return nil, err
	}
	return f, nil
}

func (s *formService) DeleteForm(ctx context.Context, userID, formID string) error {
	if _, err := s.GetForm(ctx, userID, formID); err != nil {
		return err
	}
	if _, err := s.submissionSvc.DeleteAllForForm(ctx, userID, formID); err != nil {
		return fmt.Errorf("deleting submissions of form %s: %w", formID, err)
	}
	deleted, err := s.repo.DeleteForm(ctx, formID)
	if err != nil {
		s.logger.Error().Err(err).Str("form_id", formID).Msg("Failed to delete form")
		return err
	}
	if !deleted {
		return ErrFormNotFound
	}
	return nil
}
