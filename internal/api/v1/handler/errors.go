package handler

import (
	"context"
	"errors"
	"net/http"

	"intakeflow/internal/middleware"
	"intakeflow/internal/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// QuotaDeniedError is a 403 whose body is the quota decision itself, so clients can show the
// limit, current usage and whether an upgrade helps.
type QuotaDeniedError struct {
	service.QuotaResult
}

func (e *QuotaDeniedError) Error() string { return e.Message }

func (e *QuotaDeniedError) GetStatus() int { return http.StatusForbidden }

func quotaDenied(res *service.QuotaResult) error {
	return &QuotaDeniedError{QuotaResult: *res}
}

// Helper to extract user ID from context (injected by auth middleware)
func getUserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return "", huma.Error401Unauthorized("User ID not found in context")
	}
	return userID, nil
}

// requireUUID turns malformed ids into not-found before they reach Postgres.
func requireUUID(id, what string) error {
	if _, err := uuid.Parse(id); err != nil {
		return huma.Error404NotFound(what + " not found")
	}
	return nil
}

// toHTTPError maps service sentinels to status errors. Anything unknown is logged and hidden behind msg.
func toHTTPError(logger zerolog.Logger, err error, msg string) error {
	switch {
	case errors.Is(err, service.ErrFormNotFound):
		return huma.Error404NotFound("Form not found")
	case errors.Is(err, service.ErrSubmissionNotFound):
		return huma.Error404NotFound("Submission not found")
	case errors.Is(err, service.ErrUserNotFound):
		return huma.Error404NotFound("User not found")
	case errors.Is(err, service.ErrUserNotProvisioned):
		return huma.Error404NotFound("User has no provisioned usage")
	case errors.Is(err, service.ErrForbidden):
		return huma.Error403Forbidden("Forbidden")
	case errors.Is(err, service.ErrFormClosed):
		return huma.Error409Conflict("Form is no longer accepting submissions")
	case errors.Is(err, service.ErrInvalidUpload),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidResource),
		errors.Is(err, service.ErrUnknownPlan):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, service.ErrWorkflowUnavailable):
		logger.Error().Err(err).Msg(msg)
		return huma.Error502BadGateway("Processing workflow unavailable")
	}
	logger.Error().Err(err).Msg(msg)
	return huma.Error500InternalServerError(msg)
}
