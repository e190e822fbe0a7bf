package handler

import (
	"context"

	"intakeflow/internal/api/v1/dto"
	"intakeflow/internal/api/v1/operation"
	"intakeflow/internal/middleware"
	"intakeflow/internal/model"
	"intakeflow/internal/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

// UserHandler implements Huma-based user operations
type UserHandler struct {
	userService service.UserService
	logger      zerolog.Logger
}

func NewUserHandler(userService service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// CreateUser creates or updates the profile of the authenticated user
func (h *UserHandler) CreateUser(ctx context.Context, input *operation.CreateUserInput) (*operation.CreateUserOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	email := input.Body.Email
	if email == "" {
		email = middleware.EmailFromContext(ctx)
	}
	if email == "" {
		return nil, huma.Error400BadRequest("Email is required")
	}

	created, err := h.userService.Create(ctx, &model.User{UserID: userID, Name: input.Body.Name, Email: email})
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to create user")
	}
	return &operation.CreateUserOutput{Body: toUserDTO(created)}, nil
}

func (h *UserHandler) GetUser(ctx context.Context, _ *operation.GetUserInput) (*operation.GetUserOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	u, err := h.userService.Get(ctx, userID)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to get user")
	}
	return &operation.GetUserOutput{Body: toUserDTO(u)}, nil
}

// GetUsage returns the plan, effective limits and current consumption
func (h *UserHandler) GetUsage(ctx context.Context, _ *operation.GetUsageInput) (*operation.GetUsageOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	ov, err := h.userService.GetUsageOverview(ctx, userID)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to get usage")
	}
	body := dto.UsageOverviewDTO{
		Limits: toLimitsDTO(ov.Limits.Ceilings, ov.Limits.Source),
		Usage:  toUsageDTO(ov.Usage),
	}
	if ov.Subscription != nil {
		sub := toSubscriptionDTO(ov.Subscription)
		body.Subscription = &sub
	}
	return &operation.GetUsageOutput{Body: body}, nil
}
