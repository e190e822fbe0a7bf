package handler

import (
	"context"

	"intakeflow/internal/api/v1/dto"
	"intakeflow/internal/api/v1/operation"
	"intakeflow/internal/model"
	"intakeflow/internal/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

// CheckoutProvider creates hosted payment pages.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, userID string, plan model.Plan) (string, error)
	CreatePortalSession(ctx context.Context, userID string) (string, error)
}

// SubscriptionHandler handles subscription-related endpoints.
type SubscriptionHandler struct {
	checkout CheckoutProvider
	subSvc   service.SubscriptionService
	logger   zerolog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(checkout CheckoutProvider, subSvc service.SubscriptionService, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{checkout: checkout, subSvc: subSvc, logger: logger}
}

// Checkout initiates a Stripe Checkout session for a plan upgrade
func (h *SubscriptionHandler) Checkout(ctx context.Context, input *operation.CheckoutInput) (*operation.SessionURLOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	url, err := h.checkout.CreateCheckoutSession(ctx, userID, model.Plan(input.Body.Plan))
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to create checkout session")
	}
	return &operation.SessionURLOutput{Body: dto.SessionURLResponseDTO{URL: url}}, nil
}

// Portal creates a Stripe Customer Portal session
func (h *SubscriptionHandler) Portal(ctx context.Context, _ *operation.PortalInput) (*operation.SessionURLOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	url, err := h.checkout.CreatePortalSession(ctx, userID)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to create portal session")
	}
	return &operation.SessionURLOutput{Body: dto.SessionURLResponseDTO{URL: url}}, nil
}

func (h *SubscriptionHandler) GetSubscription(ctx context.Context, _ *operation.GetSubscriptionInput) (*operation.GetSubscriptionOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sub, err := h.subSvc.GetSubscription(ctx, userID)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to get subscription")
	}
	if sub == nil {
		return nil, huma.Error404NotFound("Subscription not found")
	}
	return &operation.GetSubscriptionOutput{Body: toSubscriptionDTO(sub)}, nil
}
