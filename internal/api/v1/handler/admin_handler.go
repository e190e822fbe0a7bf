package handler

import (
	"context"

	"intakeflow/internal/api/v1/operation"
	"intakeflow/internal/service"

	"github.com/rs/zerolog"
)

// AdminHandler exposes manual maintenance operations to admin users
type AdminHandler struct {
	provisioning service.ProvisioningService
	subSvc       service.SubscriptionService
	logger       zerolog.Logger
}

func NewAdminHandler(provisioning service.ProvisioningService, subSvc service.SubscriptionService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{provisioning: provisioning, subSvc: subSvc, logger: logger}
}

// ProvisionLimits re-materialises a user's limits from a plan, for repairs after a missed webhook.
func (h *AdminHandler) ProvisionLimits(ctx context.Context, input *operation.ProvisionLimitsInput) (*operation.ProvisionLimitsOutput, error) {
	adminID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sub, err := h.subSvc.GetSubscription(ctx, input.UserID)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to load subscription")
	}
	var subID *string
	if sub != nil {
		subID = &sub.ID
	}
	l, err := h.provisioning.ProvisionLimits(ctx, input.UserID, input.Body.PlanKey, subID)
	if err != nil {
		return nil, toHTTPError(h.logger, err, "Failed to provision limits")
	}
	h.logger.Info().Str("admin_id", adminID).Str("user_id", input.UserID).Str("plan_key", input.Body.PlanKey).Msg("Limits provisioned manually")

	return &operation.ProvisionLimitsOutput{Body: toLimitsDTO(service.Ceilings{
		StorageBytes:      l.StorageLimitBytes,
		Forms:             l.FormsLimit,
		Submissions:       l.SubmissionsLimit,
		AudioMinutes:      l.AudioMinutesLimit,
		VideoMinutes:      l.VideoMinutesLimit,
		VideoIntelligence: l.VideoIntelligenceEnabled,
	}, service.LimitSourceRow)}, nil
}
