package operation

import "intakeflow/internal/api/v1/dto"

// Billing Operations

type CheckoutInput struct {
	Body dto.CheckoutRequestDTO `json:"body"`
}

type SessionURLOutput struct {
	Body dto.SessionURLResponseDTO `json:"body"`
}

type PortalInput struct{}

type GetSubscriptionInput struct{}

type GetSubscriptionOutput struct {
	Body dto.SubscriptionDTO `json:"body"`
}

// Admin Operations

type ProvisionLimitsInput struct {
	UserID string                  `path:"userId" doc:"User ID"`
	Body   dto.ProvisionRequestDTO `json:"body"`
}

type ProvisionLimitsOutput struct {
	Body dto.LimitsDTO `json:"body"`
}
