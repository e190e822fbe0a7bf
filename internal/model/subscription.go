package model

import "time"

// Plan identifies a subscription tier. "go" is the entry paid tier, "pro" the upgraded one.
type Plan string

const (
	PlanFree Plan = "free"
	PlanGo   Plan = "go"
	PlanPro  Plan = "pro"
)

// SubscriptionStatus mirrors the payment processor lifecycle.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusTrialing  SubscriptionStatus = "trialing"
	SubscriptionStatusUnpaid    SubscriptionStatus = "unpaid"
)

// Subscription is the single billing record of a user.
// Plan is authoritative; PlanKey is a string mirror that may lag behind it.
type Subscription struct {
	ID                   string             `db:"id" json:"id"`
	UserID               string             `db:"user_id" json:"user_id"`
	Plan                 Plan               `db:"plan" json:"plan"`
	PlanKey              string             `db:"plan_key" json:"plan_key"`
	Status               SubscriptionStatus `db:"status" json:"status"`
	StripeCustomerID     *string            `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string            `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	CurrentPeriodStart   *time.Time         `db:"current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time         `db:"current_period_end" json:"current_period_end,omitempty"`
	LastBilledAt         *time.Time         `db:"last_billed_at" json:"last_billed_at,omitempty"`
	CreatedAt            time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the subscription may consume quota-gated resources.
// Trialing is not active.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == SubscriptionStatusActive
}
