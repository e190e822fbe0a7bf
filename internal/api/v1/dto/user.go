package dto

import "time"

// UserCreateDTO is used for incoming create requests
type UserCreateDTO struct {
	Name  string `json:"name" maxLength:"200"`
	Email string `json:"email,omitempty" doc:"Defaults to the email claim of the access token"`
}

// UserResponseDTO is returned in API responses
type UserResponseDTO struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubscriptionDTO is the billing state shown to a user.
type SubscriptionDTO struct {
	Plan               string     `json:"plan"`
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	LastBilledAt       *time.Time `json:"last_billed_at,omitempty"`
}

// LimitsDTO mirrors the effective ceilings; -1 means unlimited.
type LimitsDTO struct {
	Source                   string `json:"source" enum:"limit_row,plan_config,none"`
	StorageLimitBytes        int64  `json:"storage_limit_bytes"`
	FormsLimit               int64  `json:"forms_limit"`
	SubmissionsLimit         int64  `json:"submissions_limit"`
	AudioMinutesLimit        int64  `json:"audio_minutes_limit"`
	VideoMinutesLimit        int64  `json:"video_minutes_limit"`
	VideoIntelligenceEnabled bool   `json:"video_intelligence_enabled"`
}

type UsageDTO struct {
	StorageUsedBytes        int64   `json:"storage_used_bytes"`
	AudioMinutesTranscribed float64 `json:"audio_minutes_transcribed"`
	VideoMinutesUsed        float64 `json:"video_minutes_used"`
	FormsCreatedCount       int64   `json:"forms_created_count"`
	SubmissionsCount        int64   `json:"submissions_count"`
}

// UsageOverviewDTO is the plan, limits and consumption of the authenticated user.
// Usage is omitted until the account has been provisioned.
type UsageOverviewDTO struct {
	Subscription *SubscriptionDTO `json:"subscription,omitempty"`
	Limits       LimitsDTO        `json:"limits"`
	Usage        *UsageDTO        `json:"usage,omitempty"`
}
