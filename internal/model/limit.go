package model

import "time"

// Unlimited is the ceiling sentinel meaning "no cap".
const Unlimited int64 = -1

// Limit holds the per-user resource ceilings materialised from a plan.
// It is a ceiling, never a counter.
type Limit struct {
	UserID                   string    `db:"user_id" json:"user_id"`
	SubscriptionID           *string   `db:"subscription_id" json:"subscription_id,omitempty"`
	StorageLimitBytes        int64     `db:"storage_limit_bytes" json:"storage_limit_bytes"`
	FormsLimit               int64     `db:"forms_limit" json:"forms_limit"`
	SubmissionsLimit         int64     `db:"submissions_limit" json:"submissions_limit"`
	AudioMinutesLimit        int64     `db:"audio_minutes_limit" json:"audio_minutes_limit"`
	VideoMinutesLimit        int64     `db:"video_minutes_limit" json:"video_minutes_limit"`
	VideoIntelligenceEnabled bool      `db:"video_intelligence_enabled" json:"video_intelligence_enabled"`
	CreatedAt                time.Time `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time `db:"updated_at" json:"updated_at"`
}
