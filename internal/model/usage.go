package model

import "time"

// Resource names a quota-gated, metered resource.
type Resource string

const (
	ResourceStorageBytes       Resource = "storage_bytes"
	ResourceAudioMinutes       Resource = "audio_minutes"
	ResourceVideoMinutes       Resource = "video_minutes"
	ResourceFormsCreated       Resource = "forms_created"
	ResourceSubmissionsCreated Resource = "submissions_created"
)

// IsCount reports whether the resource is counted in whole units.
func (r Resource) IsCount() bool {
	switch r {
	case ResourceStorageBytes, ResourceFormsCreated, ResourceSubmissionsCreated:
		return true
	}
	return false
}

// Valid reports whether r is a known resource.
func (r Resource) Valid() bool {
	switch r {
	case ResourceStorageBytes, ResourceAudioMinutes, ResourceVideoMinutes, ResourceFormsCreated, ResourceSubmissionsCreated:
		return true
	}
	return false
}

// Usage is the cumulative consumption of a user since provisioning. Counters never go below zero.
type Usage struct {
	UserID                  string    `db:"user_id" json:"user_id"`
	SubscriptionID          *string   `db:"subscription_id" json:"subscription_id,omitempty"`
	StorageUsedBytes        int64     `db:"storage_used_bytes" json:"storage_used_bytes"`
	AudioMinutesTranscribed float64   `db:"audio_minutes_transcribed" json:"audio_minutes_transcribed"`
	VideoMinutesUsed        float64   `db:"video_minutes_used" json:"video_minutes_used"`
	FormsCreatedCount       int64     `db:"forms_created_count" json:"forms_created_count"`
	SubmissionsCount        int64     `db:"submissions_count" json:"submissions_count"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

// Value returns the counter for a resource.
func (u *Usage) Value(r Resource) float64 {
	switch r {
	case ResourceStorageBytes:
		return float64(u.StorageUsedBytes)
	case ResourceAudioMinutes:
		return u.AudioMinutesTranscribed
	case ResourceVideoMinutes:
		return u.VideoMinutesUsed
	case ResourceFormsCreated:
		return float64(u.FormsCreatedCount)
	case ResourceSubmissionsCreated:
		return float64(u.SubmissionsCount)
	}
	return 0
}
