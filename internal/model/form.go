package model

import "time"

type FormStatus string

const (
	FormStatusActive    FormStatus = "active"
	FormStatusCompleted FormStatus = "completed"
)

// Form is a shareable intake form owned by a user.
// SubmissionsCount is denormalised and independent of Usage.SubmissionsCount.
type Form struct {
	ID               string     `db:"id" json:"id"`
	UserID           string     `db:"user_id" json:"user_id"`
	Name             string     `db:"name" json:"name"`
	Description      string     `db:"description" json:"description"`
	SubmissionsCount int64      `db:"submissions_count" json:"submissions_count"`
	Status           FormStatus `db:"status" json:"status"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// AcceptsSubmissions reports whether end-users may still submit to the form.
func (f *Form) AcceptsSubmissions() bool {
	return f.Status != FormStatusCompleted
}
