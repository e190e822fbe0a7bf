package model

import "time"

// DeadLetterMessage is a workflow trigger Pub/Sub gave up delivering, kept for manual replay.
type DeadLetterMessage struct {
	ID               string    `db:"id"`
	SubscriptionName string    `db:"subscription_name"`
	MessageID        string    `db:"message_id"`
	SubmissionID     *string   `db:"submission_id"` // parsed from the payload when present
	Payload          string    `db:"payload"`       // JSON
	Attributes       *string   `db:"attributes"`    // JSON, nullable
	Status           string    `db:"status"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}
