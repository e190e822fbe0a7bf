package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Local & Github Secrets (Fill up for local development)
	DBConnectionString   string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	JWTSecret            string `envconfig:"SUPABASE_JWT_SECRET" required:"true"`
	S3URL                string `envconfig:"SUPABASE_S3_URL" required:"true"`
	S3Bucket             string `envconfig:"SUPABASE_S3_BUCKET" required:"true"`
	S3Region             string `envconfig:"SUPABASE_S3_REGION" required:"true"`
	S3AccessKey          string `envconfig:"SUPABASE_S3_ACCESS_KEY" required:"true"`
	S3SecretKey          string `envconfig:"SUPABASE_S3_SECRET_KEY" required:"true"`
	StoragePublicBaseURL string `envconfig:"STORAGE_PUBLIC_BASE_URL" required:"true"` // e.g. https://<ref>.supabase.co/storage/v1/object/public
	Environment          string `envconfig:"ENV" default:"development"`
	Port                 string `envconfig:"PORT" default:"8080"`
	APIBaseURL           string `envconfig:"API_BASE_URL" default:"http://localhost:8080/v1"`

	// Stripe
	StripeSecretKey       string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret   string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	StripePriceGo         string `envconfig:"STRIPE_PRICE_GO" required:"true"`
	StripePricePro        string `envconfig:"STRIPE_PRICE_PRO" required:"true"`
	StripePortalReturnURL string `envconfig:"STRIPE_PORTAL_RETURN_URL" required:"true"`

	// AI workflow. Transport is "webhook" (HTTP POST) or "pubsub".
	WorkflowTransport           string `envconfig:"WORKFLOW_TRANSPORT" default:"webhook"`
	TranscriptionWebhookURL     string `envconfig:"TRANSCRIPTION_WEBHOOK_URL"`
	VideoIntelligenceWebhookURL string `envconfig:"VIDEO_INTELLIGENCE_WEBHOOK_URL"`
	WorkflowTimeoutSec          int    `envconfig:"WORKFLOW_TIMEOUT_SEC" default:"10"`
	PubSubTranscriptionTopic    string `envconfig:"PUBSUB_TRANSCRIPTION_TOPIC" default:"transcription"`
	PubSubVideoTopic            string `envconfig:"PUBSUB_VIDEO_INTELLIGENCE_TOPIC" default:"video-intelligence"`

	// Shared secret for the workflow's callbacks into /internal. When InternalAPISecretName is set
	// the value is read from Secret Manager instead.
	InternalAPISecret     string `envconfig:"INTERNAL_API_SECRET"`
	InternalAPISecretName string `envconfig:"INTERNAL_API_SECRET_NAME"`

	// Idempotency store for usage reports; disabled when empty.
	RedisURL            string `envconfig:"REDIS_URL"`
	IdempotencyTTLHours int    `envconfig:"IDEMPOTENCY_TTL_HOURS" default:"24"`

	// Local Secrets (Fill up for local development)
	PubSubEmulatorHost string `envconfig:"PUBSUB_EMULATOR_HOST"`

	// GitHub Secrets (No need to fill up for local development)
	DLQEndpointURL                string `envconfig:"DLQ_ENDPOINT_URL"`
	PubSubPushServiceAccountEmail string `envconfig:"PUBSUB_PUSH_SERVICE_ACCOUNT_EMAIL"`
	GCPProjectID                  string `envconfig:"GCP_PROJECT_ID"`
	GCPProjectIDLocal             string `envconfig:"GCP_PROJECT_ID_LOCAL"`

	// Storage cleanup orchestrator settings
	CleanupQueueName           string `envconfig:"CLEANUP_QUEUE_NAME" default:"storage_cleanup"`
	CleanupDeadLetterQueueName string `envconfig:"CLEANUP_DEAD_LETTER_QUEUE_NAME" default:"storage_cleanup_dlq"`
	CleanupPollTimeoutSec      int    `envconfig:"CLEANUP_POLL_TIMEOUT_SEC" default:"30"`
	CleanupPollMaxMsg          int    `envconfig:"CLEANUP_POLL_MAX_MSG" default:"10"`
	CleanupMaxRetries          int    `envconfig:"CLEANUP_MAX_RETRIES" default:"5"`
	CleanupBackoffInitialSec   int    `envconfig:"CLEANUP_BACKOFF_INITIAL_SEC" default:"1"`
	CleanupBackoffMaxSec       int    `envconfig:"CLEANUP_BACKOFF_MAX_SEC" default:"60"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetGCPProjectID returns the local project when the Pub/Sub emulator is in use.
func (c *Config) GetGCPProjectID() string {
	if c.PubSubEmulatorHost != "" && c.GCPProjectIDLocal != "" {
		return c.GCPProjectIDLocal
	}
	return c.GCPProjectID
}

// WorkflowTimeout is the per-call deadline for outbound workflow triggers.
func (c *Config) WorkflowTimeout() time.Duration {
	return time.Duration(c.WorkflowTimeoutSec) * time.Second
}

// IdempotencyTTL is how long a processed usage report key is remembered.
func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLHours) * time.Hour
}
