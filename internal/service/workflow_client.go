package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"intakeflow/internal/pubsub"

	"github.com/rs/zerolog"
)

// WorkflowTrigger is the body sent to the external AI workflow for one submission.
type WorkflowTrigger struct {
	SubmissionID     string `json:"submissionId"`
	UserID           string `json:"userId"`
	FormID           string `json:"formId"`
	VideoURL         string `json:"videoUrl"`
	FileSubmissionID string `json:"fileSubmissionId"`
}

// WorkflowClient notifies the AI workflow that work is ready.
type WorkflowClient interface {
	TriggerTranscription(ctx context.Context, t WorkflowTrigger) error
	TriggerVideoIntelligence(ctx context.Context, t WorkflowTrigger) error
}

type webhookWorkflowClient struct {
	httpClient       *http.Client
	transcriptionURL string
	videoAnalysisURL string
	logger           zerolog.Logger
}

// NewWebhookWorkflowClient posts triggers to the configured workflow URLs.
// An empty URL makes the corresponding trigger return ErrWorkflowUnavailable.
func NewWebhookWorkflowClient(transcriptionURL, videoAnalysisURL string, timeout time.Duration, logger zerolog.Logger) WorkflowClient {
	return &webhookWorkflowClient{
		httpClient:       &http.Client{Timeout: timeout},
		transcriptionURL: transcriptionURL,
		videoAnalysisURL: videoAnalysisURL,
		logger:           logger.With().Str("service", "WorkflowClient").Logger(),
	}
}

func (c *webhookWorkflowClient) TriggerTranscription(ctx context.Context, t WorkflowTrigger) error {
	return c.post(ctx, c.transcriptionURL, t)
}

func (c *webhookWorkflowClient) TriggerVideoIntelligence(ctx context.Context, t WorkflowTrigger) error {
	return c.post(ctx, c.videoAnalysisURL, t)
}

func (c *webhookWorkflowClient) post(ctx context.Context, endpoint string, t WorkflowTrigger) error {
	if endpoint == "" {
		return ErrWorkflowUnavailable
	}
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal workflow trigger: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build workflow request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWorkflowUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", ErrWorkflowUnavailable, resp.StatusCode, string(msg))
	}
	c.logger.Info().
		Str("submission_id", t.SubmissionID).
		Str("duration", time.Since(start).String()).
		Msg("Workflow triggered")
	return nil
}

type pubsubWorkflowClient struct {
	publisher          pubsub.Publisher
	transcriptionTopic string
	videoTopic         string
	logger             zerolog.Logger
}

// NewPubSubWorkflowClient publishes triggers to Pub/Sub topics instead of calling the workflow directly.
func NewPubSubWorkflowClient(publisher pubsub.Publisher, transcriptionTopic, videoTopic string, logger zerolog.Logger) WorkflowClient {
	return &pubsubWorkflowClient{
		publisher:          publisher,
		transcriptionTopic: transcriptionTopic,
		videoTopic:         videoTopic,
		logger:             logger.With().Str("service", "WorkflowClient").Logger(),
	}
}

func (c *pubsubWorkflowClient) TriggerTranscription(ctx context.Context, t WorkflowTrigger) error {
	return c.publish(ctx, c.transcriptionTopic, t)
}

func (c *pubsubWorkflowClient) TriggerVideoIntelligence(ctx context.Context, t WorkflowTrigger) error {
	return c.publish(ctx, c.videoTopic, t)
}

func (c *pubsubWorkflowClient) publish(ctx context.Context, topic string, t WorkflowTrigger) error {
	if topic == "" {
		return ErrWorkflowUnavailable
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal workflow trigger: %w", err)
	}
	msgID, err := c.publisher.Publish(ctx, topic, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWorkflowUnavailable, err)
	}
	c.logger.Info().Str("submission_id", t.SubmissionID).Str("topic", topic).Str("message_id", msgID).Msg("Workflow trigger published")
	return nil
}
