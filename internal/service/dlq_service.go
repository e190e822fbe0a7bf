package service

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"intakeflow/internal/api/v1/dto"
	"intakeflow/internal/model"
	"intakeflow/internal/repository"

	"github.com/rs/zerolog"
)

// DLQService records workflow triggers that Pub/Sub could not deliver.
type DLQService interface {
	ProcessAndSave(ctx context.Context, req *dto.PubSubPushRequest) error
}

type dlqService struct {
	repo      repository.DLQRepository
	dlqLogger zerolog.Logger
}

func NewDLQService(repo repository.DLQRepository, logger zerolog.Logger) DLQService {
	return &dlqService{
		repo:      repo,
		dlqLogger: logger.With().Str("service", "DLQService").Logger(),
	}
}

func (s *dlqService) ProcessAndSave(ctx context.Context, req *dto.PubSubPushRequest) error {
	decodedPayload, err := base64.StdEncoding.DecodeString(req.Message.Data)
	if err != nil {
		s.dlqLogger.Warn().Err(err).Str("message_id", req.Message.MessageID).Msg("Failed to decode DLQ message payload, saving as is")
		decodedPayload = []byte(req.Message.Data)
	}

	// Keep the payload queryable as jsonb even when the publisher sent something else.
	payload := string(decodedPayload)
	var trigger WorkflowTrigger
	var submissionID *string
	if err := json.Unmarshal(decodedPayload, &trigger); err != nil {
		wrapped, _ := json.Marshal(map[string]string{"raw": payload})
		payload = string(wrapped)
	} else if trigger.SubmissionID != "" {
		submissionID = &trigger.SubmissionID
	}

	var attributesJSON *string
	if len(req.Message.Attributes) > 0 {
		if b, err := json.Marshal(req.Message.Attributes); err == nil {
			a := string(b)
			attributesJSON = &a
		} else {
			s.dlqLogger.Warn().Err(err).Str("message_id", req.Message.MessageID).Msg("Failed to marshal DLQ message attributes")
		}
	}

	msg := &model.DeadLetterMessage{
		SubscriptionName: req.Subscription,
		MessageID:        req.Message.MessageID,
		SubmissionID:     submissionID,
		Payload:          payload,
		Attributes:       attributesJSON,
		Status:           "unprocessed",
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		s.dlqLogger.Error().Err(err).Str("subscription", msg.SubscriptionName).Msg("Failed to save DLQ message")
		return err
	}
	s.dlqLogger.Warn().Str("message_id", msg.MessageID).Interface("submission_id", submissionID).Msg("Workflow trigger dead-lettered")
	return nil
}
