package handler

import (
	"context"

	"intakeflow/internal/api/v1/operation"
	"intakeflow/internal/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

type DLQHandler struct {
	service service.DLQService
	logger  zerolog.Logger
}

func NewDLQHandler(s service.DLQService, l zerolog.Logger) *DLQHandler {
	return &DLQHandler{service: s, logger: l}
}

func (h *DLQHandler) RecordDLQ(ctx context.Context, input *operation.RecordDLQInput) (*operation.RecordDLQOutput, error) {
	if input.Body.Message.MessageID == "" {
		return nil, huma.Error400BadRequest("Invalid Pub/Sub message format: missing message ID")
	}

	h.logger.Info().
		Str("messageId", input.Body.Message.MessageID).
		Str("subscription", input.Body.Subscription).
		Msg("Processing dead-letter queue message")

	if err := h.service.ProcessAndSave(ctx, &input.Body); err != nil {
		// Acknowledge anyway so Pub/Sub does not redeliver a dead letter; the error is kept in the logs.
		h.logger.Error().Err(err).Str("messageId", input.Body.Message.MessageID).Msg("Failed to save DLQ message to database")
	}
	return &operation.RecordDLQOutput{}, nil
}
