package cleanup

import (
	"context"
	"encoding/json"
	"time"

	"intakeflow/internal/config"
	"intakeflow/internal/pgmq"
	"intakeflow/internal/service"

	"github.com/rs/zerolog"
)

// visibilitySec keeps a read message hidden while its deletion is retried.
const visibilitySec = 120

// Queue is the subset of the pgmq client the orchestrator uses.
type Queue interface {
	Send(ctx context.Context, queue string, payload []byte) error
	ReadWithPoll(ctx context.Context, queue string, visibilitySec, timeoutSec, maxMessages int) ([]*pgmq.Message, error)
	Delete(ctx context.Context, queue string, msgIDs []int64) error
}

// Deleter removes storage objects.
type Deleter interface {
	Delete(ctx context.Context, paths []string) error
}

// Run drains the storage cleanup queue until ctx is cancelled.
func Run(ctx context.Context, logger zerolog.Logger, cfg *config.Config, client Queue, storage Deleter) error {
	queue := cfg.CleanupQueueName
	logger.Info().Str("queue", queue).Msg("Starting cleanup orchestrator")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down cleanup orchestrator")
			return nil
		default:
		}
		msgs, err := client.ReadWithPoll(ctx, queue, visibilitySec, cfg.CleanupPollTimeoutSec, cfg.CleanupPollMaxMsg)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error().Err(err).Msg("Error reading cleanup queue")
			sleep(ctx, time.Second)
			continue
		}
		for _, msg := range msgs {
			handle(ctx, logger, cfg, client, storage, msg)
		}
	}
}

func handle(ctx context.Context, logger zerolog.Logger, cfg *config.Config, client Queue, storage Deleter, msg *pgmq.Message) {
	queue := cfg.CleanupQueueName
	lg := logger.With().Int64("msg_id", msg.ID).Int("read_ct", msg.ReadCt).Logger()

	var job service.CleanupJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		lg.Error().Err(err).Msg("Failed to unmarshal cleanup payload; deleting message")
		ack(ctx, lg, client, queue, msg.ID)
		return
	}
	if len(job.Paths) == 0 {
		ack(ctx, lg, client, queue, msg.ID)
		return
	}

	// Messages redelivered after a crash count their earlier reads against the budget.
	attempts := cfg.CleanupMaxRetries - (msg.ReadCt - 1)
	if attempts < 1 {
		attempts = 1
	}
	backoff := time.Duration(cfg.CleanupBackoffInitialSec) * time.Second
	maxBackoff := time.Duration(cfg.CleanupBackoffMaxSec) * time.Second
	var delErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		delErr = storage.Delete(ctx, job.Paths)
		if delErr == nil {
			break
		}
		lg.Error().Err(delErr).Int("attempt", attempt).Str("user_id", job.UserID).Msg("Storage cleanup failed, retrying")
		if attempt == attempts || !sleep(ctx, backoff) {
			break
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	if delErr == nil {
		lg.Info().Int("paths", len(job.Paths)).Str("user_id", job.UserID).Str("reason", job.Reason).Msg("Storage cleanup succeeded")
		ack(ctx, lg, client, queue, msg.ID)
		return
	}
	if ctx.Err() != nil {
		// Left invisible; it is redelivered after the visibility timeout.
		return
	}

	dlq := cfg.CleanupDeadLetterQueueName
	if err := client.Send(ctx, dlq, msg.Data); err != nil {
		lg.Error().Err(err).Str("dlq", dlq).Msg("Failed to send message to dead-letter queue")
		return
	}
	ack(ctx, lg, client, queue, msg.ID)
	lg.Warn().
		Int("attempts", attempts).
		Str("user_id", job.UserID).
		Strs("paths", job.Paths).
		Err(delErr).
		Msg("Exhausted all cleanup retries; moving job to DLQ")
}

func ack(ctx context.Context, logger zerolog.Logger, client Queue, queue string, id int64) {
	if err := client.Delete(ctx, queue, []int64{id}); err != nil {
		logger.Error().Err(err).Msg("Error deleting cleanup message")
	}
}

// sleep waits for d or until ctx is done, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
