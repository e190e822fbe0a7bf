package service

import (
	"context"
	"encoding/json"
	"fmt"

	"intakeflow/internal/pgmq"
)

// CleanupJob is a storage deletion that failed inline and is retried by the cleanup orchestrator.
type CleanupJob struct {
	Paths  []string `json:"paths"`
	UserID string   `json:"user_id"`
	Reason string   `json:"reason"`
}

// CleanupQueue records storage objects that still need deleting.
type CleanupQueue interface {
	Enqueue(ctx context.Context, job CleanupJob) error
}

type pgmqCleanupQueue struct {
	client *pgmq.Client
	queue  string
}

func NewPGMQCleanupQueue(client *pgmq.Client, queue string) CleanupQueue {
	return &pgmqCleanupQueue{client: client, queue: queue}
}

func (q *pgmqCleanupQueue) Enqueue(ctx context.Context, job CleanupJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal cleanup job: %w", err)
	}
	if err := q.client.Send(ctx, q.queue, data); err != nil {
		return fmt.Errorf("enqueue cleanup job: %w", err)
	}
	return nil
}
