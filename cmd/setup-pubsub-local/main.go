package main

import (
	"context"
	"errors"
	"time"

	"intakeflow/internal/config"
	"intakeflow/internal/logger"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Containers reach the host machine through host.docker.internal.
const dlqEndpointLocal = "http://host.docker.internal:8080/v1/dlq/record"

// workflowTopic is a trigger topic and the workflow endpoint its subscription pushes to.
type workflowTopic struct {
	id       string
	endpoint string
}

func main() {
	logger := logger.New()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("No .env file found, relying on system environment variables")
	}
	logger.Info().Msg("Starting Pub/Sub setup for the local environment")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Failed to load config: %v", err)
	}
	if cfg.GCPProjectIDLocal == "" {
		logger.Fatal().Msg("GCP_PROJECT_ID_LOCAL is not set in the environment")
	}
	if cfg.PubSubEmulatorHost == "" {
		logger.Fatal().Msg("PUBSUB_EMULATOR_HOST must be set for local environment")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := pubsub.NewClient(ctx, cfg.GCPProjectIDLocal,
		option.WithEndpoint(cfg.PubSubEmulatorHost),
		option.WithoutAuthentication(),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub client: %v", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close pubsub client")
		}
	}()

	resetLocalEmulator(ctx, client, logger)
	for _, t := range []workflowTopic{
		{id: cfg.PubSubTranscriptionTopic, endpoint: cfg.TranscriptionWebhookURL},
		{id: cfg.PubSubVideoTopic, endpoint: cfg.VideoIntelligenceWebhookURL},
	} {
		if err := createTopicResources(ctx, client, t, logger); err != nil {
			logger.Fatal().Err(err).Str("topic", t.id).Msg("Failed to create Pub/Sub resources")
		}
	}
	logger.Info().Msg("Pub/Sub setup for local environment complete")
}

// resetLocalEmulator deletes every topic and subscription. Only for the emulator.
func resetLocalEmulator(ctx context.Context, client *pubsub.Client, logger zerolog.Logger) {
	subs := client.Subscriptions(ctx)
	for {
		sub, err := subs.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list subscriptions: %v", err)
		}
		if err := sub.Delete(ctx); err != nil {
			logger.Warn().Err(err).Str("subscription", sub.ID()).Msg("Failed to delete subscription")
		}
	}
	topics := client.Topics(ctx)
	for {
		topic, err := topics.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			logger.Fatal().Msgf("Failed to list topics: %v", err)
		}
		if err := topic.Delete(ctx); err != nil {
			logger.Warn().Err(err).Str("topic", topic.ID()).Msg("Failed to delete topic")
		}
	}
}

// createTopicResources creates the trigger topic, its dead-letter topic and both push subscriptions.
// Triggers that exhaust their deliveries are recorded by the API's DLQ endpoint.
func createTopicResources(ctx context.Context, client *pubsub.Client, t workflowTopic, logger zerolog.Logger) error {
	retention := 7 * 24 * time.Hour
	retry := &pubsub.RetryPolicy{MinimumBackoff: 10 * time.Second, MaximumBackoff: 600 * time.Second}

	dlqTopic, err := client.CreateTopicWithConfig(ctx, t.id+"-dlq", &pubsub.TopicConfig{RetentionDuration: retention})
	if err != nil {
		return err
	}
	mainTopic, err := client.CreateTopicWithConfig(ctx, t.id, &pubsub.TopicConfig{RetentionDuration: retention})
	if err != nil {
		return err
	}

	mainSub := pubsub.SubscriptionConfig{
		Topic:       mainTopic,
		AckDeadline: 180 * time.Second,
		RetryPolicy: retry,
		DeadLetterPolicy: &pubsub.DeadLetterPolicy{
			DeadLetterTopic:     dlqTopic.String(),
			MaxDeliveryAttempts: 5,
		},
	}
	if t.endpoint != "" {
		mainSub.PushConfig = pubsub.PushConfig{Endpoint: t.endpoint}
	} else {
		logger.Warn().Str("topic", t.id).Msg("No workflow endpoint configured; creating a pull subscription")
	}
	if _, err := client.CreateSubscription(ctx, t.id+"-sub", mainSub); err != nil {
		return err
	}

	dlqSub := pubsub.SubscriptionConfig{
		Topic:       dlqTopic,
		PushConfig:  pubsub.PushConfig{Endpoint: dlqEndpointLocal},
		AckDeadline: 180 * time.Second,
		RetryPolicy: retry,
	}
	if _, err := client.CreateSubscription(ctx, t.id+"-dlq-sub", dlqSub); err != nil {
		return err
	}
	logger.Info().Str("topic", t.id).Str("endpoint", t.endpoint).Msg("Created topic, dead-letter topic and subscriptions")
	return nil
}
