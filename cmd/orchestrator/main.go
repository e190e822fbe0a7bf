package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"intakeflow/internal/config"
	"intakeflow/internal/database"
	"intakeflow/internal/logger"
	"intakeflow/internal/orchestrator/cleanup"
	"intakeflow/internal/pgmq"
	"intakeflow/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	mode := flag.String("mode", "", "Orchestrator mode: cleanup")
	flag.Parse()

	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	pgmqClient := pgmq.New(pool)
	logger.Info().Msg("PGMQ client initialized")

	var runErr error
	switch *mode {
	case "cleanup":
		s3Client, err := service.NewS3Client(ctx, cfg)
		if err != nil {
			logger.Fatal().Msgf("Failed to create S3 client: %v", err)
		}
		storage := service.NewS3Storage(s3Client, cfg.S3Bucket, cfg.StoragePublicBaseURL, logger)
		runErr = cleanup.Run(ctx, logger.With().Str("orchestrator", "cleanup").Logger(), cfg, pgmqClient, storage)
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	if runErr != nil {
		logger.Fatal().Msgf("%s orchestrator failed: %v", *mode, runErr)
	}
	logger.Info().Msgf("%s orchestrator stopped gracefully", *mode)
}
