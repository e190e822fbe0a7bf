package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"intakeflow/internal/api/v1/handler"
	"intakeflow/internal/config"
	"intakeflow/internal/database"
	"intakeflow/internal/idempotency"
	"intakeflow/internal/middleware"
	"intakeflow/internal/pgmq"
	"intakeflow/internal/pubsub"
	"intakeflow/internal/repository"
	"intakeflow/internal/service"
	"intakeflow/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires the whole API. The returned close function releases pools and clients.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (http.Handler, func(), error) {
		closeAll()
		return nil, nil, err
	}

	// 1. Database
	pool, err := database.NewPool(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, pool.Close)

	// 2. Object storage
	s3Client, err := service.NewS3Client(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	storage := service.NewS3Storage(s3Client, cfg.S3Bucket, cfg.StoragePublicBaseURL, logger)

	// 3. Workflow transport
	var workflow service.WorkflowClient
	switch cfg.WorkflowTransport {
	case "pubsub":
		publisher, err := pubsub.NewPublisher(ctx, cfg)
		if err != nil {
			return fail(fmt.Errorf("create Pub/Sub publisher: %w", err))
		}
		closers = append(closers, func() { _ = publisher.Close() })
		workflow = service.NewPubSubWorkflowClient(publisher, cfg.PubSubTranscriptionTopic, cfg.PubSubVideoTopic, logger)
	case "webhook", "":
		workflow = service.NewWebhookWorkflowClient(cfg.TranscriptionWebhookURL, cfg.VideoIntelligenceWebhookURL, cfg.WorkflowTimeout(), logger)
	default:
		return fail(fmt.Errorf("unknown WORKFLOW_TRANSPORT %q", cfg.WorkflowTransport))
	}

	// 4. Internal API secret
	var sm service.SecretManagerService
	if cfg.InternalAPISecretName != "" {
		sm, err = service.NewSecretManagerService(ctx, cfg)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = sm.Close() })
	}
	internalSecret, err := service.ResolveInternalAPISecret(ctx, cfg, sm)
	if err != nil {
		return fail(fmt.Errorf("resolve internal API secret: %w", err))
	}
	if internalSecret == "" {
		logger.Warn().Msg("No internal API secret configured; /internal routes will reject every request")
	}

	// 5. Idempotency store
	var store idempotency.Store = idempotency.NoopStore{}
	if cfg.RedisURL != "" {
		rdb, err := idempotency.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		store = idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL())
	} else {
		logger.Warn().Msg("REDIS_URL not set; usage reports are not deduplicated")
	}

	// 6. Repositories & services & handlers
	userRepo := repository.NewUserRepo(pool)
	subRepo := repository.NewSubscriptionRepo(pool)
	limitRepo := repository.NewLimitRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)
	formRepo := repository.NewFormRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	dlqRepo := repository.NewDLQRepository(pool)

	usageSvc := service.NewUsageService(usageRepo, logger)
	limitSvc := service.NewLimitService(limitRepo, subRepo, logger)
	quotaSvc := service.NewQuotaService(subRepo, limitSvc, usageSvc, logger)
	provisioningSvc := service.NewProvisioningService(limitRepo, usageSvc, logger)
	subSvc := service.NewSubscriptionService(subRepo, provisioningSvc, logger)
	userSvc := service.NewUserService(userRepo, subRepo, limitSvc, usageSvc)
	cleanupQueue := service.NewPGMQCleanupQueue(pgmq.New(pool), cfg.CleanupQueueName)
	submissionSvc := service.NewSubmissionService(submissionRepo, formRepo, quotaSvc, usageSvc, storage, cleanupQueue, workflow, logger)
	formSvc := service.NewFormService(formRepo, quotaSvc, usageSvc, submissionSvc, logger)
	processingSvc := service.NewProcessingService(subRepo, limitRepo, submissionRepo, usageSvc, workflow, logger)
	usageReportSvc := service.NewUsageReportService(usageSvc, store, logger)
	stripeSvc := service.NewStripeService(cfg, userRepo, subSvc, logger)
	dlqSvc := service.NewDLQService(dlqRepo, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())
	handlers := Handlers{
		User:          handler.NewUserHandler(userSvc, logger),
		Form:          handler.NewFormHandler(formSvc, submissionSvc, logger),
		Submission:    handler.NewSubmissionHandler(submissionSvc, processingSvc, logger),
		Subscription:  handler.NewSubscriptionHandler(stripeSvc, subSvc, logger),
		Admin:         handler.NewAdminHandler(provisioningSvc, subSvc, logger),
		Internal:      handler.NewInternalHandler(usageReportSvc, submissionSvc, validate, logger),
		DLQ:           handler.NewDLQHandler(dlqSvc, logger),
		StripeWebhook: stripeSvc.HandleWebhook,
	}

	// 7. Middleware
	verifier, err := util.NewTokenVerifier(cfg.JWTSecret)
	if err != nil {
		return fail(fmt.Errorf("jwt verifier: %w", err))
	}
	isLocalDev := cfg.PubSubEmulatorHost != ""
	mw := Middlewares{
		Auth:     middleware.AuthMiddleware(verifier, logger),
		Admin:    middleware.RequireAdmin(userRepo, logger),
		Internal: middleware.InternalSecretMiddleware(internalSecret, logger),
		PubSub:   middleware.PubSubAuthMiddleware(isLocalDev, cfg.DLQEndpointURL, cfg.PubSubPushServiceAccountEmail, logger),
	}

	return Mount(cfg, mw, handlers, logger), closeAll, nil
}

// Mount builds the versioned HTTP surface from already constructed handlers.
func Mount(cfg *config.Config, mw Middlewares, handlers Handlers, logger zerolog.Logger) http.Handler {
	chiRouter, api := SetupHumaAPI(cfg, mw, handlers, logger)
	RegisterRoutes(api, handlers, logger)

	mux := http.NewServeMux()
	mux.Handle("/v1/", http.StripPrefix("/v1", chiRouter))
	// Redirect root-level requests to /v1/{path}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/v1"+r.URL.Path, http.StatusMovedPermanently)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return middleware.LoggerMiddleware(logger)(c.Handler(mux))
}
