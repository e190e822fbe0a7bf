package router

import (
	"net/http"
	"os"
	"strings"

	"intakeflow/internal/api/v1/handler"
	"intakeflow/internal/config"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Middlewares are the per-surface authentication layers.
type Middlewares struct {
	Auth     func(http.Handler) http.Handler
	Admin    func(http.Handler) http.Handler
	Internal func(http.Handler) http.Handler
	PubSub   func(http.Handler) http.Handler
}

// Handlers groups every operation implementation.
type Handlers struct {
	User          *handler.UserHandler
	Form          *handler.FormHandler
	Submission    *handler.SubmissionHandler
	Subscription  *handler.SubscriptionHandler
	Admin         *handler.AdminHandler
	Internal      *handler.InternalHandler
	DLQ           *handler.DLQHandler
	StripeWebhook http.HandlerFunc
}

func isPublicPath(p string) bool {
	return p == "/openapi.json" || p == "/openapi.yaml" || p == "/docs" || strings.HasPrefix(p, "/schemas") ||
		p == "/healthz" || p == "/webhooks/stripe" || strings.HasPrefix(p, "/public/")
}

// authenticate picks the auth layer by path prefix.
func authenticate(mw Middlewares) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		admin := mw.Auth(mw.Admin(next))
		internal := mw.Internal(next)
		pubsub := mw.PubSub(next)
		user := mw.Auth(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := r.URL.Path
			switch {
			case isPublicPath(p):
				next.ServeHTTP(w, r)
			case p == "/dlq/record":
				pubsub.ServeHTTP(w, r)
			case strings.HasPrefix(p, "/internal/"):
				internal.ServeHTTP(w, r)
			case strings.HasPrefix(p, "/admin/"):
				admin.ServeHTTP(w, r)
			default:
				user.ServeHTTP(w, r)
			}
		})
	}
}

// SetupHumaAPI creates the chi router and the Huma API mounted on it
func SetupHumaAPI(cfg *config.Config, mw Middlewares, h Handlers, logger zerolog.Logger) (*chi.Mux, huma.API) {
	chiRouter := chi.NewRouter()
	chiRouter.Use(authenticate(mw))

	version := os.Getenv("GIT_COMMIT_SHA")
	if version == "" {
		version = "development"
	}
	humaConfig := huma.DefaultConfig("Intakeflow API v1", version)
	humaConfig.Info.Description = "Form, submission and quota API"
	humaConfig.Servers = []*huma.Server{{URL: cfg.APIBaseURL}}

	api := humachi.New(chiRouter, humaConfig)

	// Stripe signs the raw body, so the webhook bypasses Huma's decoding.
	chiRouter.Post("/webhooks/stripe", h.StripeWebhook)
	chiRouter.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	logger.Info().Str("version", version).Msg("Huma API initialized for /v1")
	return chiRouter, api
}

// RegisterRoutes registers all Huma operations
func RegisterRoutes(api huma.API, h Handlers, logger zerolog.Logger) {
	logger.Info().Msg("Registering routes")

	// ========== USER OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID: "createUser",
		Method:      http.MethodPost,
		Path:        "/users/me",
		Summary:     "Create or update user profile",
		Description: "Creates the profile of the authenticated user; first-time users get a free subscription",
		Tags:        []string{"users"},
	}, h.User.CreateUser)

	huma.Register(api, huma.Operation{
		OperationID: "getUser",
		Method:      http.MethodGet,
		Path:        "/users/me",
		Summary:     "Get user profile",
		Tags:        []string{"users"},
	}, h.User.GetUser)

	huma.Register(api, huma.Operation{
		OperationID: "getUsage",
		Method:      http.MethodGet,
		Path:        "/users/me/usage",
		Summary:     "Get plan, limits and usage",
		Description: "Returns the subscription, the effective limits with their source, and current consumption",
		Tags:        []string{"users"},
	}, h.User.GetUsage)

	// ========== FORM OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID:   "createForm",
		Method:        http.MethodPost,
		Path:          "/forms",
		Summary:       "Create a form",
		Description:   "Creates a form if the plan's form limit allows it; otherwise returns a 403 quota denial",
		Tags:          []string{"forms"},
		DefaultStatus: http.StatusCreated,
	}, h.Form.CreateForm)

	huma.Register(api, huma.Operation{
		OperationID: "listForms",
		Method:      http.MethodGet,
		Path:        "/forms",
		Summary:     "List forms",
		Tags:        []string{"forms"},
	}, h.Form.ListForms)

	huma.Register(api, huma.Operation{
		OperationID: "getForm",
		Method:      http.MethodGet,
		Path:        "/forms/{formId}",
		Summary:     "Get a form",
		Tags:        []string{"forms"},
	}, h.Form.GetForm)

	huma.Register(api, huma.Operation{
		OperationID: "updateForm",
		Method:      http.MethodPatch,
		Path:        "/forms/{formId}",
		Summary:     "Update a form",
		Description: "Renames a form or changes its status; completed forms stop accepting submissions",
		Tags:        []string{"forms"},
	}, h.Form.UpdateForm)

	huma.Register(api, huma.Operation{
		OperationID:   "deleteForm",
		Method:        http.MethodDelete,
		Path:          "/forms/{formId}",
		Summary:       "Delete a form",
		Description:   "Deletes a form, its submissions and their stored files",
		Tags:          []string{"forms"},
		DefaultStatus: http.StatusNoContent,
	}, h.Form.DeleteForm)

	huma.Register(api, huma.Operation{
		OperationID: "listFormSubmissions",
		Method:      http.MethodGet,
		Path:        "/forms/{formId}/submissions",
		Summary:     "List submissions of a form",
		Tags:        []string{"forms", "submissions"},
	}, h.Form.ListFormSubmissions)

	// ========== SUBMISSION OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID: "listSubmissions",
		Method:      http.MethodGet,
		Path:        "/submissions",
		Summary:     "List submissions",
		Tags:        []string{"submissions"},
	}, h.Submission.ListSubmissions)

	huma.Register(api, huma.Operation{
		OperationID: "getSubmission",
		Method:      http.MethodGet,
		Path:        "/submissions/{submissionId}",
		Summary:     "Get a submission",
		Tags:        []string{"submissions"},
	}, h.Submission.GetSubmission)

	huma.Register(api, huma.Operation{
		OperationID:   "deleteSubmission",
		Method:        http.MethodDelete,
		Path:          "/submissions/{submissionId}",
		Summary:       "Delete a submission",
		Description:   "Deletes a submission and its files and releases the storage it used",
		Tags:          []string{"submissions"},
		DefaultStatus: http.StatusNoContent,
	}, h.Submission.DeleteSubmission)

	huma.Register(api, huma.Operation{
		OperationID: "deleteSubmissions",
		Method:      http.MethodPost,
		Path:        "/submissions/delete",
		Summary:     "Delete several submissions",
		Tags:        []string{"submissions"},
	}, h.Submission.DeleteSubmissions)

	huma.Register(api, huma.Operation{
		OperationID:   "triggerVideoIntelligence",
		Method:        http.MethodPost,
		Path:          "/submissions/{submissionId}/video-intelligence",
		Summary:       "Run video intelligence",
		Description:   "Starts AI video analysis; denied with 403 when the plan lacks the feature or minutes",
		Tags:          []string{"submissions"},
		DefaultStatus: http.StatusAccepted,
	}, h.Submission.TriggerVideoIntelligence)

	// ========== PUBLIC INTAKE ==========
	huma.Register(api, huma.Operation{
		OperationID: "createUploadURL",
		Method:      http.MethodPost,
		Path:        "/public/forms/{formId}/upload-url",
		Summary:     "Get a video upload URL",
		Description: "Returns a presigned URL for uploading the submission video into the temporary area",
		Tags:        []string{"public"},
	}, h.Submission.CreateUploadURL)

	huma.Register(api, huma.Operation{
		OperationID:   "intakeSubmission",
		Method:        http.MethodPost,
		Path:          "/public/forms/{formId}/submissions",
		Summary:       "Submit a form",
		Description:   "Records a submission for an uploaded video, subject to the form owner's quota",
		Tags:          []string{"public"},
		DefaultStatus: http.StatusCreated,
	}, h.Submission.IntakeSubmission)

	// ========== BILLING ==========
	huma.Register(api, huma.Operation{
		OperationID: "createCheckoutSession",
		Method:      http.MethodPost,
		Path:        "/subscriptions/checkout",
		Summary:     "Start a plan checkout",
		Tags:        []string{"subscriptions"},
	}, h.Subscription.Checkout)

	huma.Register(api, huma.Operation{
		OperationID: "createPortalSession",
		Method:      http.MethodGet,
		Path:        "/subscriptions/portal",
		Summary:     "Open the billing portal",
		Tags:        []string{"subscriptions"},
	}, h.Subscription.Portal)

	huma.Register(api, huma.Operation{
		OperationID: "getSubscription",
		Method:      http.MethodGet,
		Path:        "/subscriptions/me",
		Summary:     "Get subscription",
		Tags:        []string{"subscriptions"},
	}, h.Subscription.GetSubscription)

	// ========== ADMIN ==========
	huma.Register(api, huma.Operation{
		OperationID: "provisionLimits",
		Method:      http.MethodPost,
		Path:        "/admin/users/{userId}/provision",
		Summary:     "Re-provision a user's limits",
		Tags:        []string{"admin"},
	}, h.Admin.ProvisionLimits)

	// ========== INTERNAL ==========
	huma.Register(api, huma.Operation{
		OperationID: "reportUsage",
		Method:      http.MethodPost,
		Path:        "/internal/usage",
		Summary:     "Report workflow usage",
		Description: "Increments audio minutes, storage and video minutes plus one submission; Idempotency-Key deduplicates retries",
		Tags:        []string{"internal"},
	}, h.Internal.ReportUsage)

	huma.Register(api, huma.Operation{
		OperationID: "recordSubmissionResult",
		Method:      http.MethodPost,
		Path:        "/internal/submissions/{submissionId}/result",
		Summary:     "Record a processing result",
		Tags:        []string{"internal"},
	}, h.Internal.RecordResult)

	// ========== DLQ OPERATIONS ==========
	huma.Register(api, huma.Operation{
		OperationID:   "recordDLQ",
		Method:        http.MethodPost,
		Path:          "/dlq/record",
		Summary:       "Record DLQ message",
		Description:   "Records a dead letter queue message from Pub/Sub",
		Tags:          []string{"dlq"},
		DefaultStatus: http.StatusNoContent,
	}, h.DLQ.RecordDLQ)

	logger.Info().Msg("All operations registered successfully")
}
