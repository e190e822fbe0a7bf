package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"intakeflow/internal/config"
	"intakeflow/internal/model"
	"intakeflow/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	billingsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	subscriptionpkg "github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

// errBadPayload marks webhook bodies Stripe should not retry.
var errBadPayload = errors.New("bad webhook payload")

// StripeService manages Stripe integration
type StripeService struct {
	cfg      *config.Config
	userRepo repository.UserRepository
	subSvc   SubscriptionService
	logger   zerolog.Logger

	// fetchSubscription loads a subscription from the Stripe API.
	fetchSubscription func(id string) (*stripe.Subscription, error)
}

// NewStripeService initializes Stripe key and returns service with a scoped logger
func NewStripeService(cfg *config.Config, userRepo repository.UserRepository, subSvc SubscriptionService, logger zerolog.Logger) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	lg := logger.With().Str("service", "StripeService").Logger()
	return &StripeService{
		cfg:      cfg,
		userRepo: userRepo,
		subSvc:   subSvc,
		logger:   lg,
		fetchSubscription: func(id string) (*stripe.Subscription, error) {
			return subscriptionpkg.Get(id, nil)
		},
	}
}

// planForPrice maps a configured Stripe price to a plan.
func (s *StripeService) planForPrice(priceID string) (model.Plan, bool) {
	switch priceID {
	case "":
		return "", false
	case s.cfg.StripePriceGo:
		return model.PlanGo, true
	case s.cfg.StripePricePro:
		return model.PlanPro, true
	}
	return "", false
}

func (s *StripeService) priceForPlan(plan model.Plan) (string, error) {
	switch plan {
	case model.PlanGo:
		return s.cfg.StripePriceGo, nil
	case model.PlanPro:
		return s.cfg.StripePricePro, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
}

func mapStripeStatus(st stripe.SubscriptionStatus) model.SubscriptionStatus {
	switch st {
	case stripe.SubscriptionStatusActive:
		return model.SubscriptionStatusActive
	case stripe.SubscriptionStatusTrialing:
		return model.SubscriptionStatusTrialing
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusIncomplete:
		return model.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusPaused:
		return model.SubscriptionStatusUnpaid
	default:
		return model.SubscriptionStatusCancelled
	}
}

// CreateCheckoutSession creates a Stripe Checkout session for a paid plan
func (s *StripeService) CreateCheckoutSession(ctx context.Context, userID string, plan model.Plan) (string, error) {
	priceID, err := s.priceForPlan(plan)
	if err != nil {
		return "", err
	}
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch user for checkout session")
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	meta := map[string]string{"user_id": userID}
	params := &stripe.CheckoutSessionParams{
		LineItems:         []*stripe.CheckoutSessionLineItemParams{{Price: stripe.String(priceID), Quantity: stripe.Int64(1)}},
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(s.cfg.StripePortalReturnURL + "?status=success"),
		CancelURL:         stripe.String(s.cfg.StripePortalReturnURL + "?status=cancel"),
		ClientReferenceID: stripe.String(userID),
		Metadata:          meta,
		SubscriptionData:  &stripe.CheckoutSessionSubscriptionDataParams{Metadata: meta},
	}
	sub, err := s.subSvc.GetSubscription(ctx, userID)
	if err != nil {
		return "", err
	}
	if sub != nil && sub.StripeCustomerID != nil && *sub.StripeCustomerID != "" {
		params.Customer = sub.StripeCustomerID
	} else {
		params.CustomerEmail = stripe.String(user.Email)
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("plan", string(plan)).Msg("Failed to create Stripe checkout session")
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortalSession creates a Stripe Customer Portal session
func (s *StripeService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	sub, err := s.subSvc.GetSubscription(ctx, userID)
	if err != nil {
		return "", err
	}
	if sub == nil || sub.StripeCustomerID == nil || *sub.StripeCustomerID == "" {
		s.logger.Warn().Str("user_id", userID).Msg("No Stripe customer ID found for user when creating portal session")
		return "", fmt.Errorf("%w: no stripe customer for user", ErrForbidden)
	}
	params := &stripe.BillingPortalSessionParams{Customer: sub.StripeCustomerID, ReturnURL: stripe.String(s.cfg.StripePortalReturnURL)}
	sess, err := billingsession.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create Stripe billing portal session")
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return sess.URL, nil
}

// HandleWebhook processes Stripe webhook events
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEventWithOptions(payload, sig, s.cfg.StripeWebhookSecret, webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}
	s.logger.Info().Str("event_type", string(event.Type)).Str("event_id", event.ID).Msg("Stripe webhook received")

	if err := s.handleEvent(r.Context(), event); err != nil {
		if errors.Is(err, errBadPayload) {
			s.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("Invalid Stripe webhook payload")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to handle Stripe webhook")
		http.Error(w, "failed to handle event", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *StripeService) handleEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		return s.onCheckoutCompleted(ctx, event.Data.Raw)
	case "customer.subscription.created", "customer.subscription.updated":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			return fmt.Errorf("%w: subscription: %v", errBadPayload, err)
		}
		return s.syncSubscription(ctx, &ss, "")
	case "customer.subscription.deleted":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			return fmt.Errorf("%w: subscription: %v", errBadPayload, err)
		}
		return s.subSvc.UpdateStatus(ctx, ss.ID, model.SubscriptionStatusCancelled)
	case "invoice.payment_succeeded":
		inv, err := parseInvoice(event.Data.Raw)
		if err != nil {
			return err
		}
		if inv.subscriptionID() == "" {
			s.logger.Info().Str("invoice_id", inv.ID).Msg("Invoice has no subscription, skipping subscription update")
			return nil
		}
		return s.subSvc.MarkPaid(ctx, inv.subscriptionID(), time.Unix(inv.Created, 0))
	case "invoice.payment_failed":
		inv, err := parseInvoice(event.Data.Raw)
		if err != nil {
			return err
		}
		if inv.subscriptionID() == "" {
			s.logger.Info().Str("invoice_id", inv.ID).Msg("Invoice has no subscription, skipping subscription update")
			return nil
		}
		return s.subSvc.UpdateStatus(ctx, inv.subscriptionID(), model.SubscriptionStatusPastDue)
	default:
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Unhandled Stripe webhook event")
		return nil
	}
}

func (s *StripeService) onCheckoutCompleted(ctx context.Context, raw json.RawMessage) error {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(raw, &cs); err != nil {
		return fmt.Errorf("%w: checkout.session: %v", errBadPayload, err)
	}
	if cs.Subscription == nil || cs.Subscription.ID == "" {
		s.logger.Info().Str("checkout_session_id", cs.ID).Msg("Checkout session without subscription, skipping")
		return nil
	}
	userID := cs.Metadata["user_id"]
	if userID == "" {
		userID = cs.ClientReferenceID
	}
	if userID == "" {
		return fmt.Errorf("%w: missing user_id in checkout session metadata", errBadPayload)
	}

	// The session only references the subscription; fetch it for price and period.
	subObj, err := s.fetchSubscription(cs.Subscription.ID)
	if err != nil {
		return fmt.Errorf("fetch subscription %s: %w", cs.Subscription.ID, err)
	}
	if subObj.Customer == nil && cs.Customer != nil {
		subObj.Customer = cs.Customer
	}
	return s.syncSubscription(ctx, subObj, userID)
}

// syncSubscription writes a Stripe subscription to the local row. userID may be empty, in which case it
// is taken from metadata or from the row already bound to the customer.
func (s *StripeService) syncSubscription(ctx context.Context, ss *stripe.Subscription, userID string) error {
	customerID := ""
	if ss.Customer != nil {
		customerID = ss.Customer.ID
	}
	if userID == "" {
		userID = ss.Metadata["user_id"]
	}
	if userID == "" && customerID != "" {
		s.logger.Warn().Str("stripe_customer_id", customerID).Msg("Missing user_id metadata; looking up user by customer ID")
		existing, err := s.subSvc.GetByStripeCustomerID(ctx, customerID)
		if err != nil {
			return err
		}
		if existing != nil {
			userID = existing.UserID
		}
	}
	if userID == "" {
		return fmt.Errorf("%w: cannot determine user for subscription %s", errBadPayload, ss.ID)
	}

	if ss.Items == nil || len(ss.Items.Data) == 0 {
		return fmt.Errorf("%w: subscription %s has no items", errBadPayload, ss.ID)
	}
	item := ss.Items.Data[0]
	priceID := ""
	if item.Price != nil {
		priceID = item.Price.ID
	}
	plan, ok := s.planForPrice(priceID)
	if !ok {
		// Retrying will not make an unknown price known; acknowledge and alert.
		s.logger.Error().Str("subscription_id", ss.ID).Str("price_id", priceID).Msg("Stripe price does not map to a plan")
		return nil
	}

	start := time.Unix(item.CurrentPeriodStart, 0)
	end := time.Unix(item.CurrentPeriodEnd, 0)
	sub := &model.Subscription{
		UserID:               userID,
		Plan:                 plan,
		PlanKey:              string(plan),
		Status:               mapStripeStatus(ss.Status),
		StripeSubscriptionID: stripe.String(ss.ID),
		CurrentPeriodStart:   &start,
		CurrentPeriodEnd:     &end,
	}
	if customerID != "" {
		sub.StripeCustomerID = stripe.String(customerID)
	}

	s.logger.Info().Str("subscription_id", ss.ID).Str("plan", string(plan)).Str("status", string(sub.Status)).Str("user_id", userID).Msg("Syncing Stripe subscription")
	if _, err := s.subSvc.SyncStripeSubscription(ctx, sub); err != nil {
		return err
	}
	return nil
}

// invoiceEvent holds the invoice fields the webhook needs. The subscription moved under
// parent.subscription_details in newer API versions; both places are read.
type invoiceEvent struct {
	ID           string `json:"id"`
	Created      int64  `json:"created"`
	Subscription string `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (i *invoiceEvent) subscriptionID() string {
	if i.Parent != nil && i.Parent.SubscriptionDetails != nil && i.Parent.SubscriptionDetails.Subscription != "" {
		return i.Parent.SubscriptionDetails.Subscription
	}
	return i.Subscription
}

func parseInvoice(raw json.RawMessage) (*invoiceEvent, error) {
	var inv invoiceEvent
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("%w: invoice: %v", errBadPayload, err)
	}
	if inv.Created == 0 {
		inv.Created = time.Now().Unix()
	}
	return &inv, nil
}
