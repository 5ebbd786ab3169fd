package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/docstack/backend/internal/domain"
	"github.com/docstack/backend/pkg/billing"
	"github.com/google/uuid"
)

// BillingConfig holds the price mapping and conversion rate for the
// reconciler.
type BillingConfig struct {
	AppURL              string
	PriceIDStarter      string
	PriceIDProfessional string
	PriceIDPayPerUse    string
	// CreditPriceCents is the one-time payment amount that buys a single
	// credit (default 200 = $2 per credit).
	CreditPriceCents int64
}

// BillingService reconciles billing-provider webhook events into local
// account, subscription, and payment state, and creates checkout sessions.
type BillingService struct {
	users    UserStore
	subs     SubscriptionStore
	payments PaymentStore
	activity ActivityStore
	gateway  billing.Gateway
	verifier billing.WebhookVerifier
	cfg      BillingConfig
	now      func() time.Time
}

// NewBillingService creates a new BillingService.
func NewBillingService(users UserStore, subs SubscriptionStore, payments PaymentStore, activity ActivityStore, gateway billing.Gateway, verifier billing.WebhookVerifier, cfg BillingConfig) *BillingService {
	if cfg.CreditPriceCents <= 0 {
		cfg.CreditPriceCents = 200
	}
	return &BillingService{
		users:    users,
		subs:     subs,
		payments: payments,
		activity: activity,
		gateway:  gateway,
		verifier: verifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// HandleEvent verifies and applies a webhook delivery. Handlers are
// idempotent: redelivering the same event must not double-apply effects.
// Unknown event types and events for unknown accounts are acknowledged as
// no-ops.
func (s *BillingService) HandleEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.verifier.VerifyAndParse(payload, sigHeader)
	if err != nil {
		if errors.Is(err, billing.ErrNotConfigured) {
			return domain.ErrNotConfigured("billing webhook secret")
		}
		return domain.ErrInvalidSignature(err)
	}

	switch event.Type {
	case billing.EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated:
		return s.handleSubscriptionChange(ctx, event)
	case billing.EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event)
	case billing.EventInvoicePaymentSuccess:
		return s.handleInvoicePaid(ctx, event)
	case billing.EventInvoicePaymentFailed:
		return s.handleInvoiceFailed(ctx, event)
	default:
		// Forward compatibility: acknowledge types we don't handle.
		return nil
	}
}

func (s *BillingService) handleCheckoutCompleted(ctx context.Context, event *billing.Event) error {
	var sess billing.CheckoutSession
	if err := json.Unmarshal(event.Data.Object, &sess); err != nil {
		return domain.ErrBadRequest("malformed checkout session payload")
	}

	// Subscription-mode checkouts are reconciled via the subscription
	// events that follow; only one-time payments grant credits here.
	if sess.Mode != billing.ModePayment {
		return nil
	}

	user, err := s.resolveUser(ctx, sess.Customer, sess.CustomerEmail)
	if err != nil {
		return err
	}
	if user == nil {
		log.Printf("billing: checkout %s for unknown customer %q, ignoring", sess.ID, sess.Customer)
		return nil
	}

	credits := int(sess.AmountTotal / s.cfg.CreditPriceCents)

	metadata, _ := json.Marshal(map[string]interface{}{"credits": credits})
	inserted, err := s.payments.Insert(ctx, &domain.Payment{
		ID:                uuid.New().String(),
		UserID:            user.ID,
		BillingCustomerID: sess.Customer,
		PaymentIntentID:   sess.PaymentIntent,
		Amount:            sess.AmountTotal,
		Currency:          currencyOrDefault(sess.Currency),
		Status:            domain.PaymentSucceeded,
		Description:       fmt.Sprintf("One-time payment - %d credits", credits),
		Metadata:          metadata,
	})
	if err != nil {
		return domain.ErrInternal("failed to record payment", err)
	}
	if !inserted {
		// Redelivered event: the ledger already has this payment intent.
		return nil
	}

	if credits > 0 {
		if err := s.users.AddCredits(ctx, user.ID, credits); err != nil {
			return domain.ErrInternal("failed to grant credits", err)
		}
	}

	s.logActivity(ctx, user.ID, domain.ActivityPaymentCompleted, map[string]interface{}{
		"amount":   sess.AmountTotal,
		"currency": sess.Currency,
		"credits":  credits,
	})
	return nil
}

func (s *BillingService) handleSubscriptionChange(ctx context.Context, event *billing.Event) error {
	var obj billing.SubscriptionObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return domain.ErrBadRequest("malformed subscription payload")
	}

	user, err := s.users.FindByBillingCustomerID(ctx, obj.Customer)
	if err != nil {
		return domain.ErrInternal("failed to resolve customer", err)
	}
	if user == nil {
		log.Printf("billing: subscription %s for unknown customer %q, ignoring", obj.ID, obj.Customer)
		return nil
	}

	sub := &domain.Subscription{
		UserID:             user.ID,
		BillingCustomerID:  obj.Customer,
		ProviderSubID:      obj.ID,
		PriceID:            obj.PriceID(),
		PlanName:           s.planForPrice(obj.PriceID()),
		BillingPeriod:      "monthly",
		Status:             obj.Status,
		CurrentPeriodStart: epochTime(obj.CurrentPeriodStart),
		CurrentPeriodEnd:   epochTime(obj.CurrentPeriodEnd),
		CancelAt:           epochTimePtr(obj.CancelAt),
		CanceledAt:         epochTimePtr(obj.CanceledAt),
	}
	if err := s.subs.Upsert(ctx, sub); err != nil {
		return domain.ErrInternal("failed to upsert subscription", err)
	}

	if err := s.users.UpdateSubscriptionStatus(ctx, user.ID, obj.Status); err != nil {
		return domain.ErrInternal("failed to update user status", err)
	}
	return nil
}

func (s *BillingService) handleSubscriptionDeleted(ctx context.Context, event *billing.Event) error {
	var obj billing.SubscriptionObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return domain.ErrBadRequest("malformed subscription payload")
	}

	existing, err := s.subs.FindByProviderSubID(ctx, obj.ID)
	if err != nil {
		return domain.ErrInternal("failed to resolve subscription", err)
	}
	if existing == nil {
		// Nothing to cancel; acknowledge without state change.
		return nil
	}

	if err := s.subs.MarkCanceled(ctx, existing.UserID, s.now()); err != nil {
		return domain.ErrInternal("failed to cancel subscription", err)
	}
	if err := s.users.UpdateSubscriptionStatus(ctx, existing.UserID, domain.PlanFree); err != nil {
		return domain.ErrInternal("failed to update user status", err)
	}
	return nil
}

func (s *BillingService) handleInvoicePaid(ctx context.Context, event *billing.Event) error {
	var inv billing.Invoice
	if err := json.Unmarshal(event.Data.Object, &inv); err != nil {
		return domain.ErrBadRequest("malformed invoice payload")
	}

	user, err := s.users.FindByBillingCustomerID(ctx, inv.Customer)
	if err != nil {
		return domain.ErrInternal("failed to resolve customer", err)
	}
	if user == nil {
		return nil
	}

	ref := inv.Number
	if ref == "" {
		ref = inv.ID
	}
	if _, err := s.payments.Insert(ctx, &domain.Payment{
		ID:                uuid.New().String(),
		UserID:            user.ID,
		BillingCustomerID: inv.Customer,
		PaymentIntentID:   inv.PaymentIntent,
		Amount:            inv.AmountPaid,
		Currency:          currencyOrDefault(inv.Currency),
		Status:            domain.PaymentSucceeded,
		Description:       fmt.Sprintf("Subscription payment - Invoice %s", ref),
	}); err != nil {
		return domain.ErrInternal("failed to record payment", err)
	}

	s.logActivity(ctx, user.ID, domain.ActivityInvoicePaid, map[string]interface{}{
		"amount":    inv.AmountPaid,
		"currency":  inv.Currency,
		"invoiceId": inv.ID,
	})
	return nil
}

func (s *BillingService) handleInvoiceFailed(ctx context.Context, event *billing.Event) error {
	var inv billing.Invoice
	if err := json.Unmarshal(event.Data.Object, &inv); err != nil {
		return domain.ErrBadRequest("malformed invoice payload")
	}

	user, err := s.users.FindByBillingCustomerID(ctx, inv.Customer)
	if err != nil {
		return domain.ErrInternal("failed to resolve customer", err)
	}
	if user == nil {
		return nil
	}

	if err := s.subs.UpdateStatus(ctx, user.ID, domain.SubStatusPastDue); err != nil {
		return domain.ErrInternal("failed to update subscription", err)
	}

	s.logActivity(ctx, user.ID, domain.ActivityPaymentFailed, map[string]interface{}{
		"invoiceId": inv.ID,
	})
	return nil
}

// CreateCheckout creates (or reuses) the billing customer for the user and
// returns the hosted checkout redirect URL.
func (s *BillingService) CreateCheckout(ctx context.Context, userID, priceID, mode string) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return "", domain.ErrUnauthorized("unknown user")
	}

	customerID := user.BillingCustomerID
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, user.Email, user.ID)
		if err != nil {
			return "", s.gatewayError("failed to create billing customer", err)
		}
		if err := s.users.SetBillingCustomerID(ctx, user.ID, customerID); err != nil {
			return "", domain.ErrInternal("failed to store billing customer", err)
		}
	}

	if priceID == "" {
		priceID = s.cfg.PriceIDProfessional
	}
	if priceID == "" {
		return "", domain.ErrNotConfigured("billing price")
	}
	if mode == "" {
		mode = billing.ModeSubscription
	}

	successURL := s.cfg.AppURL + "/dashboard?success=true"
	if mode == billing.ModePayment {
		successURL = s.cfg.AppURL + "/dashboard?payment=success"
	}

	url, err := s.gateway.CreateCheckoutSession(ctx, billing.CheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		Mode:       mode,
		SuccessURL: successURL,
		CancelURL:  s.cfg.AppURL + "/pricing",
		Metadata:   map[string]string{"userId": user.ID, "mode": mode},
	})
	if err != nil {
		return "", s.gatewayError("failed to create checkout session", err)
	}
	return url, nil
}

// resolveUser finds a user by billing customer reference, falling back to
// email lookup for checkouts started before a customer existed.
func (s *BillingService) resolveUser(ctx context.Context, customerID, email string) (*domain.User, error) {
	user, err := s.users.FindByBillingCustomerID(ctx, customerID)
	if err != nil {
		return nil, domain.ErrInternal("failed to resolve customer", err)
	}
	if user == nil && email != "" {
		user, err = s.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, domain.ErrInternal("failed to resolve customer by email", err)
		}
	}
	return user, nil
}

// planForPrice maps a provider price reference to a plan name. Prices that
// match neither the starter nor the pay-per-use identifier map to
// professional.
func (s *BillingService) planForPrice(priceID string) string {
	switch {
	case priceID != "" && priceID == s.cfg.PriceIDStarter:
		return domain.PlanStarter
	case priceID != "" && priceID == s.cfg.PriceIDPayPerUse:
		return domain.PlanPayPerUse
	default:
		return domain.PlanProfessional
	}
}

// logActivity records a timeline entry; failures are logged, not surfaced,
// so a full ledger write never fails the event over a timeline miss.
func (s *BillingService) logActivity(ctx context.Context, userID, action string, details map[string]interface{}) {
	raw, _ := json.Marshal(details)
	if err := s.activity.Log(ctx, &domain.ActivityLog{UserID: userID, Action: action, Details: raw}); err != nil {
		log.Printf("billing: failed to log %s activity for %s: %v", action, userID, err)
	}
}

func (s *BillingService) gatewayError(msg string, err error) error {
	if errors.Is(err, billing.ErrNotConfigured) {
		return domain.ErrNotConfigured("billing provider")
	}
	return domain.ErrInternal(msg, err)
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return "usd"
	}
	return currency
}

func epochTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func epochTimePtr(sec *int64) *time.Time {
	if sec == nil {
		return nil
	}
	return epochTime(*sec)
}
