package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docstack/backend/internal/domain"
	"github.com/docstack/backend/pkg/billing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

type fakeGateway struct {
	customers int
	sessions  []billing.CheckoutParams
}

func (g *fakeGateway) CreateCustomer(_ context.Context, email, userID string) (string, error) {
	g.customers++
	return fmt.Sprintf("cus_%d", g.customers), nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, params billing.CheckoutParams) (string, error) {
	g.sessions = append(g.sessions, params)
	return "https://checkout.example.com/session", nil
}

type billingFixture struct {
	svc      *BillingService
	users    *fakeUserStore
	subs     *fakeSubscriptionStore
	payments *fakePaymentStore
	activity *fakeActivityStore
	gateway  *fakeGateway
}

func newBillingFixture(users ...*domain.User) *billingFixture {
	f := &billingFixture{
		users:    newFakeUserStore(users...),
		subs:     newFakeSubscriptionStore(),
		payments: &fakePaymentStore{},
		activity: &fakeActivityStore{},
		gateway:  &fakeGateway{},
	}
	f.svc = NewBillingService(f.users, f.subs, f.payments, f.activity, f.gateway, billing.NewVerifier(testWebhookSecret), BillingConfig{
		AppURL:              "http://localhost:3000",
		PriceIDStarter:      "price_starter",
		PriceIDProfessional: "price_professional",
		PriceIDPayPerUse:    "price_payperuse",
		CreditPriceCents:    200,
	})
	return f
}

func signedEvent(payload string) ([]byte, string) {
	raw := []byte(payload)
	return raw, billing.SignatureHeader(testWebhookSecret, time.Now().Unix(), raw)
}

func TestHandleEventRejectsBadSignature(t *testing.T) {
	f := newBillingFixture()
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	err := f.svc.HandleEvent(context.Background(), payload, "t=1,v1=deadbeef")
	require.Error(t, err)

	appErr, ok := err.(*domain.AppError)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Code)
}

func TestHandleEventUnknownTypeIsAcknowledged(t *testing.T) {
	f := newBillingFixture()
	payload, sig := signedEvent(`{"id":"evt_1","type":"customer.created","data":{"object":{}}}`)

	err := f.svc.HandleEvent(context.Background(), payload, sig)
	assert.NoError(t, err)
}

func TestCheckoutCompletedGrantsCredits(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "buyer@example.com", BillingCustomerID: "cus_1"}
	f := newBillingFixture(user)
	ctx := context.Background()

	payload, sig := signedEvent(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"mode": "payment",
			"customer": "cus_1",
			"amount_total": 1000,
			"currency": "usd",
			"payment_intent": "pi_1"
		}}
	}`)

	require.NoError(t, f.svc.HandleEvent(ctx, payload, sig))

	credits, err := f.users.Credits(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, credits, "1000 cents at 200 cents per credit")

	payments, err := f.payments.ListByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, domain.PaymentSucceeded, payments[0].Status)
	assert.Equal(t, int64(1000), payments[0].Amount)

	entries, err := f.activity.ListByUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActivityPaymentCompleted, entries[0].Action)
}

func TestCheckoutCompletedRedeliveryIsIdempotent(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "buyer@example.com", BillingCustomerID: "cus_1"}
	f := newBillingFixture(user)
	ctx := context.Background()

	payload, sig := signedEvent(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"mode": "payment",
			"customer": "cus_1",
			"amount_total": 1000,
			"payment_intent": "pi_1"
		}}
	}`)

	require.NoError(t, f.svc.HandleEvent(ctx, payload, sig))
	require.NoError(t, f.svc.HandleEvent(ctx, payload, sig))

	credits, err := f.users.Credits(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, credits, "redelivery must not double-grant")

	payments, err := f.payments.ListByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestCheckoutCompletedSubscriptionModeIsDeferred(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "buyer@example.com", BillingCustomerID: "cus_1"}
	f := newBillingFixture(user)
	ctx := context.Background()

	payload, sig := signedEvent(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"mode": "subscription",
			"customer": "cus_1",
			"amount_total": 2900
		}}
	}`)

	require.NoError(t, f.svc.HandleEvent(ctx, payload, sig))

	credits, err := f.users.Credits(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, credits)
}

func TestCheckoutCompletedFallsBackToEmailLookup(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "buyer@example.com"}
	f := newBillingFixture(user)
	ctx := context.Background()

	payload, sig := signedEvent(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"mode": "payment",
			"customer": "cus_new",
			"customer_email": "buyer@example.com",
			"amount_total": 400,
			"payment_intent": "pi_2"
		}}
	}`)

	require.NoError(t, f.svc.HandleEvent(ctx, payload, sig))

	credits, err := f.users.Credits(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, credits)
}

func TestCheckoutCompletedUnknownCustomerIsIgnored(t *testing.T) {
	f := newBillingFixture()
	payload, sig := signedEvent(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"mode": "payment",
			"customer": "cus_ghost",
			"amount_total": 1000,
			"payment_intent": "pi_1"
		}}
	}`)

	assert.NoError(t, f.svc.HandleEvent(context.Background(), payload, sig))
}

func TestSubscriptionCreatedUpsertsState(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "sub@example.com", BillingCustomerID: "cus_1"}
	f := newBillingFixture(user)
	ctx := context.Background()

	payload, sig := signedEvent(`{
		"id": "evt_1",
		"type": "customer.subscription.created",
		"data": {"object": {
			"id": "sub_1",
			"customer": "cus_1",
			"status": "active",
			"current_period_start": 1735689600,
			"current_period_end": 1738368000,
			"items": {"data": [{"price": {"id": "price_starter"}}]}
		}}
	}`)

	require.NoError(t, f.svc.HandleEvent(ctx, payload, sig))

	sub, err := f.subs.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, domain.PlanStarter, sub.PlanName)
	assert.Equal(t, domain.SubStatusActive, sub.Status)
	assert.Equal(t, "sub_1", sub.ProviderSubID)

	u, err := f.users.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubStatusActive, u.SubscriptionStatus)
}

func TestSubscriptionUpdatedReplacesExistingRow(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "sub@example.com", BillingCustomerID: "cus_1"}
	f := newBillingFixture(user)
	ctx := context.Background()

	created, sig1 := signedEvent(`{
		"id": "evt_1",
		"type": "customer.subscription.created",
		"data": {"object": {
			"id": "sub_1",
			"customer": "cus_1",
			"status": "trialing",
			"items": {"data": [{"price": {"id": "price_starter"}}]}
		}}
	}`)
	require.NoError(t, f.svc.HandleEvent(ctx, created, sig1))

	updated, sig2 := signedEvent(`{
		"id": "evt_2",
		"type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_1",
			"customer": "cus_1",
			"status": "active",
			"items": {"data": [{"price": {"id": "price_professional"}}]}
		}}
	}`)
	require.NoError(t, f.svc.HandleEvent(ctx, updated, sig2))

	sub, err := f.subs.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, domain.PlanProfessional, sub.PlanName)
	assert.Equal(t, domain.SubStatusActive, sub.Status)
}

func TestSubscriptionDeletedCancelsAndDowngrades(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "sub@example.com", BillingCustomerID: "cus_1", SubscriptionStatus: domain.SubStatusActive}
	f := newBillingFixture(user)
	ctx := context.Background()

	created, sig1 := signedEvent(`{
		"id": "evt_1",
		"type": "customer.subscription.created",
		"data": {"object": {
			"id": "sub_1",
			"customer": "cus_1",
			"status": "active",
			"items": {"data": [{"price": {"id": "price_starter"}}]}
		}}
	}`)
	require.NoError(t, f.svc.HandleEvent(ctx, created, sig1))

	deleted, sig2 := signedEvent(`{
		"id": "evt_2",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "customer": "cus_1", "status": "canceled"}}
	}`)
	require.NoError(t, f.svc.HandleEvent(ctx, deleted, sig2))

	sub, err := f.subs.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, domain.SubStatusCanceled, sub.Status)
	assert.NotNil(t, sub.CanceledAt)

	u, err := f.users.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFree, u.SubscriptionStatus)
}

func TestSubscriptionDeletedUnknownRefIsIgnored(t *testing.T) {
	f := newBillingFixture()
	payload, sig := signedEvent(`{
		"id": "evt_1",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_ghost", "customer": "cus_ghost"}}
	}`)

	assert.NoError(t, f.svc.HandleEvent(context.Background(), payload, sig))
}

func TestInvoicePaymentSucceededRecordsLedgerEntry(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "sub@example.com", BillingCustomerID: "cus_1"}
	f := newBillingFixture(user)
	ctx := context.Background()

	payload, sig := signedEvent(`{
		"id": "evt_1",
		"type": "invoice.payment_succeeded",
		"data": {"object": {
			"id": "in_1",
			"number": "INV-0001",
			"customer": "cus_1",
			"payment_intent": "pi_inv_1",
			"amount_paid": 2900,
			"currency": "eur"
		}}
	}`)

	require.NoError(t, f.svc.HandleEvent(ctx, payload, sig))

	payments, err := f.payments.ListByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, int64(2900), payments[0].Amount)
	assert.Equal(t, "eur", payments[0].Currency)
	assert.Contains(t, payments[0].Description, "INV-0001")

	credits, err := f.users.Credits(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, credits, "subscription invoices never grant credits")
}

func TestInvoicePaymentFailedMarksPastDue(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "sub@example.com", BillingCustomerID: "cus_1"}
	f := newBillingFixture(user)
	ctx := context.Background()
	require.NoError(t, f.subs.Upsert(ctx, &domain.Subscription{
		UserID: "u1", BillingCustomerID: "cus_1", ProviderSubID: "sub_1",
		PlanName: domain.PlanStarter, Status: domain.SubStatusActive,
	}))

	payload, sig := signedEvent(`{
		"id": "evt_1",
		"type": "invoice.payment_failed",
		"data": {"object": {"id": "in_2", "customer": "cus_1"}}
	}`)

	require.NoError(t, f.svc.HandleEvent(ctx, payload, sig))

	sub, err := f.subs.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, domain.SubStatusPastDue, sub.Status)

	entries, err := f.activity.ListByUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActivityPaymentFailed, entries[0].Action)
}

func TestCreateCheckoutCreatesAndStoresCustomer(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "buyer@example.com"}
	f := newBillingFixture(user)
	ctx := context.Background()

	url, err := f.svc.CreateCheckout(ctx, "u1", "price_starter", billing.ModeSubscription)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example.com/session", url)

	u, err := f.users.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", u.BillingCustomerID)

	require.Len(t, f.gateway.sessions, 1)
	assert.Equal(t, "price_starter", f.gateway.sessions[0].PriceID)
	assert.Equal(t, billing.ModeSubscription, f.gateway.sessions[0].Mode)
}

func TestCreateCheckoutReusesExistingCustomer(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "buyer@example.com", BillingCustomerID: "cus_existing"}
	f := newBillingFixture(user)

	_, err := f.svc.CreateCheckout(context.Background(), "u1", "", "")
	require.NoError(t, err)

	assert.Equal(t, 0, f.gateway.customers, "no new customer for a returning buyer")
	require.Len(t, f.gateway.sessions, 1)
	assert.Equal(t, "cus_existing", f.gateway.sessions[0].CustomerID)
	assert.Equal(t, "price_professional", f.gateway.sessions[0].PriceID, "defaults to professional")
}

func TestCreateCheckoutPaymentModeSuccessURL(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "buyer@example.com", BillingCustomerID: "cus_1"}
	f := newBillingFixture(user)

	_, err := f.svc.CreateCheckout(context.Background(), "u1", "price_payperuse", billing.ModePayment)
	require.NoError(t, err)

	require.Len(t, f.gateway.sessions, 1)
	assert.Equal(t, "http://localhost:3000/dashboard?payment=success", f.gateway.sessions[0].SuccessURL)
	assert.Equal(t, "http://localhost:3000/pricing", f.gateway.sessions[0].CancelURL)
}

// Full life cycle: a free user buys credits, the webhook lands, and the
// entitlement gate opens.
func TestCreditPurchaseUnlocksDocumentCreation(t *testing.T) {
	user := &domain.User{ID: "u1", Email: "buyer@example.com", BillingCustomerID: "cus_1"}
	f := newBillingFixture(user)
	docs := newFakeDocumentStore()
	entitlements := NewEntitlementService(f.users, f.subs, f.payments, docs)
	ctx := context.Background()

	ok, err := entitlements.CanCreateDocument(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok, "no credits, no subscription")

	payload, sig := signedEvent(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"mode": "payment",
			"customer": "cus_1",
			"amount_total": 1000,
			"payment_intent": "pi_1"
		}}
	}`)
	require.NoError(t, f.svc.HandleEvent(ctx, payload, sig))

	ok, err = entitlements.CanCreateDocument(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	plan, err := entitlements.ResolvePlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPayPerUse, plan.Name)
	assert.Equal(t, 5, plan.MonthlyDocumentLimit)
}
