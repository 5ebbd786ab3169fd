package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook event types the reconciler understands. Any other type is
// acknowledged as a no-op for forward compatibility.
const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventSubscriptionCreated    = "customer.subscription.created"
	EventSubscriptionUpdated    = "customer.subscription.updated"
	EventSubscriptionDeleted    = "customer.subscription.deleted"
	EventInvoicePaymentSuccess  = "invoice.payment_succeeded"
	EventInvoicePaymentFailed   = "invoice.payment_failed"
)

var (
	// ErrNotConfigured is returned when a required billing credential is
	// missing.
	ErrNotConfigured = errors.New("billing credentials not configured")
	// ErrInvalidSignature is returned when a webhook payload fails
	// verification.
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

// Event is a signed billing-provider event envelope.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the payload of a checkout.session.completed event.
type CheckoutSession struct {
	ID            string `json:"id"`
	Mode          string `json:"mode"`
	Customer      string `json:"customer"`
	CustomerEmail string `json:"customer_email"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
	PaymentIntent string `json:"payment_intent"`
}

// SubscriptionObject is the payload of customer.subscription.* events.
// Timestamps are provider epoch seconds.
type SubscriptionObject struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CancelAt           *int64 `json:"cancel_at"`
	CanceledAt         *int64 `json:"canceled_at"`
	Items              struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// PriceID returns the price reference of the first subscription item.
func (s *SubscriptionObject) PriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}

// Invoice is the payload of invoice.payment_* events.
type Invoice struct {
	ID            string `json:"id"`
	Number        string `json:"number"`
	Customer      string `json:"customer"`
	PaymentIntent string `json:"payment_intent"`
	AmountPaid    int64  `json:"amount_paid"`
	Currency      string `json:"currency"`
}

// WebhookVerifier checks a payload's authenticity and parses the event.
type WebhookVerifier interface {
	VerifyAndParse(payload []byte, sigHeader string) (*Event, error)
}

// Verifier implements the provider's "t=<unix>,v1=<hex hmac>" signature
// scheme: v1 is HMAC-SHA256 over "<t>.<payload>" with the shared secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier creates a webhook verifier with a 5-minute timestamp
// tolerance against replay.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret, tolerance: 5 * time.Minute, now: time.Now}
}

// VerifyAndParse validates the signature header against the raw payload and
// returns the parsed event. Returns ErrInvalidSignature on any mismatch.
func (v *Verifier) VerifyAndParse(payload []byte, sigHeader string) (*Event, error) {
	if v.secret == "" {
		return nil, ErrNotConfigured
	}
	if sigHeader == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	ts, sigs := parseSignatureHeader(sigHeader)
	if ts == 0 || len(sigs) == 0 {
		return nil, fmt.Errorf("%w: malformed signature header", ErrInvalidSignature)
	}

	if v.tolerance > 0 {
		age := v.now().Sub(time.Unix(ts, 0))
		if age > v.tolerance || age < -v.tolerance {
			return nil, fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
		}
	}

	expected := ComputeSignature(v.secret, ts, payload)
	valid := false
	for _, sig := range sigs {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse event payload: %w", err)
	}
	return &event, nil
}

// ComputeSignature returns the hex HMAC-SHA256 of "<ts>.<payload>".
func ComputeSignature(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader builds a signature header for a payload. Used by tests
// and local event simulation.
func SignatureHeader(secret string, ts int64, payload []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", ts, ComputeSignature(secret, ts, payload))
}

func parseSignatureHeader(header string) (int64, []string) {
	var ts int64
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, _ = strconv.ParseInt(kv[1], 10, 64)
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}
	return ts, sigs
}
