package domain

import (
	"encoding/json"
	"time"
)

// Payment statuses.
const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// Payment is an append-only ledger entry for a completed or failed payment.
// Rows are never mutated after creation.
type Payment struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	BillingCustomerID string          `json:"-"`
	PaymentIntentID   string          `json:"-"`
	Amount            int64           `json:"amount"`
	Currency          string          `json:"currency"`
	Status            string          `json:"status"`
	Description       string          `json:"description,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}
