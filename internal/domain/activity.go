package domain

import (
	"encoding/json"
	"time"
)

// Activity actions recorded by the backend.
const (
	ActivityPaymentCompleted = "payment_completed"
	ActivityInvoicePaid      = "invoice_paid"
	ActivityPaymentFailed    = "payment_failed"
	ActivityDocumentCreated  = "document_created"
	ActivitySignIn           = "sign_in"
)

// ActivityLog records a user-visible event for the account timeline.
type ActivityLog struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	IPAddress string          `json:"-"`
	UserAgent string          `json:"-"`
	CreatedAt time.Time       `json:"createdAt"`
}
