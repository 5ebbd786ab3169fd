package domain

import "time"

// Subscription statuses mirrored from the billing provider lifecycle.
const (
	SubStatusIncomplete = "incomplete"
	SubStatusTrialing   = "trialing"
	SubStatusActive     = "active"
	SubStatusPastDue    = "past_due"
	SubStatusCanceled   = "canceled"
)

// Subscription mirrors the billing provider's subscription state for a user.
// At most one row exists per user (upsert semantics on reconciliation).
type Subscription struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"userId"`
	BillingCustomerID  string     `json:"-"`
	ProviderSubID      string     `json:"-"`
	PriceID            string     `json:"-"`
	PlanName           string     `json:"planName"`
	BillingPeriod      string     `json:"billingPeriod"`
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"currentPeriodEnd,omitempty"`
	CancelAt           *time.Time `json:"cancelAt,omitempty"`
	CanceledAt         *time.Time `json:"canceledAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Qualifying reports whether this subscription grants plan access.
// Only active and trialing qualify; past_due falls through to credit
// evaluation until the provider reports recovery.
func (s *Subscription) Qualifying() bool {
	return s != nil && (s.Status == SubStatusActive || s.Status == SubStatusTrialing)
}
