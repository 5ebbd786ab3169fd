package handler

import (
	"io"
	"net/http"

	"github.com/docstack/backend/internal/contextkeys"
	"github.com/docstack/backend/internal/domain"
	"github.com/docstack/backend/internal/service"
)

// Webhook payloads are small; cap reads defensively.
const maxWebhookBody = 1 << 20

// BillingHandler handles checkout and webhook endpoints.
type BillingHandler struct {
	svc *service.BillingService
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(svc *service.BillingService) *BillingHandler {
	return &BillingHandler{svc: svc}
}

// CreateCheckoutRequest is the input for POST /api/billing/checkout.
type CreateCheckoutRequest struct {
	PriceID string `json:"priceId"`
	Mode    string `json:"mode"`
}

// CreateCheckout handles POST /api/billing/checkout.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || userID == "" {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	var req CreateCheckoutRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	url, err := h.svc.CreateCheckout(r.Context(), userID, req.PriceID, req.Mode)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]string{"url": url})
}

// Webhook handles POST /api/billing/webhook. The body must be read raw for
// signature verification before any parsing.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		Error(w, domain.ErrBadRequest("failed to read request body"))
		return
	}

	sig := r.Header.Get("Billing-Signature")
	if sig == "" {
		Error(w, domain.ErrBadRequest("missing signature"))
		return
	}

	if err := h.svc.HandleEvent(r.Context(), payload, sig); err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"received": true})
}
