package handler

import (
	"net/http"
	"strconv"

	"github.com/docstack/backend/internal/contextkeys"
	"github.com/docstack/backend/internal/domain"
	"github.com/docstack/backend/internal/service"
)

// UserHandler serves the caller's entitlement, credit, and history views.
type UserHandler struct {
	entitlement *EntitlementView
}

// EntitlementView bundles the read-side services the user endpoints need.
type EntitlementView struct {
	Entitlements *service.EntitlementService
	Users        service.UserStore
	Payments     service.PaymentStore
	Activity     service.ActivityStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(view *EntitlementView) *UserHandler {
	return &UserHandler{entitlement: view}
}

// Credits handles GET /api/user/credits.
func (h *UserHandler) Credits(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	credits, err := h.entitlement.Users.Credits(r.Context(), userID)
	if err != nil {
		Error(w, domain.ErrInternal("failed to fetch credits", err))
		return
	}

	JSON(w, http.StatusOK, map[string]int{"credits": credits})
}

// Plan handles GET /api/user/plan.
func (h *UserHandler) Plan(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	plan, err := h.entitlement.Entitlements.ResolvePlan(r.Context(), userID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, plan)
}

// Usage handles GET /api/user/usage: remaining documents plus an optional
// upgrade recommendation.
func (h *UserHandler) Usage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	ctx := r.Context()
	remaining, err := h.entitlement.Entitlements.RemainingDocuments(ctx, userID)
	if err != nil {
		Error(w, err)
		return
	}
	canCreate, err := h.entitlement.Entitlements.CanCreateDocument(ctx, userID)
	if err != nil {
		Error(w, err)
		return
	}
	recommendation, err := h.entitlement.Entitlements.UpgradeRecommendation(ctx, userID)
	if err != nil {
		Error(w, err)
		return
	}

	resp := map[string]interface{}{
		"remainingDocuments": remaining,
		"canCreateDocument":  canCreate,
	}
	if recommendation != "" {
		resp["upgradeRecommendation"] = recommendation
	}
	JSON(w, http.StatusOK, resp)
}

// Payments handles GET /api/user/payments.
func (h *UserHandler) Payments(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	payments, err := h.entitlement.Payments.ListByUserID(r.Context(), userID)
	if err != nil {
		Error(w, domain.ErrInternal("failed to list payments", err))
		return
	}
	if payments == nil {
		payments = []*domain.Payment{}
	}

	JSON(w, http.StatusOK, payments)
}

// Activity handles GET /api/user/activity?limit=N.
func (h *UserHandler) Activity(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		Error(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.entitlement.Activity.ListByUser(r.Context(), userID, limit)
	if err != nil {
		Error(w, domain.ErrInternal("failed to list activity", err))
		return
	}
	if entries == nil {
		entries = []*domain.ActivityLog{}
	}

	JSON(w, http.StatusOK, entries)
}

func currentUser(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(contextkeys.UserID).(string)
	return userID, ok && userID != ""
}
