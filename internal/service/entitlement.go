package service

import (
	"context"
	"time"

	"github.com/docstack/backend/internal/domain"
)

// EntitlementService computes a user's effective plan from subscription and
// credit state, enforces document quotas, and gates credit consumption.
type EntitlementService struct {
	users    UserStore
	subs     SubscriptionStore
	payments PaymentStore
	docs     DocumentStore
	now      func() time.Time
}

// NewEntitlementService creates a new EntitlementService.
func NewEntitlementService(users UserStore, subs SubscriptionStore, payments PaymentStore, docs DocumentStore) *EntitlementService {
	return &EntitlementService{
		users:    users,
		subs:     subs,
		payments: payments,
		docs:     docs,
		now:      time.Now,
	}
}

// ResolvePlan returns the effective plan for a user. A qualifying
// subscription (active or trialing) always wins over credits; a paying
// subscriber is never quota-limited by leftover credits. With no
// subscription, a positive credit balance yields the pay-per-use plan whose
// monthly limit is the balance itself. Everything else is the free plan.
func (s *EntitlementService) ResolvePlan(ctx context.Context, userID string) (domain.Plan, error) {
	sub, err := s.subs.FindQualifyingByUserID(ctx, userID)
	if err != nil {
		return domain.Plan{}, domain.ErrInternal("failed to resolve subscription", err)
	}
	if sub.Qualifying() {
		return domain.SubscriptionPlan(sub.PlanName), nil
	}

	credits, err := s.users.Credits(ctx, userID)
	if err != nil {
		return domain.Plan{}, domain.ErrInternal("failed to read credits", err)
	}
	if credits > 0 {
		return domain.PayPerUsePlan(credits), nil
	}

	return domain.FreePlan(), nil
}

// CanCreateDocument reports whether the user may create another document.
// Pay-per-use users can as long as they hold credits; subscription plans
// compare this month's document count against the plan quota.
func (s *EntitlementService) CanCreateDocument(ctx context.Context, userID string) (bool, error) {
	plan, err := s.ResolvePlan(ctx, userID)
	if err != nil {
		return false, err
	}
	if plan.MonthlyDocumentLimit == 0 {
		return false, nil
	}
	if plan.Name == domain.PlanPayPerUse {
		return plan.MonthlyDocumentLimit > 0, nil
	}

	used, err := s.docs.CountCreatedSince(ctx, userID, s.startOfMonth())
	if err != nil {
		return false, domain.ErrInternal("failed to count documents", err)
	}
	return used < plan.MonthlyDocumentLimit, nil
}

// RemainingDocuments returns how many documents the user can still create
// this month. For pay-per-use this is the raw credit balance.
func (s *EntitlementService) RemainingDocuments(ctx context.Context, userID string) (int, error) {
	plan, err := s.ResolvePlan(ctx, userID)
	if err != nil {
		return 0, err
	}
	if plan.MonthlyDocumentLimit == 0 {
		return 0, nil
	}
	if plan.Name == domain.PlanPayPerUse {
		return plan.MonthlyDocumentLimit, nil
	}

	used, err := s.docs.CountCreatedSince(ctx, userID, s.startOfMonth())
	if err != nil {
		return 0, domain.ErrInternal("failed to count documents", err)
	}
	remaining := plan.MonthlyDocumentLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// UpgradeRecommendation suggests a plan change based on usage, or returns
// "" when the current plan fits. Free users are pointed at starter;
// pay-per-use users who paid twice in the trailing 60 days get better value
// from starter; starter users within 5 documents of their quota are pointed
// at professional.
func (s *EntitlementService) UpgradeRecommendation(ctx context.Context, userID string) (string, error) {
	plan, err := s.ResolvePlan(ctx, userID)
	if err != nil {
		return "", err
	}

	switch plan.Name {
	case domain.PlanFree:
		return domain.PlanStarter, nil

	case domain.PlanPayPerUse:
		since := s.now().AddDate(0, 0, -60)
		count, err := s.payments.CountSucceededSince(ctx, userID, since)
		if err != nil {
			return "", domain.ErrInternal("failed to count payments", err)
		}
		if count >= 2 {
			return domain.PlanStarter, nil
		}

	case domain.PlanStarter:
		remaining, err := s.RemainingDocuments(ctx, userID)
		if err != nil {
			return "", err
		}
		if remaining <= 5 {
			return domain.PlanProfessional, nil
		}
	}

	return "", nil
}

// ConsumeCreditIfNeeded is the credit gate for document creation.
// Subscribers pass through untouched; everyone else gets a single atomic
// conditional decrement, so two concurrent requests against one remaining
// credit cannot both succeed.
func (s *EntitlementService) ConsumeCreditIfNeeded(ctx context.Context, userID string) (bool, error) {
	sub, err := s.subs.FindQualifyingByUserID(ctx, userID)
	if err != nil {
		return false, domain.ErrInternal("failed to resolve subscription", err)
	}
	if sub.Qualifying() {
		return true, nil
	}

	ok, err := s.users.ConsumeCredit(ctx, userID)
	if err != nil {
		return false, domain.ErrInternal("failed to consume credit", err)
	}
	return ok, nil
}

// HasAccessToGenerate reports whether the user can use generation features:
// a qualifying subscription that is not past its scheduled cancellation, or
// a positive credit balance.
func (s *EntitlementService) HasAccessToGenerate(ctx context.Context, userID string) (bool, error) {
	sub, err := s.subs.FindQualifyingByUserID(ctx, userID)
	if err != nil {
		return false, domain.ErrInternal("failed to resolve subscription", err)
	}
	if sub.Qualifying() && (sub.CancelAt == nil || sub.CancelAt.After(s.now())) {
		return true, nil
	}

	credits, err := s.users.Credits(ctx, userID)
	if err != nil {
		return false, domain.ErrInternal("failed to read credits", err)
	}
	return credits > 0, nil
}

// HasTemplateAccess reports whether the user's plan includes templates.
func (s *EntitlementService) HasTemplateAccess(ctx context.Context, userID string) (bool, error) {
	plan, err := s.ResolvePlan(ctx, userID)
	if err != nil {
		return false, err
	}
	return plan.HasTemplates, nil
}

// HasAPIAccess reports whether the user's plan includes API access.
func (s *EntitlementService) HasAPIAccess(ctx context.Context, userID string) (bool, error) {
	plan, err := s.ResolvePlan(ctx, userID)
	if err != nil {
		return false, err
	}
	return plan.HasAPI, nil
}

// RetentionDays returns the plan's storage retention window in days.
// domain.RetentionUnlimited means documents are kept indefinitely.
func (s *EntitlementService) RetentionDays(ctx context.Context, userID string) (int, error) {
	plan, err := s.ResolvePlan(ctx, userID)
	if err != nil {
		return 0, err
	}
	return plan.StorageRetentionDays, nil
}

// startOfMonth returns the first instant of the current calendar month in
// server local time. Quotas reset on this boundary.
func (s *EntitlementService) startOfMonth() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
