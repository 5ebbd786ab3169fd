package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/docstack/backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const subColumns = `id, user_id, billing_customer_id, COALESCE(provider_sub_id, ''), price_id, plan_name, billing_period, status,
		current_period_start, current_period_end, cancel_at, canceled_at, created_at, updated_at`

// SubscriptionRepository handles database operations for subscriptions.
// There is at most one row per user; writes use upsert semantics.
type SubscriptionRepository struct {
	db *pgxpool.Pool
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert inserts or replaces the subscription row for sub.UserID.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *domain.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	query := `
		INSERT INTO subscriptions (id, user_id, billing_customer_id, provider_sub_id, price_id, plan_name, billing_period, status,
			current_period_start, current_period_end, cancel_at, canceled_at, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			billing_customer_id  = EXCLUDED.billing_customer_id,
			provider_sub_id      = COALESCE(EXCLUDED.provider_sub_id, subscriptions.provider_sub_id),
			price_id             = EXCLUDED.price_id,
			plan_name            = EXCLUDED.plan_name,
			billing_period       = EXCLUDED.billing_period,
			status               = EXCLUDED.status,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end   = EXCLUDED.current_period_end,
			cancel_at            = EXCLUDED.cancel_at,
			canceled_at          = EXCLUDED.canceled_at,
			updated_at           = NOW()
	`
	_, err := r.db.Exec(ctx, query,
		sub.ID, sub.UserID, sub.BillingCustomerID, sub.ProviderSubID, sub.PriceID,
		sub.PlanName, sub.BillingPeriod, sub.Status,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAt, sub.CanceledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

// FindByUserID returns the subscription row for a user, if any.
func (r *SubscriptionRepository) FindByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	query := `SELECT ` + subColumns + ` FROM subscriptions WHERE user_id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, userID))
}

// FindQualifyingByUserID returns the most recent active or trialing
// subscription for a user.
func (r *SubscriptionRepository) FindQualifyingByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	query := `
		SELECT ` + subColumns + ` FROM subscriptions
		WHERE user_id = $1 AND status IN ('active', 'trialing')
		ORDER BY created_at DESC LIMIT 1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, userID))
}

// FindByProviderSubID returns the subscription with the given external
// subscription reference.
func (r *SubscriptionRepository) FindByProviderSubID(ctx context.Context, providerSubID string) (*domain.Subscription, error) {
	query := `SELECT ` + subColumns + ` FROM subscriptions WHERE provider_sub_id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, providerSubID))
}

// UpdateStatus sets the subscription status for a user.
func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, userID, status string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET status = $1, updated_at = NOW() WHERE user_id = $2`,
		status, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	return nil
}

// MarkCanceled sets the subscription canceled with the given timestamp.
func (r *SubscriptionRepository) MarkCanceled(ctx context.Context, userID string, canceledAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET status = $1, canceled_at = $2, updated_at = NOW() WHERE user_id = $3`,
		domain.SubStatusCanceled, canceledAt, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark subscription canceled: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) scanOne(row pgx.Row) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.BillingCustomerID, &sub.ProviderSubID, &sub.PriceID,
		&sub.PlanName, &sub.BillingPeriod, &sub.Status,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAt, &sub.CanceledAt,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return &sub, nil
}
