package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/docstack/backend/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository handles the append-only payment ledger.
type PaymentRepository struct {
	db *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Insert appends a ledger row. When the payment carries an external
// payment-intent reference, the unique constraint on that column makes
// redelivered webhook events collapse into a no-op: Insert reports whether
// a row was actually written.
func (r *PaymentRepository) Insert(ctx context.Context, p *domain.Payment) (bool, error) {
	query := `
		INSERT INTO payments (id, user_id, billing_customer_id, payment_intent_id, amount, currency, status, description, metadata, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (payment_intent_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		p.ID, p.UserID, p.BillingCustomerID, p.PaymentIntentID,
		p.Amount, p.Currency, p.Status, p.Description, p.Metadata,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByUserID returns a user's payments, newest first.
func (r *PaymentRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Payment, error) {
	query := `
		SELECT id, user_id, billing_customer_id, COALESCE(payment_intent_id, ''), amount, currency, status, description, metadata, created_at
		FROM payments WHERE user_id = $1 ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.BillingCustomerID, &p.PaymentIntentID,
			&p.Amount, &p.Currency, &p.Status, &p.Description, &p.Metadata, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}

// CountSucceededSince counts a user's succeeded payments created at or after
// the given instant. Used by the upgrade heuristic.
func (r *PaymentRepository) CountSucceededSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM payments WHERE user_id = $1 AND status = $2 AND created_at >= $3`,
		userID, domain.PaymentSucceeded, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return count, nil
}
