package repository

import (
	"context"
	"fmt"

	"github.com/docstack/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, name, image, provider, subscription_status, billing_customer_id, credits, trial_ends_at, created_at, updated_at`

// UserRepository handles database operations for users.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, email, name, image, provider, subscription_status, billing_customer_id, credits, trial_ends_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		u.ID, domain.NormalizeEmail(u.Email), u.Name, u.Image, u.Provider,
		u.SubscriptionStatus, u.BillingCustomerID, u.Credits, u.TrialEndsAt,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByEmail returns a user by case-normalized email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, domain.NormalizeEmail(email)))
}

// FindByID returns a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// FindByBillingCustomerID returns a user by external billing customer reference.
func (r *UserRepository) FindByBillingCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	if customerID == "" {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE billing_customer_id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, customerID))
}

// SetBillingCustomerID stores the external billing customer reference.
func (r *UserRepository) SetBillingCustomerID(ctx context.Context, id, customerID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET billing_customer_id = $1, updated_at = NOW() WHERE id = $2`,
		customerID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set billing customer: %w", err)
	}
	return nil
}

// UpdateSubscriptionStatus propagates the provider subscription status onto
// the user record.
func (r *UserRepository) UpdateSubscriptionStatus(ctx context.Context, id, status string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET subscription_status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription status: %w", err)
	}
	return nil
}

// Credits returns the user's current credit balance.
func (r *UserRepository) Credits(ctx context.Context, id string) (int, error) {
	var credits int
	err := r.db.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1`, id).Scan(&credits)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read credits: %w", err)
	}
	return credits, nil
}

// AddCredits atomically increments the user's credit balance.
func (r *UserRepository) AddCredits(ctx context.Context, id string, amount int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET credits = credits + $1, updated_at = NOW() WHERE id = $2`,
		amount, id,
	)
	if err != nil {
		return fmt.Errorf("failed to add credits: %w", err)
	}
	return nil
}

// ConsumeCredit decrements the balance by one only if it is positive, and
// reports whether the decrement applied. This is the single race-free gate
// for concurrent document creation on pay-per-use accounts.
func (r *UserRepository) ConsumeCredit(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET credits = credits - 1, updated_at = NOW() WHERE id = $1 AND credits > 0`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to consume credit: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepository) scanOne(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.Image, &u.Provider,
		&u.SubscriptionStatus, &u.BillingCustomerID, &u.Credits, &u.TrialEndsAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}
