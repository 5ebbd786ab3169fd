package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/docstack/backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// AuthRepository handles sessions, magic-link verification tokens, and
// linked OAuth identities.
type AuthRepository struct {
	db *pgxpool.Pool
}

// NewAuthRepository creates a new AuthRepository.
func NewAuthRepository(db *pgxpool.Pool) *AuthRepository {
	return &AuthRepository{db: db}
}

// CreateVerificationToken stores a magic-link token for an email identifier.
// Only a bcrypt hash of the token touches the database; a leaked dump cannot
// be replayed as sign-in links.
func (r *AuthRepository) CreateVerificationToken(ctx context.Context, t *domain.VerificationToken) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(t.Token), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash verification token: %w", err)
	}
	query := `INSERT INTO verification_tokens (identifier, token, expires) VALUES ($1, $2, $3)`
	if _, err := r.db.Exec(ctx, query, t.Identifier, string(hash), t.Expires); err != nil {
		return fmt.Errorf("failed to create verification token: %w", err)
	}
	return nil
}

// ConsumeVerificationToken deletes the identifier's token and returns it if
// the presented value matches the stored hash and has not expired. Single
// use: a second call with the same token misses.
func (r *AuthRepository) ConsumeVerificationToken(ctx context.Context, identifier, token string) (*domain.VerificationToken, error) {
	rows, err := r.db.Query(ctx,
		`SELECT token, expires FROM verification_tokens WHERE identifier = $1`, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to load verification tokens: %w", err)
	}
	defer rows.Close()

	var matchedHash string
	var expires time.Time
	for rows.Next() {
		var hash string
		var exp time.Time
		if err := rows.Scan(&hash, &exp); err != nil {
			return nil, fmt.Errorf("failed to scan verification token: %w", err)
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil {
			matchedHash = hash
			expires = exp
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load verification tokens: %w", err)
	}
	rows.Close()

	if matchedHash == "" {
		return nil, nil
	}
	if _, err := r.db.Exec(ctx,
		`DELETE FROM verification_tokens WHERE identifier = $1 AND token = $2`,
		identifier, matchedHash); err != nil {
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}
	if time.Now().After(expires) {
		return nil, nil
	}
	return &domain.VerificationToken{Identifier: identifier, Token: token, Expires: expires}, nil
}

// CreateSession stores a sign-in session row.
func (r *AuthRepository) CreateSession(ctx context.Context, s *domain.Session) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	query := `INSERT INTO sessions (id, user_id, session_token, expires) VALUES ($1, $2, $3, $4)`
	_, err := r.db.Exec(ctx, query, s.ID, s.UserID, s.SessionToken, s.Expires)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// DeleteSession removes a session by token.
func (r *AuthRepository) DeleteSession(ctx context.Context, sessionToken string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE session_token = $1`, sessionToken)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions clears sessions past their expiry.
func (r *AuthRepository) DeleteExpiredSessions(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires < NOW()`)
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}

// UpsertOAuthAccount links an external identity to a user. The (provider,
// provider_account_id) pair is unique; re-auth refreshes the tokens.
func (r *AuthRepository) UpsertOAuthAccount(ctx context.Context, a *domain.OAuthAccount) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	query := `
		INSERT INTO oauth_accounts (id, user_id, type, provider, provider_account_id, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, provider_account_id) DO UPDATE SET
			access_token  = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at    = EXCLUDED.expires_at
	`
	_, err := r.db.Exec(ctx, query,
		a.ID, a.UserID, a.Type, a.Provider, a.ProviderAccountID,
		a.AccessToken, a.RefreshToken, a.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert oauth account: %w", err)
	}
	return nil
}

// FindUserIDByOAuthAccount returns the linked user for a provider identity,
// or "" if none exists.
func (r *AuthRepository) FindUserIDByOAuthAccount(ctx context.Context, provider, providerAccountID string) (string, error) {
	var userID string
	err := r.db.QueryRow(ctx,
		`SELECT user_id FROM oauth_accounts WHERE provider = $1 AND provider_account_id = $2`,
		provider, providerAccountID,
	).Scan(&userID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to find oauth account: %w", err)
	}
	return userID, nil
}
