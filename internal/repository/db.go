package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the initial schema migration.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id                  TEXT PRIMARY KEY,
			email               TEXT NOT NULL UNIQUE,
			name                TEXT NOT NULL DEFAULT '',
			image               TEXT NOT NULL DEFAULT '',
			provider            TEXT NOT NULL DEFAULT 'google',
			subscription_status TEXT NOT NULL DEFAULT 'free',
			billing_customer_id TEXT NOT NULL DEFAULT '',
			credits             INT NOT NULL DEFAULT 0 CHECK (credits >= 0),
			trial_ends_at       TIMESTAMPTZ,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_billing_customer ON users(billing_customer_id);

		CREATE TABLE IF NOT EXISTS subscriptions (
			id                   TEXT PRIMARY KEY,
			user_id              TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			billing_customer_id  TEXT NOT NULL DEFAULT '',
			provider_sub_id      TEXT UNIQUE,
			price_id             TEXT NOT NULL DEFAULT '',
			plan_name            TEXT NOT NULL DEFAULT '',
			billing_period       TEXT NOT NULL DEFAULT 'monthly',
			status               TEXT NOT NULL DEFAULT 'incomplete',
			current_period_start TIMESTAMPTZ,
			current_period_end   TIMESTAMPTZ,
			cancel_at            TIMESTAMPTZ,
			canceled_at          TIMESTAMPTZ,
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS payments (
			id                  TEXT PRIMARY KEY,
			user_id             TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			billing_customer_id TEXT NOT NULL DEFAULT '',
			payment_intent_id   TEXT UNIQUE,
			amount              BIGINT NOT NULL,
			currency            TEXT NOT NULL DEFAULT 'usd',
			status              TEXT NOT NULL,
			description         TEXT NOT NULL DEFAULT '',
			metadata            JSONB,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_payments_user_id ON payments(user_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS documents (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			file_name   TEXT NOT NULL DEFAULT '',
			file_size   BIGINT NOT NULL DEFAULT 0,
			file_type   TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'draft',
			data        JSONB,
			metadata    JSONB,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_documents_user_created ON documents(user_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS document_history (
			id          TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			version     INT NOT NULL,
			data        JSONB,
			changed_by  TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (document_id, version)
		);

		CREATE TABLE IF NOT EXISTS templates (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL DEFAULT '',
			data        JSONB,
			is_public   BOOLEAN NOT NULL DEFAULT FALSE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_templates_user_id ON templates(user_id);
		CREATE INDEX IF NOT EXISTS idx_templates_category ON templates(category) WHERE is_public;

		CREATE TABLE IF NOT EXISTS activity_logs (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			action     TEXT NOT NULL,
			details    JSONB,
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_activity_user_created ON activity_logs(user_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS sessions (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			session_token TEXT NOT NULL UNIQUE,
			expires       TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires);

		CREATE TABLE IF NOT EXISTS verification_tokens (
			identifier TEXT NOT NULL,
			token      TEXT NOT NULL,
			expires    TIMESTAMPTZ NOT NULL,
			UNIQUE (identifier, token)
		);
		CREATE INDEX IF NOT EXISTS idx_verification_expires ON verification_tokens(expires);

		CREATE TABLE IF NOT EXISTS oauth_accounts (
			id                  TEXT PRIMARY KEY,
			user_id             TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type                TEXT NOT NULL DEFAULT 'oauth',
			provider            TEXT NOT NULL,
			provider_account_id TEXT NOT NULL,
			access_token        TEXT NOT NULL DEFAULT '',
			refresh_token       TEXT NOT NULL DEFAULT '',
			expires_at          BIGINT,
			UNIQUE (provider, provider_account_id)
		);
		CREATE INDEX IF NOT EXISTS idx_oauth_accounts_user ON oauth_accounts(user_id);
	`
	_, err := pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
