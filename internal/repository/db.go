package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the repositories use. pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = maxConns
	config.MinConns = minConns

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
			id                     TEXT PRIMARY KEY,
			email                  TEXT NOT NULL UNIQUE,
			password               TEXT NOT NULL,
			role                   TEXT NOT NULL DEFAULT 'user',
			package_id             TEXT,
			subscribed_at          TIMESTAMPTZ,
			expires_at             TIMESTAMPTZ,
			daily_quota_used       INT NOT NULL DEFAULT 0,
			daily_quota_reset_date DATE NOT NULL DEFAULT CURRENT_DATE,
			created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS packages (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			slug            TEXT NOT NULL UNIQUE,
			description     TEXT NOT NULL DEFAULT '',
			price           BIGINT NOT NULL,
			currency        TEXT NOT NULL DEFAULT 'USD',
			billing_period  TEXT NOT NULL,
			daily_url_quota INT NOT NULL DEFAULT 50,
			popular         BOOLEAN NOT NULL DEFAULT FALSE,
			active          BOOLEAN NOT NULL DEFAULT TRUE,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS payment_gateways (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			slug       TEXT NOT NULL UNIQUE,
			is_default BOOLEAN NOT NULL DEFAULT FALSE,
			active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS transactions (
			id                     TEXT PRIMARY KEY,
			user_id                TEXT NOT NULL,
			package_id             TEXT NOT NULL,
			gateway_id             TEXT NOT NULL,
			status                 TEXT NOT NULL DEFAULT 'pending',
			amount                 BIGINT NOT NULL,
			currency               TEXT NOT NULL DEFAULT 'USD',
			order_id               TEXT NOT NULL UNIQUE,
			gateway_transaction_id TEXT,
			verified_by            TEXT,
			verified_at            TIMESTAMPTZ,
			processed_at           TIMESTAMPTZ,
			notes                  TEXT,
			metadata               JSONB,
			created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id);
		CREATE INDEX IF NOT EXISTS idx_transactions_order_id ON transactions(order_id);

		CREATE TABLE IF NOT EXISTS recurring_subscriptions (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			package_id        TEXT NOT NULL,
			status            TEXT NOT NULL DEFAULT 'active',
			billing_period    TEXT NOT NULL,
			next_billing_date TIMESTAMPTZ NOT NULL,
			expires_at        TIMESTAMPTZ NOT NULL,
			card_token        TEXT NOT NULL,
			metadata          JSONB,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_recurring_user_id ON recurring_subscriptions(user_id);
		CREATE INDEX IF NOT EXISTS idx_recurring_due ON recurring_subscriptions(status, next_billing_date);

		CREATE TABLE IF NOT EXISTS index_jobs (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL,
			name           TEXT NOT NULL,
			type           TEXT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'pending',
			schedule_type  TEXT NOT NULL DEFAULT 'one-time',
			start_time     TIMESTAMPTZ,
			urls           TEXT[],
			sitemap_url    TEXT,
			total_urls     INT NOT NULL DEFAULT 0,
			processed_urls INT NOT NULL DEFAULT 0,
			succeeded_urls INT NOT NULL DEFAULT 0,
			failed_urls    INT NOT NULL DEFAULT 0,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_index_jobs_user_id ON index_jobs(user_id);
		CREATE INDEX IF NOT EXISTS idx_index_jobs_status ON index_jobs(status);

		CREATE TABLE IF NOT EXISTS site_settings (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	_, err := pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
