// internal/common/database/migrate.go
package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the persisted state layout: pending subscriptions,
// confirmed subscribers, generated picks keyed by period and optional
// category, the send log with its (email, period_key) uniqueness constraint,
// and feedback events. Idempotent; safe to run on every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS subscribers_pending (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL,
			send_day INT NOT NULL,
			categories TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS subscribers (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			send_day INT NOT NULL,
			categories TEXT NOT NULL,
			unsub_token TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS picks (
			id BIGSERIAL PRIMARY KEY,
			period_key TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL,
			body_html TEXT NOT NULL,
			link TEXT,
			product_name TEXT,
			status TEXT NOT NULL DEFAULT 'queued',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (period_key, category)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_picks_period ON picks(period_key)`,
		`CREATE TABLE IF NOT EXISTS send_log (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL,
			period_key TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (email, period_key)
		)`,
		`CREATE TABLE IF NOT EXISTS feedback_events (
			id BIGSERIAL PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			src TEXT,
			product TEXT,
			vote TEXT,
			comment TEXT,
			email_b64 TEXT,
			email_hash TEXT,
			ua TEXT,
			ip TEXT
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
