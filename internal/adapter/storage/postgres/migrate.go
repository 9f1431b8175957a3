package postgres

import (
	"context"
	"fmt"
)

// schema is applied in order by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS purchase_transactions (
		id               UUID PRIMARY KEY,
		idempotency_key  TEXT        NOT NULL,
		state            TEXT        NOT NULL,
		request          JSONB       NOT NULL,
		attempt_count    INTEGER     NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL,
		first_attempt_at TIMESTAMPTZ,
		last_attempt_at  TIMESTAMPTZ,
		completed_at     TIMESTAMPTZ,
		terminal_result  JSONB,
		deadline         TIMESTAMPTZ
	)`,
	`ALTER TABLE purchase_transactions ADD COLUMN IF NOT EXISTS deadline TIMESTAMPTZ`,
	`CREATE INDEX IF NOT EXISTS idx_purchase_transactions_state ON purchase_transactions (state)`,
	`CREATE TABLE IF NOT EXISTS purchase_attempts (
		transaction_id UUID        NOT NULL REFERENCES purchase_transactions (id) ON DELETE CASCADE,
		sequence       INTEGER     NOT NULL,
		started_at     TIMESTAMPTZ NOT NULL,
		ended_at       TIMESTAMPTZ NOT NULL,
		result         JSONB       NOT NULL,
		late           BOOLEAN     NOT NULL DEFAULT FALSE,
		PRIMARY KEY (transaction_id, sequence)
	)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		transaction_id  UUID PRIMARY KEY,
		idempotency_key TEXT        NOT NULL UNIQUE,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the purchase tables if they do not exist.
func Migrate(ctx context.Context, pool Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}
