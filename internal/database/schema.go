// internal/database/schema.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// schema is idempotent so both binaries may run it at boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id               UUID PRIMARY KEY,
		email            TEXT UNIQUE,
		password         TEXT NOT NULL DEFAULT '',
		username         TEXT NOT NULL,
		is_ephemeral     BOOLEAN NOT NULL DEFAULT FALSE,
		is_admin         BOOLEAN NOT NULL DEFAULT FALSE,
		rating           INTEGER NOT NULL DEFAULT 1500,
		rating_deviation DOUBLE PRECISION NOT NULL DEFAULT 350,
		volatility       DOUBLE PRECISION NOT NULL DEFAULT 0.06,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id            UUID PRIMARY KEY,
		lobby_id      UUID,
		status        TEXT NOT NULL DEFAULT 'in_progress',
		initial_state JSONB,
		final_state   JSONB,
		winner_id     UUID,
		start_time    TIMESTAMPTZ,
		end_time      TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS match_results (
		match_id   UUID NOT NULL REFERENCES matches(id),
		user_id    UUID NOT NULL,
		seat       INTEGER NOT NULL,
		cards_left INTEGER NOT NULL,
		did_win    BOOLEAN NOT NULL,
		PRIMARY KEY (match_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS match_actions (
		match_id       UUID NOT NULL,
		action_index   INTEGER NOT NULL,
		actor_user_id  UUID,
		action_type    TEXT NOT NULL,
		action_payload JSONB,
		created_at     TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (match_id, action_index)
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		user_id    UUID NOT NULL,
		match_id   UUID NOT NULL,
		old_rating INTEGER NOT NULL,
		new_rating INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates any missing tables.
func EnsureSchema(ctx context.Context) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}
