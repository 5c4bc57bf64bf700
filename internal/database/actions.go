// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/oldskool/internal/cache"
)

// InsertMatchActions persists a batch of action records in one transaction. Replayed
// records are ignored.
func InsertMatchActions(ctx context.Context, batch []cache.MatchActionRecord) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batch {
			if err := insertMatchActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertMatchActionTx: %w", err)
			}
		}
		return nil
	})
}

func insertMatchActionTx(ctx context.Context, tx pgx.Tx, rec cache.MatchActionRecord) error {
	upsertMatchQ := `
		INSERT INTO matches (id, status, start_time)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertMatchQ, rec.MatchID); err != nil {
		return err
	}

	jsonPayload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	var actor interface{}
	if rec.ActorUserID != uuid.Nil {
		actor = rec.ActorUserID
	}
	actionInsertQ := `
		INSERT INTO match_actions (
			match_id, action_index, actor_user_id, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, actionInsertQ,
		rec.MatchID, rec.ActionIndex, actor, rec.ActionType, jsonPayload, time.UnixMilli(rec.Timestamp),
	)
	if err != nil {
		return err
	}

	if rec.ActionType == cache.ActionMatchEnd {
		status := "completed"
		if abandoned, _ := rec.ActionPayload["abandoned"].(bool); abandoned {
			status = "abandoned"
		}
		finalizeQ := `
			UPDATE matches
			SET status = $2, end_time = COALESCE(end_time, NOW())
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err = tx.Exec(ctx, finalizeQ, rec.MatchID, status); err != nil {
			return err
		}
	}
	return nil
}

// MarkMatchAbandoned flags a match that is still in progress. It reports whether a row
// changed.
func MarkMatchAbandoned(ctx context.Context, matchID uuid.UUID) (bool, error) {
	var changed bool
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE matches
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		tag, e := tx.Exec(ctx, q, matchID)
		if e != nil {
			return e
		}
		changed = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("mark match %v abandoned: %w", matchID, err)
	}
	return changed, nil
}
