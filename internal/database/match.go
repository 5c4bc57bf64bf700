// internal/database/match.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/oldskool/internal/game"
)

// UpsertInitialMatchState stores the dealt deck order and hands so the match can be replayed
// from its action log.
func UpsertInitialMatchState(ctx context.Context, matchID, lobbyID uuid.UUID, initial game.InitialState) error {
	dataBytes, err := json.Marshal(initial)
	if err != nil {
		return fmt.Errorf("failed to marshal initial state for match %v: %w", matchID, err)
	}
	q := `
		INSERT INTO matches (id, lobby_id, status, initial_state, start_time)
		VALUES ($1, $2, 'in_progress', $3, NOW())
		ON CONFLICT (id)
		DO UPDATE SET initial_state = EXCLUDED.initial_state, status = 'in_progress'
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, matchID, lobbyID, dataBytes)
		return e
	})
}

// RecordMatchResult closes out the match row and writes one match_results row per seat.
func RecordMatchResult(ctx context.Context, result game.MatchResult) error {
	status := "completed"
	var winner interface{}
	if result.Abandoned {
		status = "abandoned"
	} else {
		winner = result.Winner
	}

	hands := make(map[string]int, len(result.HandCounts))
	for id, n := range result.HandCounts {
		hands[id.String()] = n
	}
	finalState, err := json.Marshal(map[string]interface{}{
		"winner":    result.Winner,
		"abandoned": result.Abandoned,
		"hands":     hands,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal final state: %w", err)
	}

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertMatch := `
			INSERT INTO matches (id, lobby_id, status, final_state, winner_id, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE
			SET status = $3, final_state = $4, winner_id = $5, end_time = $7
		`
		if _, e := tx.Exec(ctx, upsertMatch, result.MatchID, result.LobbyID, status, finalState,
			winner, result.StartedAt, result.EndedAt); e != nil {
			return e
		}

		for seat, pid := range result.Players {
			q := `
				INSERT INTO match_results (match_id, user_id, seat, cards_left, did_win)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (match_id, user_id)
				DO UPDATE SET cards_left = $4, did_win = $5
			`
			didWin := !result.Abandoned && pid == result.Winner
			if _, e := tx.Exec(ctx, q, result.MatchID, pid, seat, result.HandCounts[pid], didWin); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert match or results: %w", err)
	}
	return nil
}
