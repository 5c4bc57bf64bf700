package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/oldskool/internal/models"
)

// SaveRatings writes each user's new Glicko-2 state and a ratings history row, comparing
// against before (same order as after).
func SaveRatings(ctx context.Context, matchID uuid.UUID, before, after []models.User) error {
	if len(before) != len(after) {
		return fmt.Errorf("rating update mismatch: %d before, %d after", len(before), len(after))
	}
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for i, uNew := range after {
			updQ := `UPDATE users SET rating=$1, rating_deviation=$2, volatility=$3 WHERE id=$4`
			if _, e := tx.Exec(ctx, updQ, uNew.Rating, uNew.RatingDeviation, uNew.Volatility, uNew.ID); e != nil {
				return e
			}
			insQ := `
				INSERT INTO ratings (user_id, match_id, old_rating, new_rating)
				VALUES ($1, $2, $3, $4)
			`
			if _, e := tx.Exec(ctx, insQ, uNew.ID, matchID, before[i].Rating, uNew.Rating); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx rating update: %w", err)
	}
	return nil
}
