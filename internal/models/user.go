package models

import "github.com/google/uuid"

// DefaultRating is the starting rating for new accounts.
const DefaultRating = 1500

type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	IsEphemeral bool `json:"is_ephemeral"`
	IsAdmin     bool `json:"is_admin"`

	// Glicko-2 state, stored on the 1500-based scale.
	Rating          int     `json:"rating"`
	RatingDeviation float64 `json:"rating_deviation"`
	Volatility      float64 `json:"volatility"`
}
