package rating

import (
	"math"

	"github.com/google/uuid"
	"github.com/jason-s-yu/oldskool/internal/models"
)

// FinalizeRatings rates a finished match as a set of pairwise games. The winner beats every
// other seat; among the rest, holding fewer cards beats holding more and equal counts tie.
// It returns updated copies of players in the same order.
func FinalizeRatings(players []models.User, winner uuid.UUID, cardsLeft map[uuid.UUID]int) []models.User {
	before := make([]Glicko2Rating, len(players))
	for i, u := range players {
		before[i] = fromUser(u)
	}

	updated := make([]models.User, len(players))
	for i, u := range players {
		var outcomes []outcome
		for j, opp := range players {
			if i == j {
				continue
			}
			outcomes = append(outcomes, outcome{
				opp:   before[j],
				score: pairScore(u.ID, opp.ID, winner, cardsLeft),
			})
		}
		r := update(before[i], outcomes)
		u.Rating = int(math.Round(r.ToElo()))
		u.RatingDeviation = r.RD()
		u.Volatility = r.Sigma
		updated[i] = u
	}
	return updated
}

// pairScore is a's score against b.
func pairScore(a, b, winner uuid.UUID, cardsLeft map[uuid.UUID]int) float64 {
	switch {
	case a == winner:
		return 1
	case b == winner:
		return 0
	case cardsLeft[a] < cardsLeft[b]:
		return 1
	case cardsLeft[a] > cardsLeft[b]:
		return 0
	default:
		return 0.5
	}
}

// fromUser reads a user's stored state, filling defaults for accounts never rated.
func fromUser(u models.User) Glicko2Rating {
	elo := float64(u.Rating)
	if u.Rating == 0 {
		elo = DefaultMu
	}
	rd := u.RatingDeviation
	if rd <= 0 {
		rd = DefaultPhi
	}
	sigma := u.Volatility
	if sigma <= 0 {
		sigma = DefaultSigma
	}
	return NewGlicko2Rating(elo, rd, sigma)
}
