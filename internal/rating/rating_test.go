package rating

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/oldskool/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUsers(n int) []models.User {
	users := make([]models.User, n)
	for i := range users {
		users[i] = models.User{ID: uuid.New(), Rating: 1500}
	}
	return users
}

func TestHeadToHead(t *testing.T) {
	users := newUsers(2)
	updated := FinalizeRatings(users, users[0].ID, map[uuid.UUID]int{users[0].ID: 0, users[1].ID: 4})

	require.Len(t, updated, 2)
	assert.Greater(t, updated[0].Rating, 1500)
	assert.Less(t, updated[1].Rating, 1500)
	assert.Equal(t, 1500-updated[1].Rating, updated[0].Rating-1500, "equal ratings move symmetrically")
	assert.Less(t, updated[0].RatingDeviation, DefaultPhi)
	assert.Equal(t, 1500, users[0].Rating, "input is not mutated")
}

func TestFourPlayerStandings(t *testing.T) {
	users := newUsers(4)
	winner := users[2].ID
	cards := map[uuid.UUID]int{
		users[0].ID: 6,
		users[1].ID: 1,
		users[2].ID: 0,
		users[3].ID: 6,
	}
	updated := FinalizeRatings(users, winner, cards)

	assert.Greater(t, updated[2].Rating, updated[1].Rating)
	assert.Greater(t, updated[1].Rating, updated[0].Rating)
	assert.Equal(t, updated[0].Rating, updated[3].Rating, "tied losers share a result")
	assert.Less(t, updated[0].Rating, 1500)
}

func TestUpsetMovesMoreThanExpectedWin(t *testing.T) {
	strong := models.User{ID: uuid.New(), Rating: 1900, RatingDeviation: 80, Volatility: DefaultSigma}
	weak := models.User{ID: uuid.New(), Rating: 1300, RatingDeviation: 80, Volatility: DefaultSigma}

	expected := FinalizeRatings([]models.User{strong, weak}, strong.ID, nil)
	upset := FinalizeRatings([]models.User{strong, weak}, weak.ID, nil)

	gainExpected := expected[0].Rating - strong.Rating
	gainUpset := upset[1].Rating - weak.Rating
	assert.Greater(t, gainUpset, gainExpected)
}

func TestUnratedUsersGetDefaults(t *testing.T) {
	users := []models.User{{ID: uuid.New()}, {ID: uuid.New()}}
	updated := FinalizeRatings(users, users[1].ID, nil)
	assert.Greater(t, updated[1].Rating, 1500)
	assert.False(t, math.IsNaN(updated[0].Volatility))
	assert.InDelta(t, DefaultSigma, updated[0].Volatility, 0.01)
}

// Example from Glickman's paper: a 1500/200 player against three opponents.
func TestGlickmanReference(t *testing.T) {
	r := NewGlicko2Rating(1500, 200, 0.06)
	got := update(r, []outcome{
		{opp: NewGlicko2Rating(1400, 30, 0.06), score: 1},
		{opp: NewGlicko2Rating(1550, 100, 0.06), score: 0},
		{opp: NewGlicko2Rating(1700, 300, 0.06), score: 0},
	})
	assert.InDelta(t, 1464.06, got.ToElo(), 0.1)
	assert.InDelta(t, 151.52, got.RD(), 0.1)
	assert.InDelta(t, 0.05999, got.Sigma, 0.0001)
}

func TestNoGamesOnlyWidensDeviation(t *testing.T) {
	r := NewGlicko2Rating(1600, 100, 0.06)
	got := update(r, nil)
	assert.Equal(t, r.Mu, got.Mu)
	assert.Greater(t, got.Phi, r.Phi)
}
