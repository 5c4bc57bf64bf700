package engine

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShuffledDeckHasEveryCardOnce(t *testing.T) {
	deck := NewShuffledDeck(rand.New(rand.NewSource(7)))
	require.Len(t, deck, DeckSize)

	names := make(map[string]bool)
	ids := make(map[uuid.UUID]bool)
	for _, c := range deck {
		assert.False(t, names[c.String()], "duplicate %s", c)
		assert.False(t, ids[c.ID], "duplicate id on %s", c)
		assert.NotEqual(t, uuid.Nil, c.ID)
		names[c.String()] = true
		ids[c.ID] = true
	}
	for _, s := range Suits {
		for _, r := range Ranks {
			assert.True(t, names[Card{Rank: r, Suit: s}.String()], "missing %s%s", r, s)
		}
	}
}

func TestNewShuffledDeckFreshIdentities(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	a := NewShuffledDeck(r)
	b := NewShuffledDeck(r)
	seen := make(map[uuid.UUID]bool)
	for _, c := range a {
		seen[c.ID] = true
	}
	for _, c := range b {
		assert.False(t, seen[c.ID], "identity reused across decks")
	}
}

// The first position should land on every card at a similar rate. This is a coarse
// check that the shuffle is not anchored to construction order.
func TestShuffleSpreadsFirstPosition(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	counts := make(map[string]int)
	const rounds = 52 * 100
	for i := 0; i < rounds; i++ {
		counts[NewShuffledDeck(r)[0].String()]++
	}
	require.Len(t, counts, DeckSize)
	for name, n := range counts {
		assert.InDelta(t, 100, n, 50, "card %s led %d times", name, n)
	}
}

func TestRankValueAndPower(t *testing.T) {
	assert.Equal(t, 1, RankAce.Value())
	assert.Equal(t, 10, RankTen.Value())
	assert.Equal(t, 11, RankJack.Value())
	assert.Equal(t, 13, RankKing.Value())
	assert.Equal(t, 0, Rank("Z").Value())

	power := map[Rank]bool{RankAce: true, RankTwo: true, RankEight: true, RankJack: true, RankQueen: true, RankKing: true}
	for _, r := range Ranks {
		assert.Equal(t, power[r], r.IsPower(), "rank %s", r)
	}
}

func TestSuitHelpers(t *testing.T) {
	for _, s := range Suits {
		assert.True(t, s.Valid())
	}
	assert.False(t, Suit("X").Valid())
	assert.False(t, Suit("").Valid())
	assert.True(t, SuitHearts.IsRed())
	assert.True(t, SuitDiamonds.IsRed())
	assert.False(t, SuitSpades.IsRed())
	assert.False(t, SuitClubs.IsRed())
}
