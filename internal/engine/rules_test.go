package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func c(rank Rank, suit Suit) Card { return Card{Rank: rank, Suit: suit} }

func TestCanPlayOn(t *testing.T) {
	top := c(RankFive, SuitSpades)
	tests := []struct {
		name   string
		card   Card
		active Suit
		want   bool
	}{
		{"ace is wild", c(RankAce, SuitHearts), SuitSpades, true},
		{"matches active suit", c(RankNine, SuitSpades), SuitSpades, true},
		{"matches top rank", c(RankFive, SuitHearts), SuitSpades, true},
		{"neither", c(RankNine, SuitHearts), SuitSpades, false},
		{"active suit overrides top suit", c(RankNine, SuitClubs), SuitClubs, true},
		{"top suit no longer counts", c(RankNine, SuitSpades), SuitClubs, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanPlayOn(tt.card, top, tt.active))
		})
	}
}

func TestLinks(t *testing.T) {
	assert.True(t, Links(c(RankSeven, SuitHearts), c(RankSeven, SuitClubs)))
	assert.True(t, Links(c(RankSeven, SuitHearts), c(RankEight, SuitHearts)))
	assert.True(t, Links(c(RankEight, SuitHearts), c(RankSeven, SuitHearts)))
	assert.True(t, Links(c(RankAce, SuitHearts), c(RankTwo, SuitHearts)))
	assert.True(t, Links(c(RankTen, SuitHearts), c(RankJack, SuitHearts)))
	assert.True(t, Links(c(RankQueen, SuitHearts), c(RankKing, SuitHearts)))

	assert.False(t, Links(c(RankSeven, SuitHearts), c(RankEight, SuitClubs)))
	assert.False(t, Links(c(RankSeven, SuitHearts), c(RankNine, SuitHearts)))
	assert.False(t, Links(c(RankKing, SuitHearts), c(RankAce, SuitHearts)), "runs do not wrap")
}

func TestRequiredRank(t *testing.T) {
	assert.Equal(t, Rank(""), Pending{}.RequiredRank())
	assert.Equal(t, RankTwo, Pending{Draw2: 2}.RequiredRank())
	assert.Equal(t, RankJack, Pending{DrawJ: 5}.RequiredRank())
	assert.Equal(t, RankEight, Pending{Skip: 1}.RequiredRank())
}

func TestValidatePlay(t *testing.T) {
	top := c(RankFive, SuitSpades)

	t.Run("empty", func(t *testing.T) {
		err := ValidatePlay(nil, top, SuitSpades, Pending{})
		assert.ErrorIs(t, err, ErrIllegalPlay)
	})
	t.Run("same rank set", func(t *testing.T) {
		cards := []Card{c(RankFive, SuitHearts), c(RankFive, SuitClubs), c(RankFive, SuitDiamonds)}
		assert.NoError(t, ValidatePlay(cards, top, SuitSpades, Pending{}))
	})
	t.Run("suit run", func(t *testing.T) {
		cards := []Card{c(RankSix, SuitSpades), c(RankSeven, SuitSpades), c(RankEight, SuitSpades)}
		assert.NoError(t, ValidatePlay(cards, top, SuitSpades, Pending{}))
	})
	t.Run("rank then run", func(t *testing.T) {
		cards := []Card{c(RankFive, SuitHearts), c(RankSix, SuitHearts), c(RankSix, SuitClubs)}
		assert.NoError(t, ValidatePlay(cards, top, SuitSpades, Pending{}))
	})
	t.Run("broken link", func(t *testing.T) {
		cards := []Card{c(RankSix, SuitSpades), c(RankEight, SuitSpades)}
		err := ValidatePlay(cards, top, SuitSpades, Pending{})
		require.Error(t, err)
		assert.Equal(t, ReasonIllegalPlay, ReasonOf(err))
	})
	t.Run("bad start", func(t *testing.T) {
		cards := []Card{c(RankNine, SuitHearts)}
		assert.ErrorIs(t, ValidatePlay(cards, top, SuitSpades, Pending{}), ErrIllegalPlay)
	})
	t.Run("draw2 gate", func(t *testing.T) {
		two := c(RankTwo, SuitSpades)
		assert.ErrorIs(t, ValidatePlay([]Card{c(RankSix, SuitSpades)}, two, SuitSpades, Pending{Draw2: 2}), ErrIllegalPlay)
		assert.NoError(t, ValidatePlay([]Card{c(RankTwo, SuitHearts)}, two, SuitSpades, Pending{Draw2: 2}))
	})
	t.Run("jack gate", func(t *testing.T) {
		jack := c(RankJack, SuitClubs)
		assert.ErrorIs(t, ValidatePlay([]Card{c(RankAce, SuitHearts)}, jack, SuitClubs, Pending{DrawJ: 5}), ErrIllegalPlay)
		assert.NoError(t, ValidatePlay([]Card{c(RankJack, SuitHearts)}, jack, SuitClubs, Pending{DrawJ: 5}))
	})
	t.Run("skip gate", func(t *testing.T) {
		eight := c(RankEight, SuitClubs)
		assert.ErrorIs(t, ValidatePlay([]Card{c(RankNine, SuitClubs)}, eight, SuitClubs, Pending{Skip: 1}), ErrIllegalPlay)
		assert.NoError(t, ValidatePlay([]Card{c(RankEight, SuitDiamonds)}, eight, SuitClubs, Pending{Skip: 1}))
	})
}

func TestQualifyingPowerCards(t *testing.T) {
	set := []Card{c(RankTwo, SuitHearts), c(RankTwo, SuitClubs)}
	assert.Len(t, qualifyingPowerCards(set), 2)

	run := []Card{c(RankTwo, SuitHearts), c(RankThree, SuitHearts)}
	assert.Empty(t, qualifyingPowerCards(run), "only the terminal card of a run counts")

	endsOnPower := []Card{c(RankSeven, SuitHearts), c(RankEight, SuitHearts)}
	require.Len(t, qualifyingPowerCards(endsOnPower), 1)
	assert.Equal(t, RankEight, qualifyingPowerCards(endsOnPower)[0].Rank)

	plain := []Card{c(RankFive, SuitHearts), c(RankFive, SuitClubs)}
	assert.Empty(t, qualifyingPowerCards(plain))
}

func TestPendingDrawCountersFold(t *testing.T) {
	tbl := &Table{PendingDrawJ: 5}
	tbl.raiseDraw2(2)
	assert.Equal(t, 7, tbl.PendingDraw2)
	assert.Zero(t, tbl.PendingDrawJ)

	tbl.raiseDrawJ(5)
	assert.Equal(t, 12, tbl.PendingDrawJ)
	assert.Zero(t, tbl.PendingDraw2)
}
