package engine

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// stackTable builds a table in the playing phase with a known layout. Cards are named
// rank+suit ("10S", "AH"). Every card not placed on the discard pile or in a hand goes to
// the deck, so the table starts with exactly one full deck.
func stackTable(t *testing.T, top string, hands ...[]string) *Table {
	t.Helper()
	deck := NewDeck()
	byName := make(map[string]Card, len(deck))
	for _, c := range deck {
		byName[c.String()] = c
	}
	take := func(name string) Card {
		c, ok := byName[name]
		require.True(t, ok, "card %s unknown or used twice", name)
		delete(byName, name)
		return c
	}

	tbl := &Table{
		ID:          uuid.New(),
		Direction:   1,
		Phase:       PhasePlaying,
		Rules:       DefaultRules(),
		DecksMinted: 1,
		rng:         rand.New(rand.NewSource(42)),
	}
	topCard := take(top)
	tbl.Discard = []Card{topCard}
	tbl.ActiveSuit = topCard.Suit
	for i, h := range hands {
		p := &Player{ID: uuid.New(), Name: fmt.Sprintf("player%d", i)}
		for _, name := range h {
			p.Hand = append(p.Hand, take(name))
		}
		tbl.Players = append(tbl.Players, p)
	}
	for _, c := range deck {
		if _, ok := byName[c.String()]; ok {
			tbl.Deck = append(tbl.Deck, c)
		}
	}
	requireConserved(t, tbl)
	return tbl
}

// ids resolves card names in p's hand to their ids, in the order given.
func ids(t *testing.T, p *Player, names ...string) []uuid.UUID {
	t.Helper()
	out := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		found := false
		for _, c := range p.Hand {
			if c.String() == name {
				out = append(out, c.ID)
				found = true
				break
			}
		}
		require.True(t, found, "%s does not hold %s", p.Name, name)
	}
	return out
}

func suitPtr(s Suit) *Suit { return &s }

// requireConserved checks that no card identity was lost or duplicated.
func requireConserved(t *testing.T, tbl *Table) {
	t.Helper()
	require.Equal(t, DeckSize*tbl.DecksMinted, tbl.CardCount(), "card count")
	seen := make(map[uuid.UUID]bool, tbl.CardCount())
	check := func(cards []Card) {
		for _, c := range cards {
			require.False(t, seen[c.ID], "card %s appears twice", c)
			seen[c.ID] = true
		}
	}
	check(tbl.Deck)
	check(tbl.Discard)
	for _, p := range tbl.Players {
		check(p.Hand)
	}
}

func eventTypes(evs []Event) []EventType {
	out := make([]EventType, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Type)
	}
	return out
}

func handNames(p *Player) []string {
	out := make([]string, 0, len(p.Hand))
	for _, c := range p.Hand {
		out = append(out, c.String())
	}
	return out
}
