// internal/engine/match.go
package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Seat is a roster entry handed over by the room manager when a match starts.
type Seat struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// maxDeals bounds redeals when no non-power starter can be found.
const maxDeals = 16

// CreateMatch seats the roster in order, deals Rules.HandSize cards to each player and
// turns up a non-power starting card. A nil r seeds from the clock.
func CreateMatch(seats []Seat, rules Rules, r *rand.Rand) (*Table, error) {
	if len(seats) < MinPlayers || len(seats) > MaxPlayers {
		return nil, fmt.Errorf("match needs %d-%d players, got %d", MinPlayers, MaxPlayers, len(seats))
	}
	seen := make(map[uuid.UUID]bool, len(seats))
	for _, s := range seats {
		if s.ID == uuid.Nil {
			return nil, fmt.Errorf("seat %q has no id", s.Name)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("player %s seated twice", s.ID)
		}
		seen[s.ID] = true
	}
	if rules.HandSize <= 0 || rules.HandSize*len(seats) >= DeckSize {
		return nil, fmt.Errorf("hand size %d does not fit %d players", rules.HandSize, len(seats))
	}
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	t := &Table{
		ID:          uuid.New(),
		Direction:   1,
		Phase:       PhaseLobby,
		Rules:       rules,
		DecksMinted: 1,
		rng:         r,
	}
	for _, s := range seats {
		t.Players = append(t.Players, &Player{ID: s.ID, Name: s.Name})
	}

	for attempt := 0; attempt < maxDeals; attempt++ {
		if t.deal() {
			t.Phase = PhasePlaying
			t.events = nil
			return t, nil
		}
	}
	return nil, fmt.Errorf("could not turn up a starting card after %d deals", maxDeals)
}

// deal shuffles a fresh deck, fills every hand and reveals the starter. Power cards found
// on top are moved to the bottom of the deck. It reports false if the undealt cards
// hold no non-power card.
func (t *Table) deal() bool {
	t.Deck = NewShuffledDeck(t.rng)
	t.Discard = nil
	for _, p := range t.Players {
		p.Hand = t.drawCards(t.Rules.HandSize)
		p.LastCalled = false
	}
	for i := 0; i < len(t.Deck); i++ {
		c := t.Deck[0]
		t.Deck = t.Deck[1:]
		if !c.IsPower() {
			t.Discard = []Card{c}
			t.ActiveSuit = c.Suit
			t.TurnIndex = 0
			return true
		}
		t.Deck = append(t.Deck, c)
	}
	return false
}
