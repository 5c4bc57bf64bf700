// internal/engine/table.go
package engine

import (
	"math/rand"

	"github.com/google/uuid"
)

// Phase is the lifecycle stage of a match.
type Phase string

const (
	PhaseLobby   Phase = "lobby"
	PhasePlaying Phase = "playing"
	PhaseEnded   Phase = "ended"
)

const (
	MinPlayers = 2
	MaxPlayers = 4

	// DirtyFinishPenalty is drawn by a player who empties their hand without declaring LAST.
	DirtyFinishPenalty = 2
	// PowerFinishPenalty is drawn by a player who empties their hand on a power card.
	PowerFinishPenalty = 2
)

// Rules holds the per-table knobs. Finish penalties are fixed; see DirtyFinishPenalty.
type Rules struct {
	HandSize int `json:"handSize"`
}

// DefaultRules deals seven.
func DefaultRules() Rules {
	return Rules{HandSize: 7}
}

// Player is one seat at the table.
type Player struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Hand       []Card    `json:"hand"`
	LastCalled bool      `json:"lastCalled"`
}

// Table is the authoritative state of a single match. It is not safe for concurrent use;
// callers serialize access (see game.Match).
type Table struct {
	ID      uuid.UUID
	Players []*Player
	Deck    []Card
	Discard []Card

	TurnIndex  int
	Direction  int
	ActiveSuit Suit

	PendingDraw2     int
	PendingDrawJ     int
	PendingSkip      int
	ExtraTurnGranted bool

	AwaitingSuitChoiceBy uuid.UUID
	Winner               uuid.UUID
	Phase                Phase
	Abandoned            bool

	Rules Rules

	// DecksMinted counts full decks introduced into the match; 1 unless the fresh-deck
	// recovery in drawCards ran.
	DecksMinted int

	rng    *rand.Rand
	events []Event
}

// CurrentPlayer returns the seated player whose turn it is.
func (t *Table) CurrentPlayer() *Player {
	if len(t.Players) == 0 {
		return nil
	}
	return t.Players[t.TurnIndex]
}

// Player returns the seated player with the given id, or nil.
func (t *Table) Player(id uuid.UUID) *Player {
	for _, p := range t.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (t *Table) seatOf(id uuid.UUID) int {
	for i, p := range t.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// TopCard returns the last card on the discard pile.
func (t *Table) TopCard() (Card, bool) {
	if len(t.Discard) == 0 {
		return Card{}, false
	}
	return t.Discard[len(t.Discard)-1], true
}

// CardCount totals cards across hands, deck and discard pile.
func (t *Table) CardCount() int {
	n := len(t.Deck) + len(t.Discard)
	for _, p := range t.Players {
		n += len(p.Hand)
	}
	return n
}

// Ended reports whether the match accepts no further intents.
func (t *Table) Ended() bool {
	return t.Phase == PhaseEnded
}

func (t *Table) emit(ev Event) {
	t.events = append(t.events, ev)
}

func (t *Table) drainEvents() []Event {
	out := t.events
	t.events = nil
	return out
}

// drawCards removes up to n cards from the top of the deck. When short it reshuffles the
// discard pile beneath the deck; only if the discard pile held at most its top card is a
// fresh deck minted instead. A draw still short after a reshuffle returns what is there.
func (t *Table) drawCards(n int) []Card {
	if n <= 0 {
		return nil
	}
	if len(t.Deck) < n {
		bare := len(t.Discard) <= 1
		t.replenish()
		if bare && len(t.Deck) < n {
			fresh := NewShuffledDeck(t.rng)
			t.Deck = append(t.Deck, fresh...)
			t.DecksMinted++
			t.emit(Event{Type: EventDeckReplenished, Count: len(t.Deck)})
		}
	}
	if n > len(t.Deck) {
		n = len(t.Deck)
	}
	drawn := make([]Card, n)
	copy(drawn, t.Deck[:n])
	t.Deck = t.Deck[n:]
	return drawn
}

// replenish shuffles everything but the top discard beneath the remaining deck.
func (t *Table) replenish() {
	if len(t.Discard) <= 1 {
		return
	}
	top := t.Discard[len(t.Discard)-1]
	rest := make([]Card, len(t.Discard)-1)
	copy(rest, t.Discard[:len(t.Discard)-1])
	shuffle(t.rng, rest)
	t.Deck = append(t.Deck, rest...)
	t.Discard = []Card{top}
	t.emit(Event{Type: EventDeckReshuffled, Count: len(t.Deck)})
}

// giveCards draws n cards into p's hand and returns them.
func (t *Table) giveCards(p *Player, n int) []Card {
	drawn := t.drawCards(n)
	p.Hand = append(p.Hand, drawn...)
	return drawn
}

// takeFromHand removes the identified cards from p's hand, returning them in the order
// requested. It reports false, leaving the hand untouched, if any id is missing or repeated.
func takeFromHand(p *Player, ids []uuid.UUID) ([]Card, bool) {
	idx := make(map[uuid.UUID]int, len(p.Hand))
	for i, c := range p.Hand {
		idx[c.ID] = i
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	picked := make([]Card, 0, len(ids))
	for _, id := range ids {
		i, ok := idx[id]
		if !ok || seen[id] {
			return nil, false
		}
		seen[id] = true
		picked = append(picked, p.Hand[i])
	}
	return picked, true
}

func removeFromHand(p *Player, played []Card) {
	gone := make(map[uuid.UUID]bool, len(played))
	for _, c := range played {
		gone[c.ID] = true
	}
	kept := p.Hand[:0]
	for _, c := range p.Hand {
		if !gone[c.ID] {
			kept = append(kept, c)
		}
	}
	p.Hand = kept
}
