package engine

import "github.com/google/uuid"

// EventType names a state change produced by an accepted intent.
type EventType string

const (
	EventCardsPlayed        EventType = "cards_played"
	EventCardsDrawn         EventType = "cards_drawn"
	EventPenaltyDrawn       EventType = "penalty_drawn"
	EventPendingDrawChanged EventType = "pending_draw_changed"
	EventSkipAdded          EventType = "skip_added"
	EventTurnSkipped        EventType = "turn_skipped"
	EventDirectionReversed  EventType = "direction_reversed"
	EventExtraTurn          EventType = "extra_turn"
	EventSuitChoiceRequired EventType = "suit_choice_required"
	EventSuitChosen         EventType = "suit_chosen"
	EventLastDeclared       EventType = "last_declared"
	EventTurnChanged        EventType = "turn_changed"
	EventDeckReshuffled     EventType = "deck_reshuffled"
	EventDeckReplenished    EventType = "deck_replenished"
	EventMatchWon           EventType = "match_won"
	EventMatchAbandoned     EventType = "match_abandoned"
)

// Event is one observable consequence of an intent. Cards is public for plays and
// private (owner only) for draws; see Private.
type Event struct {
	Type     EventType `json:"type"`
	PlayerID uuid.UUID `json:"playerId"`
	Cards    []Card    `json:"cards,omitempty"`
	Count    int       `json:"count,omitempty"`
	Suit     Suit      `json:"suit,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// Private reports whether the event carries cards only PlayerID may see.
func (e Event) Private() bool {
	return (e.Type == EventCardsDrawn || e.Type == EventPenaltyDrawn) && len(e.Cards) > 0
}

// Redacted returns a copy safe to send to anyone other than PlayerID.
func (e Event) Redacted() Event {
	if !e.Private() {
		return e
	}
	out := e
	out.Cards = nil
	return out
}
