package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/oldskool/internal/engine"
)

// Server frame types that are not engine events. Engine events go out with their
// EventType as the frame type.
const (
	MessageSyncState          = "sync_state"
	MessageRejected           = "rejected"
	MessageMatchEnd           = "match_end"
	MessagePlayerDisconnected = "player_disconnected"
	MessagePlayerReconnected  = "player_reconnected"
	MessageTurnTimeout        = "turn_timeout"
)

// Message is one frame sent to a single player.
type Message struct {
	Type    string                 `json:"type"`
	Event   *engine.Event          `json:"event,omitempty"`
	State   *engine.PlayerView     `json:"state,omitempty"`
	Reason  engine.Reason          `json:"reason,omitempty"`
	Message string                 `json:"message,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

func eventMessage(ev engine.Event) Message {
	return Message{Type: string(ev.Type), Event: &ev}
}

// MatchResult summarizes a finished match for persistence and rating.
type MatchResult struct {
	MatchID    uuid.UUID
	LobbyID    uuid.UUID
	Winner     uuid.UUID // uuid.Nil when abandoned
	Abandoned  bool
	Players    []uuid.UUID // seat order
	HandCounts map[uuid.UUID]int
	StartedAt  time.Time
	EndedAt    time.Time
}

// Losers returns every seated player other than the winner.
func (r MatchResult) Losers() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(r.Players))
	for _, id := range r.Players {
		if id != r.Winner {
			out = append(out, id)
		}
	}
	return out
}

// InitialState is the dealt layout of a match, kept so it can be replayed.
type InitialState struct {
	Deck    []engine.Card            `json:"deck"`
	Discard []engine.Card            `json:"discard"`
	Hands   map[string][]engine.Card `json:"hands"`
	Rules   HouseRules               `json:"rules"`
}
