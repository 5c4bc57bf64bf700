// internal/engine/view.go
package engine

import "github.com/google/uuid"

// SeatView is the public face of a seated player.
type SeatView struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	HandCount     int       `json:"handCount"`
	LastCalled    bool      `json:"lastCalled"`
	IsCurrentTurn bool      `json:"isCurrentTurn"`
}

// PlayerView is the snapshot one recipient may see: their own hand plus public state.
type PlayerView struct {
	MatchID              uuid.UUID  `json:"matchId"`
	Phase                Phase      `json:"phase"`
	ViewerID             uuid.UUID  `json:"viewerId"`
	Hand                 []Card     `json:"hand,omitempty"`
	Seats                []SeatView `json:"seats"`
	TopCard              *Card      `json:"topCard,omitempty"`
	ActiveSuit           Suit       `json:"activeSuit"`
	PendingDraw2         int        `json:"pendingDraw2"`
	PendingDrawJ         int        `json:"pendingDrawJ"`
	PendingSkip          int        `json:"pendingSkip"`
	TurnPlayerID         uuid.UUID  `json:"turnPlayerId"`
	Direction            int        `json:"direction"`
	AwaitingSuitChoiceBy *uuid.UUID `json:"awaitingSuitChoiceBy,omitempty"`
	Winner               *uuid.UUID `json:"winner,omitempty"`
	Abandoned            bool       `json:"abandoned"`
	DeckSize             int        `json:"deckSize"`
	DiscardSize          int        `json:"discardSize"`
}

// ProjectView derives the snapshot for forPlayerID. Unknown viewers get the public
// fields only.
func ProjectView(t *Table, forPlayerID uuid.UUID) PlayerView {
	v := PlayerView{
		MatchID:      t.ID,
		Phase:        t.Phase,
		ViewerID:     forPlayerID,
		ActiveSuit:   t.ActiveSuit,
		PendingDraw2: t.PendingDraw2,
		PendingDrawJ: t.PendingDrawJ,
		PendingSkip:  t.PendingSkip,
		Direction:    t.Direction,
		Abandoned:    t.Abandoned,
		DeckSize:     len(t.Deck),
		DiscardSize:  len(t.Discard),
	}
	if t.AwaitingSuitChoiceBy != uuid.Nil {
		id := t.AwaitingSuitChoiceBy
		v.AwaitingSuitChoiceBy = &id
	}
	if t.Winner != uuid.Nil {
		id := t.Winner
		v.Winner = &id
	}
	if top, ok := t.TopCard(); ok {
		v.TopCard = &top
	}
	if cur := t.CurrentPlayer(); cur != nil {
		v.TurnPlayerID = cur.ID
	}
	v.Seats = make([]SeatView, 0, len(t.Players))
	for i, p := range t.Players {
		v.Seats = append(v.Seats, SeatView{
			ID:            p.ID,
			Name:          p.Name,
			HandCount:     len(p.Hand),
			LastCalled:    p.LastCalled,
			IsCurrentTurn: i == t.TurnIndex && !t.Ended(),
		})
		if p.ID == forPlayerID {
			v.Hand = make([]Card, len(p.Hand))
			copy(v.Hand, p.Hand)
		}
	}
	return v
}
