// internal/engine/actions.go
package engine

import "github.com/google/uuid"

// checkActor validates that playerID may take a turn action right now.
func (t *Table) checkActor(playerID uuid.UUID) (*Player, error) {
	if t.Ended() {
		return nil, reject(ReasonMatchEnded, "")
	}
	p := t.CurrentPlayer()
	if p == nil || p.ID != playerID {
		return nil, reject(ReasonNotYourTurn, "")
	}
	if t.AwaitingSuitChoiceBy != uuid.Nil {
		return nil, reject(ReasonAwaitingSuitChoice, "choose a suit first")
	}
	return p, nil
}

// Play plays the identified cards from playerID's hand, in order. suitChoice resolves a
// terminal Ace immediately; without it the table waits for ChooseSuit.
func (t *Table) Play(playerID uuid.UUID, cardIDs []uuid.UUID, suitChoice *Suit) ([]Event, error) {
	p, err := t.checkActor(playerID)
	if err != nil {
		return nil, err
	}
	if len(cardIDs) == 0 {
		return nil, reject(ReasonIllegalPlay, "no cards selected")
	}
	cards, ok := takeFromHand(p, cardIDs)
	if !ok {
		return nil, reject(ReasonCardsNotInHand, "")
	}
	if suitChoice != nil && !suitChoice.Valid() {
		return nil, reject(ReasonInvalidSuitChoice, "unknown suit %q", *suitChoice)
	}
	top, _ := t.TopCard()
	if err := ValidatePlay(cards, top, t.ActiveSuit, t.pending()); err != nil {
		return nil, err
	}

	removeFromHand(p, cards)
	t.Discard = append(t.Discard, cards...)
	t.emit(Event{Type: EventCardsPlayed, PlayerID: p.ID, Cards: cards, Count: len(p.Hand)})

	last := cards[len(cards)-1]
	if last.Rank != RankAce {
		t.ActiveSuit = last.Suit
	}
	for _, c := range qualifyingPowerCards(cards) {
		t.applyPowerEffect(p, c)
	}

	if len(p.Hand) == 0 {
		t.resolveFinish(p, last, suitChoice)
		return t.drainEvents(), nil
	}

	if last.Rank == RankAce {
		if suitChoice == nil {
			t.AwaitingSuitChoiceBy = p.ID
			t.emit(Event{Type: EventSuitChoiceRequired, PlayerID: p.ID})
			return t.drainEvents(), nil
		}
		t.setSuit(p, *suitChoice)
	}
	t.advanceTurn()
	return t.drainEvents(), nil
}

// resolveFinish applies the finish rule to a player whose hand just emptied.
func (t *Table) resolveFinish(p *Player, last Card, suitChoice *Suit) {
	if !p.LastCalled {
		drawn := t.giveCards(p, DirtyFinishPenalty)
		p.LastCalled = false
		t.emit(Event{Type: EventPenaltyDrawn, PlayerID: p.ID, Cards: drawn, Count: len(drawn), Reason: "dirty_finish"})
		t.resolveAceWithoutWait(p, last, suitChoice)
		t.advanceTurn()
		return
	}
	if last.IsPower() {
		drawn := t.giveCards(p, PowerFinishPenalty)
		p.LastCalled = false
		t.ExtraTurnGranted = false
		t.emit(Event{Type: EventPenaltyDrawn, PlayerID: p.ID, Cards: drawn, Count: len(drawn), Reason: "power_finish"})
		t.resolveAceWithoutWait(p, last, suitChoice)
		t.advanceTurn()
		return
	}
	t.Phase = PhaseEnded
	t.Winner = p.ID
	t.emit(Event{Type: EventMatchWon, PlayerID: p.ID})
}

// resolveAceWithoutWait fixes the active suit after a penalized finish on an Ace so play
// can continue without a pending suit choice.
func (t *Table) resolveAceWithoutWait(p *Player, last Card, suitChoice *Suit) {
	if last.Rank != RankAce {
		return
	}
	suit := last.Suit
	if suitChoice != nil {
		suit = *suitChoice
	}
	t.setSuit(p, suit)
}

func (t *Table) setSuit(p *Player, s Suit) {
	t.ActiveSuit = s
	t.emit(Event{Type: EventSuitChosen, PlayerID: p.ID, Suit: s})
}

// ChooseSuit resolves a pending Ace. Only the player who played it may call it.
func (t *Table) ChooseSuit(playerID uuid.UUID, s Suit) ([]Event, error) {
	if t.Ended() {
		return nil, reject(ReasonMatchEnded, "")
	}
	if t.AwaitingSuitChoiceBy == uuid.Nil {
		return nil, reject(ReasonIllegalPlay, "no suit choice pending")
	}
	if t.AwaitingSuitChoiceBy != playerID {
		return nil, reject(ReasonNotYourTurn, "")
	}
	if !s.Valid() {
		return nil, reject(ReasonInvalidSuitChoice, "unknown suit %q", s)
	}
	p := t.Player(playerID)
	t.AwaitingSuitChoiceBy = uuid.Nil
	t.setSuit(p, s)
	t.advanceTurn()
	return t.drainEvents(), nil
}

// Draw takes the current player's draw action: absorb a pending skip, absorb a pending
// draw attack, or draw a single card. The turn always advances.
func (t *Table) Draw(playerID uuid.UUID) ([]Event, error) {
	p, err := t.checkActor(playerID)
	if err != nil {
		return nil, err
	}
	p.LastCalled = false

	switch {
	case t.PendingSkip > 0:
		t.PendingSkip--
		t.emit(Event{Type: EventTurnSkipped, PlayerID: p.ID, Count: t.PendingSkip})
	case t.PendingDraw2 > 0 || t.PendingDrawJ > 0:
		n := t.PendingDraw2 + t.PendingDrawJ
		t.PendingDraw2, t.PendingDrawJ = 0, 0
		drawn := t.giveCards(p, n)
		t.emit(Event{Type: EventCardsDrawn, PlayerID: p.ID, Cards: drawn, Count: len(drawn), Reason: "pending_draw"})
	default:
		drawn := t.giveCards(p, 1)
		t.emit(Event{Type: EventCardsDrawn, PlayerID: p.ID, Cards: drawn, Count: len(drawn)})
	}
	t.advanceTurn()
	return t.drainEvents(), nil
}

// DeclareLast records that the current player intends to play out. It does not use up
// the turn.
func (t *Table) DeclareLast(playerID uuid.UUID) ([]Event, error) {
	p, err := t.checkActor(playerID)
	if err != nil {
		return nil, err
	}
	p.LastCalled = true
	t.emit(Event{Type: EventLastDeclared, PlayerID: p.ID, Count: len(p.Hand)})
	return t.drainEvents(), nil
}

// RemovePlayer ends the match without a winner because playerID left for good. The table
// never continues with fewer seats.
func (t *Table) RemovePlayer(playerID uuid.UUID) ([]Event, error) {
	if t.Ended() {
		return nil, reject(ReasonMatchEnded, "")
	}
	if t.seatOf(playerID) < 0 {
		return nil, reject(ReasonNotYourTurn, "player %s is not seated", playerID)
	}
	t.Phase = PhaseEnded
	t.Abandoned = true
	t.AwaitingSuitChoiceBy = uuid.Nil
	t.emit(Event{Type: EventMatchAbandoned, PlayerID: playerID})
	return t.drainEvents(), nil
}
