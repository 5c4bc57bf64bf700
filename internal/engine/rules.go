// internal/engine/rules.go
package engine

// CanPlayOn reports whether c may be played as a single card onto top while activeSuit
// is in force. Aces are wild on entry.
func CanPlayOn(c, top Card, activeSuit Suit) bool {
	switch {
	case c.Rank == RankAce:
		return true
	case c.Suit == activeSuit:
		return true
	case c.Rank == top.Rank:
		return true
	}
	return false
}

// Links reports whether next may follow prev inside a combo: same rank, or same suit with
// adjacent values.
func Links(prev, next Card) bool {
	if prev.Rank == next.Rank {
		return true
	}
	if prev.Suit != next.Suit {
		return false
	}
	d := prev.Rank.Value() - next.Rank.Value()
	return d == 1 || d == -1
}

// IsSameRankSet reports whether every card shares one rank.
func IsSameRankSet(cards []Card) bool {
	for _, c := range cards[1:] {
		if c.Rank != cards[0].Rank {
			return false
		}
	}
	return true
}

// Pending is the outstanding attack a player must answer.
type Pending struct {
	Draw2 int
	DrawJ int
	Skip  int
}

// RequiredRank returns the rank the first card must have to answer p, or "" when no
// obligation is pending.
func (p Pending) RequiredRank() Rank {
	switch {
	case p.Draw2 > 0:
		return RankTwo
	case p.DrawJ > 0:
		return RankJack
	case p.Skip > 0:
		return RankEight
	}
	return ""
}

func (t *Table) pending() Pending {
	return Pending{Draw2: t.PendingDraw2, DrawJ: t.PendingDrawJ, Skip: t.PendingSkip}
}

// ValidatePlay checks an ordered multi-card play against the current top card, active
// suit and pending obligations. It returns a RejectError with ReasonIllegalPlay on failure.
func ValidatePlay(cards []Card, top Card, activeSuit Suit, p Pending) error {
	if len(cards) == 0 {
		return reject(ReasonIllegalPlay, "no cards selected")
	}
	first := cards[0]
	if need := p.RequiredRank(); need != "" && first.Rank != need {
		return reject(ReasonIllegalPlay, "must answer with a %s or draw", need)
	}
	if !CanPlayOn(first, top, activeSuit) {
		return reject(ReasonIllegalPlay, "%s cannot be played on %s (active suit %s)", first, top, activeSuit)
	}
	for i := 1; i < len(cards); i++ {
		if !Links(cards[i-1], cards[i]) {
			return reject(ReasonIllegalPlay, "%s does not follow %s", cards[i], cards[i-1])
		}
	}
	return nil
}

// qualifyingPowerCards returns the cards whose effects resolve for this play: every card
// of a same-rank set, otherwise only the terminal card.
func qualifyingPowerCards(cards []Card) []Card {
	if IsSameRankSet(cards) {
		out := make([]Card, 0, len(cards))
		for _, c := range cards {
			if c.IsPower() {
				out = append(out, c)
			}
		}
		return out
	}
	last := cards[len(cards)-1]
	if last.IsPower() {
		return []Card{last}
	}
	return nil
}

// applyPowerEffect resolves one qualifying card. Aces are handled by the caller since
// their resolution waits on a suit choice.
func (t *Table) applyPowerEffect(actor *Player, c Card) {
	switch c.Rank {
	case RankTwo:
		t.raiseDraw2(2)
		t.emit(Event{Type: EventPendingDrawChanged, PlayerID: actor.ID, Count: t.PendingDraw2, Reason: string(RankTwo)})
	case RankEight:
		t.PendingSkip++
		t.emit(Event{Type: EventSkipAdded, PlayerID: actor.ID, Count: t.PendingSkip})
	case RankQueen:
		t.Direction = -t.Direction
		t.emit(Event{Type: EventDirectionReversed, PlayerID: actor.ID, Count: t.Direction})
	case RankKing:
		if !t.ExtraTurnGranted {
			t.emit(Event{Type: EventExtraTurn, PlayerID: actor.ID})
		}
		t.ExtraTurnGranted = true
	case RankJack:
		if c.Suit.IsRed() {
			t.PendingDrawJ = 0
		} else {
			t.raiseDrawJ(5)
		}
		t.emit(Event{Type: EventPendingDrawChanged, PlayerID: actor.ID, Count: t.PendingDrawJ, Reason: string(RankJack)})
	}
}

// raiseDraw2 and raiseDrawJ fold the other counter into the one being raised so at most
// one draw attack is outstanding.
func (t *Table) raiseDraw2(n int) {
	t.PendingDraw2 += n + t.PendingDrawJ
	t.PendingDrawJ = 0
}

func (t *Table) raiseDrawJ(n int) {
	t.PendingDrawJ += n + t.PendingDraw2
	t.PendingDraw2 = 0
}

// canAnswerSkip reports whether p holds an 8 that could legally be played now. An 8 is no
// answer while a draw attack is live, since the gate then demands a 2 or a Jack.
func (t *Table) canAnswerSkip(p *Player) bool {
	if t.pending().RequiredRank() != RankEight {
		return false
	}
	top, ok := t.TopCard()
	if !ok {
		return false
	}
	for _, c := range p.Hand {
		if c.Rank == RankEight && CanPlayOn(c, top, t.ActiveSuit) {
			return true
		}
	}
	return false
}
