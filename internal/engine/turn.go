package engine

// advanceTurn hands the turn to the next player. A granted extra turn replays the current
// player instead. Players who face a pending skip they cannot answer forfeit their turn
// automatically; the loop is bounded by the seat count.
func (t *Table) advanceTurn() {
	if t.Ended() {
		return
	}
	if t.ExtraTurnGranted {
		t.ExtraTurnGranted = false
		t.startTurn(true)
		return
	}
	t.step()
	for i := 0; i < len(t.Players) && t.PendingSkip > 0; i++ {
		p := t.CurrentPlayer()
		if t.canAnswerSkip(p) {
			break
		}
		t.PendingSkip--
		t.emit(Event{Type: EventTurnSkipped, PlayerID: p.ID, Count: t.PendingSkip})
		t.step()
	}
	t.startTurn(false)
}

func (t *Table) step() {
	n := len(t.Players)
	t.TurnIndex = ((t.TurnIndex+t.Direction)%n + n) % n
}

func (t *Table) startTurn(extra bool) {
	p := t.CurrentPlayer()
	p.LastCalled = false
	ev := Event{Type: EventTurnChanged, PlayerID: p.ID, Count: t.TurnIndex}
	if extra {
		ev.Reason = string(EventExtraTurn)
	}
	t.emit(ev)
}

// NextSeat returns the seat index that would act after the current one, ignoring extra
// turns and skips.
func (t *Table) NextSeat() int {
	n := len(t.Players)
	return ((t.TurnIndex+t.Direction)%n + n) % n
}
