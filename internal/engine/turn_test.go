package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStepWrapsBothDirections(t *testing.T) {
	tbl := stackTable(t, "5S", []string{"4C"}, []string{"9D"}, []string{"6H"}, []string{"3H"})

	tbl.TurnIndex = 3
	assert.Equal(t, 0, tbl.NextSeat())
	tbl.step()
	assert.Equal(t, 0, tbl.TurnIndex)

	tbl.Direction = -1
	assert.Equal(t, 3, tbl.NextSeat())
	tbl.step()
	assert.Equal(t, 3, tbl.TurnIndex)
}

func TestAdvanceTurnSkipLoopIsBounded(t *testing.T) {
	tbl := stackTable(t, "5S", []string{"4C"}, []string{"9D"}, []string{"6H"})
	tbl.PendingSkip = 10

	tbl.advanceTurn()
	evs := tbl.drainEvents()

	skipped := 0
	for _, ev := range evs {
		if ev.Type == EventTurnSkipped {
			skipped++
		}
	}
	assert.Equal(t, 3, skipped, "each seat is skipped at most once per advance")
	assert.Equal(t, 7, tbl.PendingSkip)
	assert.Equal(t, EventTurnChanged, evs[len(evs)-1].Type)
}

func TestEightOnlyAnswersALiveSkip(t *testing.T) {
	tbl := stackTable(t, "5S", []string{"4C"}, []string{"8S"})
	b := tbl.Players[1]

	tbl.PendingSkip = 1
	tbl.advanceTurn()
	tbl.drainEvents()
	assert.Equal(t, 1, tbl.TurnIndex, "B may answer the skip with the 8")
	assert.Equal(t, 1, tbl.PendingSkip)

	tbl.TurnIndex = 0
	tbl.PendingDraw2 = 2
	tbl.advanceTurn()
	evs := tbl.drainEvents()
	assert.Zero(t, tbl.PendingSkip)
	assert.Equal(t, 0, tbl.TurnIndex, "the 8 cannot answer while a draw is owed")
	var skipped []uuid.UUID
	for _, ev := range evs {
		if ev.Type == EventTurnSkipped {
			skipped = append(skipped, ev.PlayerID)
		}
	}
	assert.Equal(t, []uuid.UUID{b.ID}, skipped)
}

func TestAdvanceTurnNoopWhenEnded(t *testing.T) {
	tbl := stackTable(t, "5S", []string{"4C"}, []string{"9D"})
	tbl.Phase = PhaseEnded
	tbl.advanceTurn()
	assert.Equal(t, 0, tbl.TurnIndex)
	assert.Empty(t, tbl.drainEvents())
}
