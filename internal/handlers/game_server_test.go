// internal/handlers/game_server_test.go
package handlers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/oldskool/internal/lobby"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartMatchFromLobby(t *testing.T) {
	gs := newTestServer(t)
	l, conns := seatReadyLobby(t, gs, 2)

	m, err := gs.StartMatchFromLobby(l)
	require.NoError(t, err)

	got, ok := gs.MatchStore.GetMatch(m.ID)
	require.True(t, ok)
	assert.Same(t, m, got)
	assert.Equal(t, []uuid.UUID{conns[0].UserID, conns[1].UserID}, m.PlayerIDs(), "seats follow join order")

	l.Mu.Lock()
	assert.True(t, l.InGame)
	assert.Equal(t, m.ID, l.MatchID)
	l.Mu.Unlock()

	_, err = gs.StartMatchFromLobby(l)
	assert.Error(t, err, "a lobby runs one match at a time")
}

func TestStartMatchNeedsEveryoneReady(t *testing.T) {
	gs := newTestServer(t)
	l, conns := seatReadyLobby(t, gs, 2)
	l.MarkUserUnready(conns[1].UserID)

	_, err := gs.StartMatchFromLobby(l)
	assert.Error(t, err)
	assert.Equal(t, 0, gs.MatchStore.Len())
}

func TestStartMatchNeedsTwoPlayers(t *testing.T) {
	gs := newTestServer(t)
	l, _ := seatReadyLobby(t, gs, 1)

	_, err := gs.StartMatchFromLobby(l)
	assert.Error(t, err)
}

func TestAbandonedMatchReturnsLobby(t *testing.T) {
	gs := newTestServer(t)
	l, conns := seatReadyLobby(t, gs, 2)
	m, err := gs.StartMatchFromLobby(l)
	require.NoError(t, err)

	m.RemovePlayer(conns[1].UserID)

	assert.Eventually(t, func() bool {
		l.Mu.Lock()
		defer l.Mu.Unlock()
		return !l.InGame
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, gs.MatchStore.Len())

	l.Mu.Lock()
	assert.False(t, l.ReadyStates[conns[0].UserID], "readiness resets after a match")
	l.Mu.Unlock()
}

func TestCountdownStartsMatch(t *testing.T) {
	gs := newTestServer(t)
	host := lobby.NewLobbyConnection(uuid.New(), "host", func() {})
	l := gs.NewLobby(host.UserID, lobby.LobbyTypePublic)
	l.LobbySettings.CountdownSec = 0
	require.NoError(t, l.AddConnection(host.UserID, host))
	guest := lobby.NewLobbyConnection(uuid.New(), "guest", func() {})
	require.NoError(t, l.AddConnection(guest.UserID, guest))

	l.MarkUserReady(host.UserID)
	l.MarkUserReady(guest.UserID)

	assert.Eventually(t, func() bool { return gs.MatchStore.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
}
