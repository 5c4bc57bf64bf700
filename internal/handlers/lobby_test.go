// internal/handlers/lobby_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/oldskool/internal/auth"
	"github.com/jason-s-yu/oldskool/internal/lobby"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := auth.Init(time.Hour); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) *GameServer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewGameServer(logger)
}

func tokenFor(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := auth.CreateJWT(userID.String())
	require.NoError(t, err)
	return token
}

// seatReadyLobby builds a manual-start lobby with n connected, ready members.
func seatReadyLobby(t *testing.T, gs *GameServer, n int) (*lobby.Lobby, []*lobby.LobbyConnection) {
	t.Helper()
	host := uuid.New()
	l := gs.NewLobby(host, lobby.LobbyTypePublic)
	l.LobbySettings.AutoStart = false

	conns := make([]*lobby.LobbyConnection, n)
	for i := range conns {
		id := uuid.New()
		if i == 0 {
			id = host
		}
		conns[i] = lobby.NewLobbyConnection(id, guestName(id), func() {})
		require.NoError(t, l.AddConnection(id, conns[i]))
		l.MarkUserReady(id)
	}
	return l, conns
}

func TestLobbyCreate(t *testing.T) {
	gs := newTestServer(t)
	host := uuid.New()

	body := `{"type":"public","houseRules":{"handSize":5}}`
	req := httptest.NewRequest(http.MethodPost, "/lobby/create", bytes.NewBufferString(body))
	req.AddCookie(&http.Cookie{Name: authCookieName, Value: tokenFor(t, host)})
	w := httptest.NewRecorder()
	CreateLobbyHandler(gs).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary LobbySummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.NotEqual(t, uuid.Nil, summary.ID)
	assert.Equal(t, host, summary.HostUserID)
	assert.Equal(t, lobby.LobbyTypePublic, summary.Type)
	assert.Equal(t, 5, summary.HouseRules.HandSize)

	_, ok := gs.LobbyStore.GetLobby(summary.ID)
	assert.True(t, ok)
}

func TestLobbyCreateMintsGuest(t *testing.T) {
	gs := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/lobby/create", nil)
	w := httptest.NewRecorder()
	CreateLobbyHandler(gs).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == authCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "guest should receive a token")

	sub, err := auth.AuthenticateJWT(cookie.Value)
	require.NoError(t, err)
	var summary LobbySummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, sub, summary.HostUserID.String())
	assert.Equal(t, lobby.LobbyTypePrivate, summary.Type)
}

func TestLobbyCreateRejectsBadInput(t *testing.T) {
	gs := newTestServer(t)
	token := tokenFor(t, uuid.New())

	cases := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"unknown type", http.MethodPost, `{"type":"ranked"}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, `{"type":`, http.StatusBadRequest},
		{"hand too large", http.MethodPost, `{"houseRules":{"handSize":40}}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/lobby/create", bytes.NewBufferString(tc.body))
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			CreateLobbyHandler(gs).ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
	assert.Empty(t, gs.LobbyStore.GetLobbies(), "rejected requests leave no lobby behind")
}

func TestListLobbiesHidesPrivate(t *testing.T) {
	gs := newTestServer(t)
	host := uuid.New()
	public := gs.NewLobby(host, lobby.LobbyTypePublic)
	private := gs.NewLobby(host, lobby.LobbyTypePrivate)

	list := func(userID uuid.UUID) []LobbySummary {
		req := httptest.NewRequest(http.MethodGet, "/lobby/list", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
		w := httptest.NewRecorder()
		ListLobbiesHandler(gs).ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		var out []LobbySummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return out
	}

	stranger := list(uuid.New())
	require.Len(t, stranger, 1)
	assert.Equal(t, public.ID, stranger[0].ID)

	assert.Len(t, list(host), 2)

	guest := uuid.New()
	private.InviteUser(guest)
	assert.Len(t, list(guest), 2)
}

func TestListLobbiesRequiresToken(t *testing.T) {
	gs := newTestServer(t)
	w := httptest.NewRecorder()
	ListLobbiesHandler(gs).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lobby/list", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleLobbyMessageHostOnly(t *testing.T) {
	gs := newTestServer(t)
	l, conns := seatReadyLobby(t, gs, 2)
	entry := logrus.NewEntry(logrus.StandardLogger())
	guest := conns[1]

	assert.True(t, handleLobbyMessage(map[string]interface{}{"type": "start_game"}, gs, l, guest, entry))
	assert.False(t, l.InGame)
	assert.Equal(t, 0, gs.MatchStore.Len())

	assert.True(t, handleLobbyMessage(map[string]interface{}{
		"type":  "update_rules",
		"rules": map[string]interface{}{"houseRules": map[string]interface{}{"handSize": float64(5)}},
	}, gs, l, guest, entry))
	assert.NotEqual(t, 5, l.HouseRules.HandSize)

	assert.False(t, handleLobbyMessage(map[string]interface{}{"type": "leave_lobby"}, gs, l, guest, entry))
}

func TestHandleLobbyMessageStartGame(t *testing.T) {
	gs := newTestServer(t)
	l, conns := seatReadyLobby(t, gs, 3)
	entry := logrus.NewEntry(logrus.StandardLogger())

	assert.True(t, handleLobbyMessage(map[string]interface{}{"type": "start_game"}, gs, l, conns[0], entry))

	l.Mu.Lock()
	inGame, matchID := l.InGame, l.MatchID
	l.Mu.Unlock()
	require.True(t, inGame)
	m, ok := gs.MatchStore.GetMatch(matchID)
	require.True(t, ok)
	for _, c := range conns {
		assert.True(t, m.HasPlayer(c.UserID))
	}
}
