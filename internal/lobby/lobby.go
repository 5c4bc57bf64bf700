// internal/lobby/lobby.go
package lobby

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/oldskool/internal/engine"
	"github.com/jason-s-yu/oldskool/internal/game"
	"github.com/sirupsen/logrus"
)

const (
	LobbyTypePrivate = "private"
	LobbyTypePublic  = "public"

	// DefaultCountdownSec is the delay between everyone readying up and the deal.
	DefaultCountdownSec = 5
)

// Lobby is an ephemeral room where 2-4 users gather, chat, agree on rules and ready up
// before a match is dealt.
type Lobby struct {
	ID         uuid.UUID `json:"id"`
	HostUserID uuid.UUID `json:"hostUserID"`
	Type       string    `json:"type"`

	// Users maps userID -> whether they've joined (true) or only invited (false).
	Users map[uuid.UUID]bool `json:"-"`

	// Connections holds the live WebSocket connections for joined users.
	Connections map[uuid.UUID]*LobbyConnection `json:"-"`
	// ReadyStates holds userID -> bool for "is ready".
	ReadyStates map[uuid.UUID]bool `json:"-"`
	// joinOrder lists connected users oldest first; it decides seat order and host
	// succession.
	joinOrder []uuid.UUID

	MatchID uuid.UUID `json:"matchId,omitempty"`
	InGame  bool      `json:"inGame"`

	CountdownTimer *time.Timer `json:"-"`

	HouseRules    game.HouseRules `json:"houseRules"`
	LobbySettings LobbySettings   `json:"lobbySettings"`

	// OnEmpty is called once the last connected user leaves.
	OnEmpty func(lobbyID uuid.UUID) `json:"-"`

	// OnCountdownDone runs when an auto-start countdown completes, without the lock held.
	OnCountdownDone func(l *Lobby) `json:"-"`

	Mu  sync.Mutex `json:"-"`
	log *logrus.Entry
}

// LobbyConnection is a single user's presence in the lobby.
type LobbyConnection struct {
	UserID   uuid.UUID
	Username string
	Cancel   func()
	OutChan  chan map[string]interface{}
	IsHost   bool

	log *logrus.Entry
}

// NewLobbyConnection returns a connection with a buffered outbound queue.
func NewLobbyConnection(userID uuid.UUID, username string, cancel func()) *LobbyConnection {
	return &LobbyConnection{
		UserID:   userID,
		Username: username,
		Cancel:   cancel,
		OutChan:  make(chan map[string]interface{}, 32),
	}
}

// Write pushes a message onto the user's OutChan without blocking. A full queue drops the
// message.
func (conn *LobbyConnection) Write(msg map[string]interface{}) {
	select {
	case conn.OutChan <- msg:
	default:
		if conn.log != nil {
			msgType, _ := msg["type"].(string)
			conn.log.WithFields(logrus.Fields{"user": conn.UserID, "type": msgType}).Warn("lobby outbound queue full, dropping message")
		}
	}
}

// WriteError is a convenience to send an error object.
func (conn *LobbyConnection) WriteError(msg string) {
	conn.Write(map[string]interface{}{
		"type":    "error",
		"message": msg,
	})
}

// LobbySettings holds settings specific to the lobby behavior.
type LobbySettings struct {
	AutoStart    bool `json:"autoStart"`
	CountdownSec int  `json:"countdownSec"`
}

// NewLobbyWithDefaults creates a private lobby hosted by hostID with the default table rules.
func NewLobbyWithDefaults(hostID uuid.UUID, logger *logrus.Logger) *Lobby {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	lobbyID := uuid.New()
	return &Lobby{
		ID:          lobbyID,
		HostUserID:  hostID,
		Type:        LobbyTypePrivate,
		Users:       map[uuid.UUID]bool{hostID: false},
		Connections: make(map[uuid.UUID]*LobbyConnection),
		ReadyStates: make(map[uuid.UUID]bool),
		HouseRules:  game.DefaultHouseRules(),
		LobbySettings: LobbySettings{
			AutoStart:    true,
			CountdownSec: DefaultCountdownSec,
		},
		log: logger.WithField("lobby", lobbyID),
	}
}

// InviteUser marks userID as invited to a private lobby.
func (lobby *Lobby) InviteUser(userID uuid.UUID) {
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	lobby.inviteUserUnsafe(userID)
}

func (lobby *Lobby) inviteUserUnsafe(userID uuid.UUID) {
	if _, exists := lobby.Users[userID]; exists {
		return
	}
	lobby.Users[userID] = false
	lobby.log.WithField("user", userID).Debug("user invited")
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":      "lobby_invite",
		"invitedID": userID.String(),
	})
}

// AddConnection registers a live connection for userID, resetting their ready state. A user
// reconnecting replaces their previous connection. The lobby seats at most
// engine.MaxPlayers users.
func (lobby *Lobby) AddConnection(userID uuid.UUID, conn *LobbyConnection) error {
	lobby.Mu.Lock()

	_, exists := lobby.Users[userID]
	if !exists && lobby.Type == LobbyTypePrivate {
		lobby.Mu.Unlock()
		return fmt.Errorf("user %s not invited to the private lobby %s", userID, lobby.ID)
	}
	old, reconnecting := lobby.Connections[userID]
	if !reconnecting && len(lobby.Connections) >= engine.MaxPlayers {
		lobby.Mu.Unlock()
		return fmt.Errorf("lobby %s is full", lobby.ID)
	}
	if reconnecting && old != conn {
		lobby.log.WithField("user", userID).Info("user replaced lobby connection")
		closeConnection(old)
	}

	conn.log = lobby.log
	conn.IsHost = userID == lobby.HostUserID
	lobby.Connections[userID] = conn
	lobby.ReadyStates[userID] = false
	lobby.Users[userID] = true
	if !reconnecting {
		lobby.joinOrder = append(lobby.joinOrder, userID)
	}
	lobby.CancelCountdownUnsafe()
	lobby.log.WithFields(logrus.Fields{"user": userID, "username": conn.Username}).Info("user joined lobby")

	conn.Write(lobby.getLobbyStatePayloadUnsafe(userID))
	lobby.BroadcastAllUnsafe(lobby.getLobbyJoinPayloadUnsafe(userID))
	lobby.Mu.Unlock()
	return nil
}

// closeConnection cancels the connection's context; its write pump exits on Done. OutChan is
// never closed so late writers cannot panic.
func closeConnection(conn *LobbyConnection) {
	if conn.Cancel != nil {
		conn.Cancel()
	}
}

// RemoveUser drops userID from the lobby. If they were host, the longest-connected remaining
// user becomes host. If nobody is left, OnEmpty runs.
func (lobby *Lobby) RemoveUser(userID uuid.UUID) {
	lobby.removeUser(userID, nil)
}

// RemoveConnection drops userID only if conn is still their live connection, so a replaced
// socket closing late does not evict its successor.
func (lobby *Lobby) RemoveConnection(userID uuid.UUID, conn *LobbyConnection) {
	lobby.removeUser(userID, conn)
}

func (lobby *Lobby) removeUser(userID uuid.UUID, only *LobbyConnection) {
	lobby.Mu.Lock()

	conn, connExists := lobby.Connections[userID]
	if only != nil && conn != only {
		lobby.Mu.Unlock()
		return
	}
	if !connExists {
		delete(lobby.Users, userID)
		lobby.Mu.Unlock()
		return
	}
	closeConnection(conn)

	delete(lobby.Users, userID)
	delete(lobby.Connections, userID)
	delete(lobby.ReadyStates, userID)
	for i, id := range lobby.joinOrder {
		if id == userID {
			lobby.joinOrder = append(lobby.joinOrder[:i], lobby.joinOrder[i+1:]...)
			break
		}
	}
	lobby.log.WithField("user", userID).Info("user left lobby")

	lobby.CancelCountdownUnsafe()
	lobby.BroadcastAllUnsafe(lobby.getLobbyLeavePayloadUnsafe(userID, conn.Username))

	if userID == lobby.HostUserID && len(lobby.joinOrder) > 0 {
		lobby.promoteHostUnsafe(lobby.joinOrder[0])
	}

	if lobby.shouldAutoStartUnsafe() {
		lobby.StartCountdownUnsafe(lobby.LobbySettings.CountdownSec)
	}
	isEmpty := len(lobby.Connections) == 0
	onEmpty := lobby.OnEmpty
	lobby.Mu.Unlock()

	if isEmpty && onEmpty != nil {
		lobby.log.Info("lobby empty")
		onEmpty(lobby.ID)
	}
}

// promoteHostUnsafe hands the host role to userID. Assumes lock is held.
func (lobby *Lobby) promoteHostUnsafe(userID uuid.UUID) {
	if prev, ok := lobby.Connections[lobby.HostUserID]; ok {
		prev.IsHost = false
	}
	lobby.HostUserID = userID
	if conn, ok := lobby.Connections[userID]; ok {
		conn.IsHost = true
	}
	lobby.log.WithField("host", userID).Info("host migrated")
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":    "lobby_host_changed",
		"host_id": userID.String(),
	})
}

// IsHost reports whether userID currently hosts the lobby.
func (lobby *Lobby) IsHost(userID uuid.UUID) bool {
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	return lobby.HostUserID == userID
}

// StartCountdownUnsafe begins the auto-start countdown. Assumes lock is held.
func (lobby *Lobby) StartCountdownUnsafe(seconds int) bool {
	if lobby.InGame || lobby.CountdownTimer != nil {
		return false
	}
	if len(lobby.Connections) < engine.MinPlayers {
		return false
	}

	lobby.log.WithField("seconds", seconds).Info("countdown started")
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":    "lobby_countdown_start",
		"seconds": seconds,
	})

	var timer *time.Timer
	timer = time.AfterFunc(time.Duration(seconds)*time.Second, func() {
		lobby.Mu.Lock()
		if lobby.CountdownTimer != timer {
			lobby.Mu.Unlock()
			return
		}
		lobby.CountdownTimer = nil
		done := lobby.OnCountdownDone
		lobby.Mu.Unlock()
		if done != nil {
			done(lobby)
		}
	})
	lobby.CountdownTimer = timer
	return true
}

// CancelCountdownUnsafe stops any existing countdown. Assumes lock is held.
func (lobby *Lobby) CancelCountdownUnsafe() {
	if lobby.CountdownTimer == nil {
		return
	}
	if lobby.CountdownTimer.Stop() {
		lobby.BroadcastAllUnsafe(map[string]interface{}{
			"type": "lobby_countdown_cancel",
		})
	}
	lobby.CountdownTimer = nil
}

// MarkUserReady flags userID as ready and starts the countdown once every member is.
func (lobby *Lobby) MarkUserReady(userID uuid.UUID) {
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	if lobby.setReadyUnsafe(userID, true) && lobby.shouldAutoStartUnsafe() {
		lobby.StartCountdownUnsafe(lobby.LobbySettings.CountdownSec)
	}
}

// MarkUserUnready clears userID's ready flag and cancels any countdown.
func (lobby *Lobby) MarkUserUnready(userID uuid.UUID) {
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	if lobby.setReadyUnsafe(userID, false) {
		lobby.CancelCountdownUnsafe()
	}
}

// setReadyUnsafe records a ready change and reports whether anything changed.
func (lobby *Lobby) setReadyUnsafe(userID uuid.UUID, ready bool) bool {
	conn, ok := lobby.Connections[userID]
	if !ok || lobby.ReadyStates[userID] == ready {
		return false
	}
	lobby.ReadyStates[userID] = ready
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":     "ready_update",
		"user_id":  userID.String(),
		"username": conn.Username,
		"is_ready": ready,
	})
	return true
}

func (lobby *Lobby) shouldAutoStartUnsafe() bool {
	return lobby.LobbySettings.AutoStart && !lobby.InGame && lobby.AreAllReadyUnsafe()
}

// AreAllReadyUnsafe reports whether 2-4 users are connected and all ready. Assumes lock is held.
func (lobby *Lobby) AreAllReadyUnsafe() bool {
	n := len(lobby.Connections)
	if n < engine.MinPlayers || n > engine.MaxPlayers {
		return false
	}
	for userID := range lobby.Connections {
		if !lobby.ReadyStates[userID] {
			return false
		}
	}
	return true
}

// AreAllReady checks readiness, acquiring the lock.
func (lobby *Lobby) AreAllReady() bool {
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	return lobby.AreAllReadyUnsafe()
}

// SeatsUnsafe returns the connected users in join order as match seats. Assumes lock is held.
func (lobby *Lobby) SeatsUnsafe() []engine.Seat {
	seats := make([]engine.Seat, 0, len(lobby.joinOrder))
	for _, id := range lobby.joinOrder {
		if conn, ok := lobby.Connections[id]; ok {
			seats = append(seats, engine.Seat{ID: id, Name: conn.Username})
		}
	}
	return seats
}

// BeginMatchUnsafe marks the lobby as in game with matchID and tells every member where to
// connect. Assumes lock is held.
func (lobby *Lobby) BeginMatchUnsafe(matchID uuid.UUID) {
	lobby.CancelCountdownUnsafe()
	lobby.InGame = true
	lobby.MatchID = matchID
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":     "game_start",
		"game_id":  matchID.String(),
		"lobby_id": lobby.ID.String(),
	})
}

// EndMatch returns the lobby to the waiting state after a match, clearing ready flags.
func (lobby *Lobby) EndMatch(result game.MatchResult) {
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	lobby.InGame = false
	lobby.MatchID = uuid.Nil
	for id := range lobby.ReadyStates {
		lobby.ReadyStates[id] = false
	}
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":      "game_results",
		"game_id":   result.MatchID.String(),
		"winner":    result.Winner.String(),
		"abandoned": result.Abandoned,
	})
}

// BroadcastAllUnsafe sends msg to every connection. Assumes lock is held; Write never blocks.
func (lobby *Lobby) BroadcastAllUnsafe(msg map[string]interface{}) {
	for _, conn := range lobby.Connections {
		conn.Write(msg)
	}
}

// BroadcastAll sends msg to every connection, acquiring the lock.
func (lobby *Lobby) BroadcastAll(msg map[string]interface{}) {
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	lobby.BroadcastAllUnsafe(msg)
}

// BroadcastChat relays a chat line from userID.
func (lobby *Lobby) BroadcastChat(userID uuid.UUID, msg string) error {
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	conn, ok := lobby.Connections[userID]
	if !ok {
		return fmt.Errorf("user %s is not connected", userID)
	}
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type":     "chat",
		"user_id":  userID.String(),
		"username": conn.Username,
		"msg":      msg,
		"ts":       time.Now().Unix(),
	})
	return nil
}

// GetLobbyStatusPayloadUnsafe lists members in join order. Assumes lock is held.
func (lobby *Lobby) GetLobbyStatusPayloadUnsafe() map[string]interface{} {
	users := []map[string]interface{}{}
	for _, userID := range lobby.joinOrder {
		conn, ok := lobby.Connections[userID]
		if !ok {
			continue
		}
		users = append(users, map[string]interface{}{
			"id":       userID.String(),
			"username": conn.Username,
			"is_host":  conn.IsHost,
			"is_ready": lobby.ReadyStates[userID],
		})
	}
	return map[string]interface{}{
		"users": users,
	}
}

func (lobby *Lobby) getLobbyJoinPayloadUnsafe(userID uuid.UUID) map[string]interface{} {
	payload := map[string]interface{}{
		"type":         "lobby_update",
		"user_join":    userID.String(),
		"lobby_status": lobby.GetLobbyStatusPayloadUnsafe(),
	}
	if conn, ok := lobby.Connections[userID]; ok {
		payload["username"] = conn.Username
		payload["is_host"] = conn.IsHost
	}
	return payload
}

func (lobby *Lobby) getLobbyLeavePayloadUnsafe(userID uuid.UUID, username string) map[string]interface{} {
	return map[string]interface{}{
		"type":         "lobby_update",
		"user_left":    userID.String(),
		"username":     username,
		"lobby_status": lobby.GetLobbyStatusPayloadUnsafe(),
	}
}

func (lobby *Lobby) getLobbyStatePayloadUnsafe(userID uuid.UUID) map[string]interface{} {
	gameID := ""
	if lobby.MatchID != uuid.Nil {
		gameID = lobby.MatchID.String()
	}
	return map[string]interface{}{
		"type":         "lobby_state",
		"lobby_id":     lobby.ID.String(),
		"host_id":      lobby.HostUserID.String(),
		"your_id":      userID.String(),
		"your_is_host": userID == lobby.HostUserID,
		"lobby_type":   lobby.Type,
		"in_game":      lobby.InGame,
		"game_id":      gameID,
		"house_rules":  lobby.HouseRules,
		"settings":     lobby.LobbySettings,
		"lobby_status": lobby.GetLobbyStatusPayloadUnsafe(),
	}
}

// SendLobbyState sends the full lobby state to userID.
func (lobby *Lobby) SendLobbyState(userID uuid.UUID) {
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	if conn, ok := lobby.Connections[userID]; ok {
		conn.Write(lobby.getLobbyStatePayloadUnsafe(userID))
	}
}

// Update applies a partial rules change of the form
// {"houseRules": {...}, "settings": {...}}. Rules are locked while a match runs.
func (lobby *Lobby) Update(rules map[string]interface{}) error {
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	if lobby.InGame {
		return fmt.Errorf("cannot change rules while a match is running")
	}

	nextRules := lobby.HouseRules
	if hr, ok := rules["houseRules"].(map[string]interface{}); ok {
		parsed, err := game.ParseRules(hr, lobby.HouseRules)
		if err != nil {
			return err
		}
		nextRules = parsed
	}
	nextSettings := lobby.LobbySettings
	if ls, ok := rules["settings"].(map[string]interface{}); ok {
		if autoStart, ok := ls["autoStart"].(bool); ok {
			nextSettings.AutoStart = autoStart
		}
		if secs, ok := ls["countdownSec"].(float64); ok {
			if secs < 0 || secs > 60 {
				return fmt.Errorf("countdownSec must be between 0 and 60")
			}
			nextSettings.CountdownSec = int(secs)
		}
	}
	if nextRules == lobby.HouseRules && nextSettings == lobby.LobbySettings {
		return nil
	}

	lobby.HouseRules = nextRules
	lobby.LobbySettings = nextSettings
	lobby.CancelCountdownUnsafe()
	for id := range lobby.ReadyStates {
		lobby.ReadyStates[id] = false
	}
	lobby.BroadcastAllUnsafe(map[string]interface{}{
		"type": "lobby_rules_updated",
		"rules": map[string]interface{}{
			"house_rules": lobby.HouseRules,
			"settings":    lobby.LobbySettings,
		},
		"lobby_status": lobby.GetLobbyStatusPayloadUnsafe(),
	})
	return nil
}

// MemberCount returns the number of connected users.
func (lobby *Lobby) MemberCount() int {
	lobby.Mu.Lock()
	defer lobby.Mu.Unlock()
	return len(lobby.Connections)
}
