// internal/game/match.go
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/oldskool/internal/cache"
	"github.com/jason-s-yu/oldskool/internal/engine"
	"github.com/sirupsen/logrus"
)

// ActionPublisher receives every accepted action for the historian. cache.ActionLog
// implements it.
type ActionPublisher interface {
	PublishMatchAction(ctx context.Context, rec cache.MatchActionRecord) error
}

// OnMatchEndFunc is invoked once when a match finishes, with Mu held. It must not call
// back into the match.
type OnMatchEndFunc func(result MatchResult)

// Match is one running table plus everything around it that the engine leaves out:
// connection tracking, turn timers, fan-out and the action log.
type Match struct {
	ID      uuid.UUID
	LobbyID uuid.UUID

	HouseRules HouseRules
	Table      *engine.Table

	// TurnID increments every time the turn changes hands; timers compare it to detect
	// that they are stale.
	TurnID       int
	TurnDuration time.Duration
	turnTimer    *time.Timer

	StartedAt   time.Time
	Started     bool
	Finished    bool
	actionIndex int
	connected   map[uuid.UUID]bool
	initial     InitialState

	Mu sync.Mutex

	// BroadcastToPlayerFn delivers a frame to one player. It is called with Mu held and must
	// not block on the match.
	BroadcastToPlayerFn func(playerID uuid.UUID, msg Message)

	// OnMatchEnd is invoked at match end to persist results, update the lobby, etc.
	OnMatchEnd OnMatchEndFunc

	// Actions, when set, receives the action log.
	Actions ActionPublisher

	log *logrus.Entry
}

// NewMatch deals a new table for seats. The match does not run its timer until Start.
func NewMatch(lobbyID uuid.UUID, seats []engine.Seat, rules HouseRules, logger *logrus.Logger) (*Match, error) {
	table, err := engine.CreateMatch(seats, rules.Rules, nil)
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	m := &Match{
		ID:           table.ID,
		LobbyID:      lobbyID,
		HouseRules:   rules,
		Table:        table,
		TurnDuration: time.Duration(rules.TurnTimerSec) * time.Second,
		connected:    make(map[uuid.UUID]bool, len(seats)),
	}
	m.log = logger.WithFields(logrus.Fields{"match": m.ID, "lobby": lobbyID})
	m.initial = snapshotInitial(table, rules)
	return m, nil
}

func snapshotInitial(t *engine.Table, rules HouseRules) InitialState {
	snap := InitialState{
		Deck:    append([]engine.Card(nil), t.Deck...),
		Discard: append([]engine.Card(nil), t.Discard...),
		Hands:   make(map[string][]engine.Card, len(t.Players)),
		Rules:   rules,
	}
	for _, p := range t.Players {
		snap.Hands[p.ID.String()] = append([]engine.Card(nil), p.Hand...)
	}
	return snap
}

// InitialState returns the dealt layout, for replay storage.
func (m *Match) InitialState() InitialState {
	return m.initial
}

// PlayerIDs returns the seated players in seat order.
func (m *Match) PlayerIDs() []uuid.UUID {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	ids := make([]uuid.UUID, 0, len(m.Table.Players))
	for _, p := range m.Table.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

// HasPlayer reports whether playerID holds a seat.
func (m *Match) HasPlayer(playerID uuid.UUID) bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Table.Player(playerID) != nil
}

// Start announces the first turn and arms the turn timer.
func (m *Match) Start() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Started || m.Finished {
		return
	}
	m.Started = true
	m.StartedAt = time.Now()
	top, _ := m.Table.TopCard()
	m.logAction(uuid.Nil, "match_start", map[string]interface{}{
		"players": len(m.Table.Players),
		"starter": top,
	})
	m.log.WithField("players", len(m.Table.Players)).Info("match started")
	m.syncAll()
	m.scheduleTurnTimer()
}

// HandleIntent applies one intent from playerID and fans out the outcome: the originator
// alone hears about a rejection; an accepted intent produces its events (private cards
// only to their owner) followed by a fresh snapshot for everyone.
func (m *Match) HandleIntent(playerID uuid.UUID, in engine.Intent) engine.Result {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.applyLocked(playerID, in, "")
}

func (m *Match) applyLocked(playerID uuid.UUID, in engine.Intent, source string) engine.Result {
	res := engine.ApplyIntent(m.Table, playerID, in)
	if !res.OK {
		m.log.WithFields(logrus.Fields{"player": playerID, "intent": kindOf(in), "reason": res.Reason}).Debug("intent rejected")
		msg := Message{Type: MessageRejected, Reason: res.Reason}
		if res.Err != nil {
			msg.Message = res.Err.Error()
		}
		m.sendTo(playerID, msg)
		return res
	}

	payload := map[string]interface{}{"intent": kindOf(in)}
	if source != "" {
		payload["source"] = source
	}
	m.logAction(playerID, "intent_accepted", payload)
	m.dispatch(res.Events)
	m.afterChange(res.Events)
	return res
}

// dispatch sends every event to each connected player, redacting private cards.
func (m *Match) dispatch(events []engine.Event) {
	for _, ev := range events {
		m.logAction(ev.PlayerID, string(ev.Type), eventPayload(ev))
		for _, p := range m.Table.Players {
			if !m.connected[p.ID] {
				continue
			}
			if p.ID == ev.PlayerID {
				m.sendTo(p.ID, eventMessage(ev))
			} else {
				m.sendTo(p.ID, eventMessage(ev.Redacted()))
			}
		}
	}
}

// afterChange syncs every player and then either finishes the match or rearms the timer
// if the turn moved.
func (m *Match) afterChange(events []engine.Event) {
	m.syncAll()
	if m.Table.Ended() {
		m.finish()
		return
	}
	for _, ev := range events {
		if ev.Type == engine.EventTurnChanged {
			m.TurnID++
			m.scheduleTurnTimer()
			return
		}
	}
}

// View returns the snapshot playerID is allowed to see.
func (m *Match) View(playerID uuid.UUID) engine.PlayerView {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return engine.ProjectView(m.Table, playerID)
}

// HandleReconnect marks playerID as connected and sends them a private snapshot. It
// reports false if playerID has no seat.
func (m *Match) HandleReconnect(playerID uuid.UUID) bool {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Table.Player(playerID) == nil {
		m.log.WithField("player", playerID).Warn("connect from player without a seat")
		return false
	}
	wasKnown := m.connected[playerID]
	m.connected[playerID] = true
	m.logAction(playerID, "player_connect", nil)
	m.sendSync(playerID)
	if !wasKnown {
		m.broadcastExcept(playerID, Message{Type: MessagePlayerReconnected, Payload: map[string]interface{}{"playerId": playerID}})
	}
	return true
}

// HandleDisconnect records that playerID's connection dropped. With ForfeitOnDisconnect
// an unfinished match is abandoned.
func (m *Match) HandleDisconnect(playerID uuid.UUID) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if !m.connected[playerID] {
		return
	}
	m.connected[playerID] = false
	m.logAction(playerID, "player_disconnect", nil)
	m.log.WithField("player", playerID).Info("player disconnected")

	if m.Finished || !m.HouseRules.ForfeitOnDisconnect {
		m.broadcastExcept(playerID, Message{Type: MessagePlayerDisconnected, Payload: map[string]interface{}{"playerId": playerID}})
		return
	}
	m.removeLocked(playerID)
}

// RemovePlayer abandons the match because playerID left for good.
func (m *Match) RemovePlayer(playerID uuid.UUID) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.removeLocked(playerID)
}

func (m *Match) removeLocked(playerID uuid.UUID) {
	events, err := m.Table.RemovePlayer(playerID)
	if err != nil {
		m.log.WithError(err).WithField("player", playerID).Debug("remove player ignored")
		return
	}
	m.dispatch(events)
	m.afterChange(events)
}

// ConnectedCount returns how many seated players currently have a live connection.
func (m *Match) ConnectedCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	n := 0
	for _, ok := range m.connected {
		if ok {
			n++
		}
	}
	return n
}

// Stop cancels the turn timer without ending the match, for shutdown.
func (m *Match) Stop() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.stopTimer()
}

// finish stops the timer, announces the result and runs OnMatchEnd. Assumes lock is held.
func (m *Match) finish() {
	if m.Finished {
		return
	}
	m.Finished = true
	m.stopTimer()

	result := MatchResult{
		MatchID:    m.ID,
		LobbyID:    m.LobbyID,
		Winner:     m.Table.Winner,
		Abandoned:  m.Table.Abandoned,
		HandCounts: make(map[uuid.UUID]int, len(m.Table.Players)),
		StartedAt:  m.StartedAt,
		EndedAt:    time.Now(),
	}
	scores := make(map[string]int, len(m.Table.Players))
	for _, p := range m.Table.Players {
		result.Players = append(result.Players, p.ID)
		result.HandCounts[p.ID] = len(p.Hand)
		scores[p.ID.String()] = len(p.Hand)
	}

	m.logAction(result.Winner, cache.ActionMatchEnd, map[string]interface{}{
		"winner":    result.Winner,
		"abandoned": result.Abandoned,
		"hands":     scores,
	})
	m.broadcast(Message{Type: MessageMatchEnd, Payload: map[string]interface{}{
		"winner":    result.Winner.String(),
		"abandoned": result.Abandoned,
		"hands":     scores,
	}})
	m.log.WithFields(logrus.Fields{"winner": result.Winner, "abandoned": result.Abandoned}).Info("match ended")

	if m.OnMatchEnd != nil {
		m.OnMatchEnd(result)
	}
}

// scheduleTurnTimer restarts the turn timer for the current player if TurnDuration > 0.
// Assumes lock is held.
func (m *Match) scheduleTurnTimer() {
	m.stopTimer()
	if m.TurnDuration <= 0 || m.Table.Ended() {
		return
	}
	cur := m.Table.CurrentPlayer()
	if cur == nil {
		return
	}
	playerID, turnID := cur.ID, m.TurnID
	m.turnTimer = time.AfterFunc(m.TurnDuration, func() {
		m.handleTimeout(playerID, turnID)
	})
}

func (m *Match) stopTimer() {
	if m.turnTimer != nil {
		m.turnTimer.Stop()
		m.turnTimer = nil
	}
}

// handleTimeout acts for an idle player: a pending Ace keeps its own suit, otherwise the
// player draws (which also absorbs any pending attack or skip).
func (m *Match) handleTimeout(playerID uuid.UUID, turnID int) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	cur := m.Table.CurrentPlayer()
	if m.Finished || m.TurnID != turnID || cur == nil || cur.ID != playerID {
		m.log.WithFields(logrus.Fields{"player": playerID, "turn": turnID, "current": m.TurnID}).Debug("stale turn timer ignored")
		return
	}
	m.log.WithFields(logrus.Fields{"player": playerID, "turn": turnID}).Info("turn timed out")
	m.sendTo(playerID, Message{Type: MessageTurnTimeout})

	var in engine.Intent = engine.Draw{}
	if m.Table.AwaitingSuitChoiceBy == playerID {
		top, _ := m.Table.TopCard()
		in = engine.ChooseSuit{Suit: top.Suit}
	}
	if res := m.applyLocked(playerID, in, "timeout"); !res.OK {
		m.log.WithError(res.Err).WithField("player", playerID).Error("timeout action rejected")
	}
}

// syncAll sends every connected player their own snapshot. Assumes lock is held.
func (m *Match) syncAll() {
	for _, p := range m.Table.Players {
		if m.connected[p.ID] {
			m.sendSync(p.ID)
		}
	}
}

func (m *Match) sendSync(playerID uuid.UUID) {
	view := engine.ProjectView(m.Table, playerID)
	connected := make(map[string]bool, len(m.Table.Players))
	for _, p := range m.Table.Players {
		connected[p.ID.String()] = m.connected[p.ID]
	}
	m.sendTo(playerID, Message{
		Type:    MessageSyncState,
		State:   &view,
		Payload: map[string]interface{}{"connected": connected, "turn": m.TurnID},
	})
}

func (m *Match) broadcast(msg Message) {
	m.broadcastExcept(uuid.Nil, msg)
}

func (m *Match) broadcastExcept(skip uuid.UUID, msg Message) {
	for _, p := range m.Table.Players {
		if p.ID != skip && m.connected[p.ID] {
			m.sendTo(p.ID, msg)
		}
	}
}

func (m *Match) sendTo(playerID uuid.UUID, msg Message) {
	if m.BroadcastToPlayerFn == nil {
		return
	}
	m.BroadcastToPlayerFn(playerID, msg)
}

// logAction sends the action details to the historian via Redis.
// Assumes lock is held by caller.
func (m *Match) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	m.actionIndex++
	if m.Actions == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.MatchActionRecord{
		MatchID:       m.ID,
		ActionIndex:   m.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(pub ActionPublisher, rec cache.MatchActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := pub.PublishMatchAction(ctx, rec); err != nil {
			m.log.WithError(err).WithField("action", rec.ActionIndex).Warn("failed to publish match action")
		}
	}(m.Actions, record)
}

func eventPayload(ev engine.Event) map[string]interface{} {
	payload := map[string]interface{}{}
	if len(ev.Cards) > 0 {
		payload["cards"] = ev.Cards
	}
	if ev.Count != 0 {
		payload["count"] = ev.Count
	}
	if ev.Suit != "" {
		payload["suit"] = ev.Suit
	}
	if ev.Reason != "" {
		payload["reason"] = ev.Reason
	}
	return payload
}

func kindOf(in engine.Intent) engine.IntentKind {
	if in == nil {
		return ""
	}
	return in.Kind()
}
