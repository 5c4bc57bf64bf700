// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/oldskool/internal/engine"
	"github.com/jason-s-yu/oldskool/internal/game"
	"github.com/jason-s-yu/oldskool/internal/middleware"
	"github.com/sirupsen/logrus"
)

// GameMessage is an inbound frame on the game socket.
type GameMessage struct {
	Type string `json:"type"`

	// CardIDs lists the cards of a play, in play order.
	CardIDs []string `json:"cardIds,omitempty"`

	// Suit is the Ace nomination for choose_suit, or optionally inline on play.
	Suit string `json:"suit,omitempty"`
}

// ErrUnknownMessage is returned by ParseIntent for a frame type that is not an intent.
var ErrUnknownMessage = errors.New("unknown message type")

// ParseIntent turns a client frame into an engine intent. Card ids must be UUIDs; the suit
// is passed through for the engine to validate.
func ParseIntent(msg GameMessage) (engine.Intent, error) {
	switch engine.IntentKind(msg.Type) {
	case engine.IntentPlay:
		if len(msg.CardIDs) == 0 {
			return nil, fmt.Errorf("play needs at least one card")
		}
		play := engine.Play{CardIDs: make([]uuid.UUID, 0, len(msg.CardIDs))}
		for _, raw := range msg.CardIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid card id %q: %w", raw, err)
			}
			play.CardIDs = append(play.CardIDs, id)
		}
		if msg.Suit != "" {
			suit := engine.Suit(strings.ToUpper(msg.Suit))
			play.SuitChoice = &suit
		}
		return play, nil
	case engine.IntentDraw:
		return engine.Draw{}, nil
	case engine.IntentDeclareLast:
		return engine.DeclareLast{}, nil
	case engine.IntentChooseSuit:
		return engine.ChooseSuit{Suit: engine.Suit(strings.ToUpper(msg.Suit))}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, msg.Type)
	}
}

// GameWSHandler upgrades /game/ws/{match_id} for a seated player. The caller must already
// hold a token; every frame after the upgrade is either a ping or an intent.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID, err := uuid.Parse(strings.Trim(strings.TrimPrefix(r.URL.Path, "/game/ws/"), "/"))
		if err != nil {
			http.Error(w, "invalid match id", http.StatusBadRequest)
			return
		}
		m, ok := gs.MatchStore.GetMatch(matchID)
		if !ok {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}
		userID, err := authenticatedUser(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if !m.HasPlayer(userID) {
			http.Error(w, "you are not seated in this match", http.StatusForbidden)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.WithError(err).WithField("match", matchID).Warn("websocket accept error")
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "game" {
			c.Close(BadSubprotocolError, "client must speak the game subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		entry := logger.WithFields(logrus.Fields{"match": matchID, "user": userID, "remote": r.RemoteAddr})
		middleware.LogWebSocketConnect(entry, r.URL.Path)

		conn := gs.hub.register(matchID, userID, c, cancel)
		go conn.writePump(ctx, entry)
		m.HandleReconnect(userID)

		readGameMessages(ctx, c, m, userID, conn, entry)

		if gs.hub.unregister(matchID, userID, conn) {
			m.HandleDisconnect(userID)
		}
		middleware.LogWebSocketDisconnect(entry, r.URL.Path, nil)
	}
}

// readGameMessages reads frames until the socket closes, handing each intent to the match.
func readGameMessages(ctx context.Context, c *websocket.Conn, m *game.Match, userID uuid.UUID, conn *gameConn, entry *logrus.Entry) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				entry.Debug("websocket closed")
			} else {
				entry.WithError(err).Warn("error reading from websocket")
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.enqueue(game.Message{Type: "error", Message: "invalid JSON format"})
			continue
		}
		if msg.Type == "ping" {
			conn.enqueue(game.Message{Type: "pong"})
			continue
		}

		in, err := ParseIntent(msg)
		if err != nil {
			entry.WithError(err).Debug("unparseable intent")
			conn.enqueue(game.Message{Type: game.MessageRejected, Reason: engine.ReasonIllegalPlay, Message: err.Error()})
			continue
		}
		m.HandleIntent(userID, in)
	}
}

// gameConn is one player's socket with an ordered outbound queue.
type gameConn struct {
	c      *websocket.Conn
	out    chan []byte
	cancel context.CancelFunc
}

func (gc *gameConn) enqueue(msg game.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case gc.out <- data:
	default:
		// a client this far behind will resync from the next snapshot
	}
}

func (gc *gameConn) writePump(ctx context.Context, entry *logrus.Entry) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-gc.out:
			writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := gc.c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				entry.WithError(err).Warn("failed to write to websocket")
				gc.cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := gc.c.Ping(pingCtx)
			cancel()
			if err != nil {
				entry.WithError(err).Warn("ping failed, assuming disconnect")
				gc.cancel()
				return
			}
		}
	}
}

// hub maps match -> player -> live connection. It has its own lock so matches can send
// while holding theirs.
type hub struct {
	mu    sync.Mutex
	conns map[uuid.UUID]map[uuid.UUID]*gameConn
	log   *logrus.Logger
}

func newHub(logger *logrus.Logger) *hub {
	return &hub{conns: make(map[uuid.UUID]map[uuid.UUID]*gameConn), log: logger}
}

// register installs c for the player, cancelling any previous connection of theirs.
func (h *hub) register(matchID, playerID uuid.UUID, c *websocket.Conn, cancel context.CancelFunc) *gameConn {
	gc := &gameConn{c: c, out: make(chan []byte, 64), cancel: cancel}
	h.mu.Lock()
	defer h.mu.Unlock()
	players, ok := h.conns[matchID]
	if !ok {
		players = make(map[uuid.UUID]*gameConn)
		h.conns[matchID] = players
	}
	if prev, ok := players[playerID]; ok {
		prev.cancel()
	}
	players[playerID] = gc
	return gc
}

// unregister removes gc if it is still the player's current connection and reports whether
// it was.
func (h *hub) unregister(matchID, playerID uuid.UUID, gc *gameConn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	players, ok := h.conns[matchID]
	if !ok || players[playerID] != gc {
		return false
	}
	delete(players, playerID)
	if len(players) == 0 {
		delete(h.conns, matchID)
	}
	return true
}

// send queues msg for the player. Players without a connection miss it and resync on
// connect.
func (h *hub) send(matchID, playerID uuid.UUID, msg game.Message) {
	h.mu.Lock()
	gc := h.conns[matchID][playerID]
	h.mu.Unlock()
	if gc != nil {
		gc.enqueue(msg)
	}
}

// dropMatch forgets a finished match. Open sockets stay up until their clients leave.
func (h *hub) dropMatch(matchID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, matchID)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for matchID, players := range h.conns {
		for _, gc := range players {
			gc.cancel()
		}
		delete(h.conns, matchID)
	}
}
