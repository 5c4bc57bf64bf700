// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/oldskool/internal/lobby"
	"github.com/jason-s-yu/oldskool/internal/middleware"
	"github.com/sirupsen/logrus"
)

// LobbyWSHandler upgrades /lobby/ws/{lobby_id}. Guests without a token are minted one
// before the upgrade so the cookie rides on the handshake response.
func LobbyWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyID, err := uuid.Parse(strings.Trim(strings.TrimPrefix(r.URL.Path, "/lobby/ws/"), "/"))
		if err != nil {
			http.Error(w, "invalid lobby_id", http.StatusBadRequest)
			return
		}

		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			logger.WithError(err).WithField("lobby", lobbyID).Warn("user authentication failed")
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.WithError(err).Warn("websocket accept error")
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "lobby" {
			c.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
			return
		}

		lob, exists := gs.LobbyStore.GetLobby(lobbyID)
		if !exists {
			c.Close(InvalidLobbyIDError, "lobby does not exist")
			return
		}

		entry := logger.WithFields(logrus.Fields{"lobby": lobbyID, "user": userID, "remote": r.RemoteAddr})

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		conn := lobby.NewLobbyConnection(userID, usernameFor(ctx, userID), cancel)

		if err := lob.AddConnection(userID, conn); err != nil {
			entry.WithError(err).Info("lobby join refused")
			c.Close(LobbyRejectedError, err.Error())
			return
		}
		middleware.LogWebSocketConnect(entry, r.URL.Path)

		go writePump(ctx, c, conn, entry)
		readPump(ctx, c, gs, lob, conn, entry)

		lob.RemoveConnection(userID, conn)
		middleware.LogWebSocketDisconnect(entry, r.URL.Path, nil)
	}
}

// readPump handles incoming messages from the lobby websocket until it closes.
func readPump(ctx context.Context, c *websocket.Conn, gs *GameServer, lob *lobby.Lobby, conn *lobby.LobbyConnection, entry *logrus.Entry) {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				entry.Debug("lobby websocket closed")
			} else {
				entry.WithError(err).Warn("lobby read error")
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var packet map[string]interface{}
		if err := json.Unmarshal(msg, &packet); err != nil {
			conn.WriteError("Invalid JSON format")
			continue
		}
		if !handleLobbyMessage(packet, gs, lob, conn, entry) {
			return
		}
	}
}

// handleLobbyMessage interprets the "type" field of a lobby frame. It returns false when
// the sender left.
func handleLobbyMessage(packet map[string]interface{}, gs *GameServer, lob *lobby.Lobby, sender *lobby.LobbyConnection, entry *logrus.Entry) bool {
	action, _ := packet["type"].(string)

	switch action {
	case "ping":
		sender.Write(map[string]interface{}{"type": "pong"})
	case "ready":
		lob.MarkUserReady(sender.UserID)
	case "unready":
		lob.MarkUserUnready(sender.UserID)
	case "invite":
		if !lob.IsHost(sender.UserID) {
			sender.WriteError("Only the host can invite")
			return true
		}
		userIDStr, _ := packet["userID"].(string)
		userToAdd, err := uuid.Parse(userIDStr)
		if err != nil {
			sender.WriteError("Invalid userID format for invite")
			return true
		}
		lob.InviteUser(userToAdd)
	case "leave_lobby":
		return false
	case "chat":
		msg, _ := packet["msg"].(string)
		if msg != "" {
			if err := lob.BroadcastChat(sender.UserID, msg); err != nil {
				sender.WriteError(err.Error())
			}
		}
	case "update_rules":
		if !lob.IsHost(sender.UserID) {
			sender.WriteError("Only the host can update rules")
			return true
		}
		rulesData, ok := packet["rules"].(map[string]interface{})
		if !ok {
			sender.WriteError("Invalid payload for update_rules")
			return true
		}
		if err := lob.Update(rulesData); err != nil {
			entry.WithError(err).Debug("rule update rejected")
			sender.WriteError(fmt.Sprintf("Failed to apply rule updates: %v", err))
		}
	case "start_game":
		if !lob.IsHost(sender.UserID) {
			sender.WriteError("Only the host can start the match")
			return true
		}
		if _, err := gs.StartMatchFromLobby(lob); err != nil {
			sender.WriteError(err.Error())
		}
	default:
		sender.WriteError(fmt.Sprintf("Unknown action type: %s", action))
	}
	return true
}

// writePump drains the connection's OutChan onto the socket and keeps it alive with pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *lobby.LobbyConnection, entry *logrus.Entry) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.OutChan:
			data, err := json.Marshal(msg)
			if err != nil {
				entry.WithError(err).Warn("failed to marshal lobby message")
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				entry.WithError(err).Warn("failed to write to lobby websocket")
				conn.Cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				entry.WithError(err).Warn("lobby ping failed, assuming disconnect")
				conn.Cancel()
				return
			}
		}
	}
}
