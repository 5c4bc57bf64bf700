// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/oldskool/internal/game"
	"github.com/jason-s-yu/oldskool/internal/lobby"
)

var validLobbyTypes = map[string]bool{
	lobby.LobbyTypePrivate: true,
	lobby.LobbyTypePublic:  true,
}

type createLobbyRequest struct {
	Type       string                 `json:"type"`
	HouseRules map[string]interface{} `json:"houseRules"`
	Settings   map[string]interface{} `json:"settings"`
}

// LobbySummary is the public view of a lobby.
type LobbySummary struct {
	ID            uuid.UUID           `json:"id"`
	HostUserID    uuid.UUID           `json:"hostUserID"`
	Type          string              `json:"type"`
	InGame        bool                `json:"inGame"`
	MatchID       *uuid.UUID          `json:"matchId,omitempty"`
	Members       int                 `json:"members"`
	HouseRules    game.HouseRules     `json:"houseRules"`
	LobbySettings lobby.LobbySettings `json:"lobbySettings"`
}

func summarize(l *lobby.Lobby) LobbySummary {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	s := LobbySummary{
		ID:            l.ID,
		HostUserID:    l.HostUserID,
		Type:          l.Type,
		InGame:        l.InGame,
		Members:       len(l.Connections),
		HouseRules:    l.HouseRules,
		LobbySettings: l.LobbySettings,
	}
	if l.MatchID != uuid.Nil {
		id := l.MatchID
		s.MatchID = &id
	}
	return s
}

// CreateLobbyHandler creates an in-memory lobby hosted by the caller. The body is optional.
func CreateLobbyHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		userID, err := EnsureEphemeralUser(w, r)
		if err != nil {
			http.Error(w, "could not authenticate", http.StatusInternalServerError)
			return
		}

		var req createLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "bad lobby request payload", http.StatusBadRequest)
			return
		}
		if req.Type != "" && !validLobbyTypes[req.Type] {
			http.Error(w, "invalid lobby type", http.StatusBadRequest)
			return
		}

		l := gs.NewLobby(userID, req.Type)
		if req.HouseRules != nil || req.Settings != nil {
			if err := l.Update(map[string]interface{}{"houseRules": req.HouseRules, "settings": req.Settings}); err != nil {
				gs.LobbyStore.DeleteLobby(l.ID)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		writeJSON(w, http.StatusOK, summarize(l))
	}
}

// ListLobbiesHandler lists public lobbies plus any the caller hosts or was invited to.
func ListLobbiesHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authenticatedUser(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}

		out := []LobbySummary{}
		for _, l := range gs.LobbyStore.VisibleTo(userID) {
			out = append(out, summarize(l))
		}
		writeJSON(w, http.StatusOK, out)
	}
}
