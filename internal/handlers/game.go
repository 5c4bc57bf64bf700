// internal/handlers/game.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// MatchStateHandler serves GET /game/state/{match_id}: the caller's projected view of a
// running match. Clients poll it to recover when they cannot hold a socket open.
func MatchStateHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		matchID, err := uuid.Parse(strings.Trim(strings.TrimPrefix(r.URL.Path, "/game/state/"), "/"))
		if err != nil {
			http.Error(w, "invalid match id", http.StatusBadRequest)
			return
		}
		userID, err := authenticatedUser(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		m, ok := gs.MatchStore.GetMatch(matchID)
		if !ok {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}
		if !m.HasPlayer(userID) {
			http.Error(w, "you are not seated in this match", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, m.View(userID))
	}
}
