// internal/handlers/routes.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/oldskool/internal/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter mounts every HTTP and websocket route behind the request logger.
func NewRouter(gs *GameServer, logger *logrus.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/user/create", CreateUserHandler)
	mux.HandleFunc("/user/login", LoginHandler)
	mux.HandleFunc("/user/claim", ClaimEphemeralHandler)

	mux.HandleFunc("/lobby/create", CreateLobbyHandler(gs))
	mux.HandleFunc("/lobby/list", ListLobbiesHandler(gs))
	mux.HandleFunc("/lobby/ws/", LobbyWSHandler(logger, gs))

	mux.HandleFunc("/game/ws/", GameWSHandler(logger, gs))
	mux.HandleFunc("/game/state/", MatchStateHandler(gs))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"lobbies": len(gs.LobbyStore.GetLobbies()),
			"matches": gs.MatchStore.Len(),
		})
	})

	return middleware.LogMiddleware(logger)(mux)
}
