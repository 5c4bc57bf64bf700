// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used within the lobby and game handlers.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Auth token was missing, invalid or expired.
	InvalidLobbyIDError   = 3003 // Target lobby does not exist.
	LobbyRejectedError    = 3004 // Lobby refused the join (full or not invited).
)
