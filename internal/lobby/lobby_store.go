// internal/lobby/lobby_store.go
package lobby

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LobbyStore manages active ephemeral lobbies in memory.
type LobbyStore struct {
	mu      sync.Mutex
	lobbies map[uuid.UUID]*Lobby
	log     *logrus.Logger
}

// NewLobbyStore initializes and returns an empty LobbyStore.
func NewLobbyStore(logger *logrus.Logger) *LobbyStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LobbyStore{
		lobbies: make(map[uuid.UUID]*Lobby),
		log:     logger,
	}
}

// AddLobby adds a new lobby to the store and wires its OnEmpty callback to delete it. An
// existing OnEmpty is chained.
func (s *LobbyStore) AddLobby(lobby *Lobby) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.lobbies[lobby.ID]; exists {
		s.log.WithField("lobby", lobby.ID).Warn("attempted to add lobby which already exists")
		return
	}
	prev := lobby.OnEmpty
	lobby.OnEmpty = func(id uuid.UUID) {
		s.DeleteLobby(id)
		if prev != nil {
			prev(id)
		}
	}
	s.lobbies[lobby.ID] = lobby
	s.log.WithField("lobby", lobby.ID).Debug("lobby added")
}

// DeleteLobby removes a lobby from the store.
func (s *LobbyStore) DeleteLobby(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.lobbies[id]; !exists {
		return
	}
	delete(s.lobbies, id)
	s.log.WithField("lobby", id).Debug("lobby deleted")
}

// GetLobby retrieves a lobby by its ID.
func (s *LobbyStore) GetLobby(id uuid.UUID) (*Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[id]
	return l, ok
}

// GetLobbies returns a copy of the map containing all active lobbies.
func (s *LobbyStore) GetLobbies() map[uuid.UUID]*Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	lobbiesCopy := make(map[uuid.UUID]*Lobby, len(s.lobbies))
	for k, v := range s.lobbies {
		lobbiesCopy[k] = v
	}
	return lobbiesCopy
}

// VisibleTo returns the lobbies userID may see, ordered by id: every public lobby plus the
// private ones they host or were invited to.
func (s *LobbyStore) VisibleTo(userID uuid.UUID) []*Lobby {
	var out []*Lobby
	for _, l := range s.GetLobbies() {
		l.Mu.Lock()
		_, invited := l.Users[userID]
		visible := l.Type == LobbyTypePublic || invited
		l.Mu.Unlock()
		if visible {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}
