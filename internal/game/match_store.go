package game

import (
	"sync"

	"github.com/google/uuid"
)

// MatchStore is the registry of running matches.
type MatchStore struct {
	mu      sync.Mutex
	matches map[uuid.UUID]*Match
}

func NewMatchStore() *MatchStore {
	return &MatchStore{
		matches: make(map[uuid.UUID]*Match),
	}
}

func (s *MatchStore) AddMatch(m *Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = m
}

func (s *MatchStore) GetMatch(id uuid.UUID) (*Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, exists := s.matches[id]
	return m, exists
}

func (s *MatchStore) DeleteMatch(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, id)
}

// GetMatchByLobbyID returns the match spawned by a lobby, or nil if none is running.
func (s *MatchStore) GetMatchByLobbyID(lobbyID uuid.UUID) *Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		if m.LobbyID == lobbyID {
			return m
		}
	}
	return nil
}

// Len returns the number of registered matches.
func (s *MatchStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matches)
}

// All returns a snapshot of the registered matches.
func (s *MatchStore) All() []*Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m)
	}
	return out
}
