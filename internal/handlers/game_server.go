// internal/handlers/game_server.go
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/oldskool/internal/database"
	"github.com/jason-s-yu/oldskool/internal/game"
	"github.com/jason-s-yu/oldskool/internal/lobby"
	"github.com/jason-s-yu/oldskool/internal/rating"
	"github.com/sirupsen/logrus"
)

// GameServer owns the in-memory lobbies and matches and moves a lobby into a match and
// back.
type GameServer struct {
	LobbyStore *lobby.LobbyStore
	MatchStore *game.MatchStore

	// Actions receives every match's action log; nil disables it.
	Actions game.ActionPublisher
	// Persist writes initial states, results and ratings to postgres.
	Persist bool
	// TurnTimerSec seeds the turn timer of new lobbies.
	TurnTimerSec int

	logger *logrus.Logger
	hub    *hub
}

// NewGameServer returns a server with empty stores.
func NewGameServer(logger *logrus.Logger) *GameServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &GameServer{
		LobbyStore:   lobby.NewLobbyStore(logger),
		MatchStore:   game.NewMatchStore(),
		TurnTimerSec: game.DefaultHouseRules().TurnTimerSec,
		logger:       logger,
		hub:          newHub(logger),
	}
}

// NewLobby creates and registers a lobby hosted by hostID.
func (gs *GameServer) NewLobby(hostID uuid.UUID, lobbyType string) *lobby.Lobby {
	l := lobby.NewLobbyWithDefaults(hostID, gs.logger)
	if lobbyType != "" {
		l.Type = lobbyType
	}
	l.HouseRules.TurnTimerSec = gs.TurnTimerSec
	l.OnCountdownDone = func(l *lobby.Lobby) {
		if _, err := gs.StartMatchFromLobby(l); err != nil {
			gs.logger.WithError(err).WithField("lobby", l.ID).Warn("auto-start failed")
		}
	}
	gs.LobbyStore.AddLobby(l)
	return l
}

// StartMatchFromLobby deals a match for every connected lobby member, in join order.
// Everyone must be ready.
func (gs *GameServer) StartMatchFromLobby(l *lobby.Lobby) (*game.Match, error) {
	l.Mu.Lock()
	if l.InGame {
		l.Mu.Unlock()
		return nil, fmt.Errorf("lobby %s already has a match running", l.ID)
	}
	if !l.AreAllReadyUnsafe() {
		l.Mu.Unlock()
		return nil, fmt.Errorf("not all users are ready")
	}

	m, err := game.NewMatch(l.ID, l.SeatsUnsafe(), l.HouseRules, gs.logger)
	if err != nil {
		l.Mu.Unlock()
		return nil, err
	}
	matchID := m.ID
	m.Actions = gs.Actions
	m.BroadcastToPlayerFn = func(playerID uuid.UUID, msg game.Message) {
		gs.hub.send(matchID, playerID, msg)
	}
	// OnMatchEnd runs under the match lock; completion touches the lobby and the database
	// so it happens on its own goroutine.
	m.OnMatchEnd = func(result game.MatchResult) {
		go gs.completeMatch(result)
	}
	gs.MatchStore.AddMatch(m)
	l.BeginMatchUnsafe(matchID)
	l.Mu.Unlock()

	if gs.Persist && database.Enabled() {
		initial := m.InitialState()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := database.UpsertInitialMatchState(ctx, matchID, l.ID, initial); err != nil {
				gs.logger.WithError(err).WithField("match", matchID).Error("failed to store initial match state")
			}
		}()
	}

	m.Start()
	gs.logger.WithFields(logrus.Fields{"lobby": l.ID, "match": matchID}).Info("match started from lobby")
	return m, nil
}

// completeMatch persists the result, rates a decided match, and hands the lobby back.
func (gs *GameServer) completeMatch(result game.MatchResult) {
	entry := gs.logger.WithFields(logrus.Fields{"match": result.MatchID, "lobby": result.LobbyID})

	if gs.Persist && database.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := database.RecordMatchResult(ctx, result); err != nil {
			entry.WithError(err).Error("failed to record match result")
		} else if !result.Abandoned {
			if err := gs.updateRatings(ctx, result); err != nil {
				entry.WithError(err).Error("failed to update ratings")
			}
		}
		cancel()
	}

	gs.MatchStore.DeleteMatch(result.MatchID)
	gs.hub.dropMatch(result.MatchID)
	if l, ok := gs.LobbyStore.GetLobby(result.LobbyID); ok {
		l.EndMatch(result)
	}
	entry.Info("match completed")
}

func (gs *GameServer) updateRatings(ctx context.Context, result game.MatchResult) error {
	before, err := database.GetUsersByIDs(ctx, result.Players)
	if err != nil {
		return err
	}
	if len(before) < 2 {
		return nil
	}
	after := rating.FinalizeRatings(before, result.Winner, result.HandCounts)
	return database.SaveRatings(ctx, result.MatchID, before, after)
}

// Shutdown stops every running match's timer.
func (gs *GameServer) Shutdown() {
	for _, m := range gs.MatchStore.All() {
		m.Stop()
	}
	gs.hub.closeAll()
}
