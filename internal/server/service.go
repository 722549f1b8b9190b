package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"homegame/internal/game"
	"homegame/internal/registry"
	"homegame/internal/store"
)

// DefaultRoomCode is the well-known code for single-room deployments:
// joining with no room code lands everyone at the same table.
const DefaultRoomCode = "MAIN"

// Broadcaster fans a message out to every connection subscribed to a room.
type Broadcaster interface {
	BroadcastToRoom(roomCode string, msg *Message)
}

// Service is the command surface of the engine. Every command runs under
// the target room's lock, and successful mutations are broadcast to the
// room and nudge a snapshot save.
type Service struct {
	logger   zerolog.Logger
	registry *registry.Registry
	store    *store.Store
	clock    quartz.Clock
	bcast    Broadcaster
}

// NewService wires the command surface to a registry, store, and
// broadcaster.
func NewService(logger zerolog.Logger, reg *registry.Registry, st *store.Store, clock quartz.Clock, bcast Broadcaster) *Service {
	return &Service{
		logger:   logger.With().Str("component", "service").Logger(),
		registry: reg,
		store:    st,
		clock:    clock,
		bcast:    bcast,
	}
}

func (s *Service) broadcast(roomCode string, t MessageType, data interface{}) {
	msg, err := NewMessage(t, data)
	if err != nil {
		s.logger.Error().Err(err).Str("type", string(t)).Msg("failed to encode broadcast")
		return
	}
	s.bcast.BroadcastToRoom(roomCode, msg)
}

func (s *Service) saved() {
	if s.store != nil {
		s.store.RequestSave()
	}
}

// CreateRoom allocates a new room and returns its code.
func (s *Service) CreateRoom() (string, error) {
	code, err := s.registry.Create()
	if err != nil {
		return "", err
	}
	s.saved()
	return code, nil
}

// Join seats a player in a room, preferring rejoin when the player id is
// already known there. An empty room code targets the default room,
// creating it lazily; any other code must name an existing room. An empty
// player id gets a server-assigned one.
func (s *Service) Join(roomCode, playerID, playerName string) (JoinedData, error) {
	if strings.TrimSpace(playerName) == "" {
		return JoinedData{}, fmt.Errorf("%w: player name required", game.ErrInvalidValue)
	}
	if playerID == "" {
		playerID = uuid.NewString()
	}

	with := s.registry.With
	if roomCode == "" {
		roomCode = DefaultRoomCode
		with = s.registry.WithCreate
	}

	var (
		result JoinedData
		joined *PlayerJoinedData
	)
	err := with(roomCode, func(room *game.Room) error {
		now := s.clock.Now()
		if _, ok := room.Rejoin(playerID, now); ok {
			result = JoinedData{RoomCode: roomCode, PlayerID: playerID, Rejoined: true, GameState: room.GameState()}
			return nil
		}
		isFirst := room.PlayerCount() == 0
		p, err := room.AddPlayer(playerID, playerName, isFirst, now)
		if err != nil {
			return err
		}
		result = JoinedData{RoomCode: roomCode, PlayerID: playerID, GameState: room.GameState()}
		joined = &PlayerJoinedData{PlayerID: p.ID, PlayerName: p.Name, GameState: room.GameState()}
		return nil
	})
	if err != nil {
		return JoinedData{}, err
	}

	if joined != nil {
		s.broadcast(roomCode, MessageTypePlayerJoined, joined)
		s.logger.Info().Str("room", roomCode).Str("player", playerName).Msg("player joined")
	} else {
		s.logger.Info().Str("room", roomCode).Str("player", playerName).Msg("player rejoined")
	}
	s.saved()
	return result, nil
}

// Leave unseats a player who has explicitly left. The emptied room is
// removed outright.
func (s *Service) Leave(roomCode, playerID string) error {
	var (
		state game.State
		empty bool
	)
	err := s.registry.With(roomCode, func(room *game.Room) error {
		room.RemovePlayer(playerID)
		empty = room.PlayerCount() == 0
		state = room.GameState()
		return nil
	})
	if err != nil {
		return err
	}

	if empty {
		s.registry.Remove(roomCode)
	} else {
		s.broadcast(roomCode, MessageTypePlayerLeft, PlayerLeftData{PlayerID: playerID, GameState: state})
	}
	s.saved()
	return nil
}

// StartGame begins play in a room.
func (s *Service) StartGame(roomCode, startingPlayerID string) (game.State, error) {
	var state game.State
	err := s.registry.With(roomCode, func(room *game.Room) error {
		if err := room.StartGame(startingPlayerID, s.clock.Now()); err != nil {
			return err
		}
		state = room.GameState()
		return nil
	})
	if err != nil {
		return game.State{}, err
	}

	s.broadcast(roomCode, MessageTypeGameStarted, GameStateData{GameState: state})
	s.logger.Info().Str("room", roomCode).Msg("game started")
	s.saved()
	return state, nil
}

// SetStartingPlayer moves the dealer reference point before the game
// starts (admin only).
func (s *Service) SetStartingPlayer(roomCode, adminID, playerID string) (game.State, error) {
	var out StartingPlayerSetData
	err := s.registry.With(roomCode, func(room *game.Room) error {
		if err := room.SetStartingPlayer(adminID, playerID, s.clock.Now()); err != nil {
			return err
		}
		out = StartingPlayerSetData{
			StartingPlayerID:   playerID,
			StartingPlayerName: room.Player(playerID).Name,
			GameState:          room.GameState(),
		}
		return nil
	})
	if err != nil {
		return game.State{}, err
	}

	s.broadcast(roomCode, MessageTypeStartingPlayerSet, out)
	s.saved()
	return out.GameState, nil
}

// SetPlayerOrder replaces the turn order before the game starts (admin
// only).
func (s *Service) SetPlayerOrder(roomCode, adminID string, order []string) (game.State, error) {
	var state game.State
	err := s.registry.With(roomCode, func(room *game.Room) error {
		if err := room.SetPlayerOrder(adminID, order, s.clock.Now()); err != nil {
			return err
		}
		state = room.GameState()
		return nil
	})
	if err != nil {
		return game.State{}, err
	}

	s.broadcast(roomCode, MessageTypePlayerOrderSet, PlayerOrderSetData{PlayerOrder: order, GameState: state})
	s.saved()
	return state, nil
}

// PerformAction applies one betting action. When the action resolves the
// hand, a hand_won event follows the action broadcast.
func (s *Service) PerformAction(roomCode, playerID, action string, amount int) (ActionPerformedData, error) {
	act, err := game.ParseAction(action)
	if err != nil {
		return ActionPerformedData{}, err
	}

	var (
		out     ActionPerformedData
		handWon *HandWonData
	)
	err = s.registry.With(roomCode, func(room *game.Room) error {
		result, err := room.PerformAction(playerID, act, amount, s.clock.Now())
		if err != nil {
			return err
		}
		p := room.Player(playerID)
		out = ActionPerformedData{
			PlayerID:   playerID,
			PlayerName: p.Name,
			Result:     result,
			GameState:  room.GameState(),
		}
		if w := room.Winner(); w != "" {
			handWon = &HandWonData{WinnerID: w, WinnerName: room.Player(w).Name, Pot: room.LastPotWon()}
		}
		return nil
	})
	if err != nil {
		return ActionPerformedData{}, err
	}

	s.broadcast(roomCode, MessageTypeActionPerformed, out)
	if handWon != nil {
		s.broadcast(roomCode, MessageTypeHandWon, handWon)
	}
	s.saved()
	return out, nil
}

// ValidActions returns the actions a player may take right now.
func (s *Service) ValidActions(roomCode, playerID string) ([]string, error) {
	var actions []string
	err := s.registry.With(roomCode, func(room *game.Room) error {
		for _, a := range room.ValidActions(playerID) {
			actions = append(actions, a.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// Kick removes another player on the admin's authority.
func (s *Service) Kick(roomCode, adminID, targetID string) (game.State, error) {
	var state game.State
	err := s.registry.With(roomCode, func(room *game.Room) error {
		if err := room.Kick(adminID, targetID, s.clock.Now()); err != nil {
			return err
		}
		state = room.GameState()
		return nil
	})
	if err != nil {
		return game.State{}, err
	}

	s.broadcast(roomCode, MessageTypePlayerKicked, PlayerKickedData{KickedPlayerID: targetID, GameState: state})
	s.logger.Info().Str("room", roomCode).Str("player", targetID).Msg("player kicked")
	s.saved()
	return state, nil
}

// EditPot sets the pot to an explicit value (admin only).
func (s *Service) EditPot(roomCode, adminID string, value int) (game.State, error) {
	var state game.State
	err := s.registry.With(roomCode, func(room *game.Room) error {
		if err := room.EditPot(adminID, value, s.clock.Now()); err != nil {
			return err
		}
		state = room.GameState()
		return nil
	})
	if err != nil {
		return game.State{}, err
	}

	s.broadcast(roomCode, MessageTypePotEdited, PotEditedData{NewPot: state.Pot, GameState: state})
	s.saved()
	return state, nil
}

// DeclareWinner resolves the current hand to the named player (admin only).
func (s *Service) DeclareWinner(roomCode, adminID, winnerID string) (WinnerDeclaredData, error) {
	var out WinnerDeclaredData
	err := s.registry.With(roomCode, func(room *game.Room) error {
		result, err := room.DeclareWinner(adminID, winnerID, s.clock.Now())
		if err != nil {
			return err
		}
		out = WinnerDeclaredData{DeclareWinnerResult: result, GameState: room.GameState()}
		return nil
	})
	if err != nil {
		return WinnerDeclaredData{}, err
	}

	s.broadcast(roomCode, MessageTypeWinnerDeclared, out)
	s.logger.Info().Str("room", roomCode).Str("winner", out.WinnerName).Int("pot", out.PotWon).Msg("winner declared")
	s.saved()
	return out, nil
}

// ReclaimAdmin restores admin to the room's original admin.
func (s *Service) ReclaimAdmin(roomCode, playerID string) (game.State, error) {
	var out AdminReclaimedData
	err := s.registry.With(roomCode, func(room *game.Room) error {
		if err := room.ReclaimAdmin(playerID, s.clock.Now()); err != nil {
			return err
		}
		out = AdminReclaimedData{
			NewAdminID:   playerID,
			NewAdminName: room.Player(playerID).Name,
			GameState:    room.GameState(),
		}
		return nil
	})
	if err != nil {
		return game.State{}, err
	}

	s.broadcast(roomCode, MessageTypeAdminReclaimed, out)
	s.saved()
	return out.GameState, nil
}

// StartNewHand deals in the next hand.
func (s *Service) StartNewHand(roomCode string) (game.State, error) {
	var state game.State
	err := s.registry.With(roomCode, func(room *game.Room) error {
		if err := room.StartNewHand(s.clock.Now()); err != nil {
			return err
		}
		state = room.GameState()
		return nil
	})
	if err != nil {
		return game.State{}, err
	}

	s.broadcast(roomCode, MessageTypeNewHandStarted, GameStateData{GameState: state})
	s.saved()
	return state, nil
}

// ResetGame restarts the session with the same roster.
func (s *Service) ResetGame(roomCode string) (game.State, error) {
	var state game.State
	err := s.registry.With(roomCode, func(room *game.Room) error {
		room.Reset(s.clock.Now())
		state = room.GameState()
		return nil
	})
	if err != nil {
		return game.State{}, err
	}

	s.broadcast(roomCode, MessageTypeGameReset, GameStateData{GameState: state})
	s.logger.Info().Str("room", roomCode).Msg("game reset")
	s.saved()
	return state, nil
}

// Chat relays a chat line to the room under the sender's display name.
// Pure transport: the engine state never changes.
func (s *Service) Chat(roomCode, playerID, message string) error {
	var name string
	err := s.registry.With(roomCode, func(room *game.Room) error {
		p := room.Player(playerID)
		if p == nil {
			return game.ErrUnknownPlayer
		}
		name = p.Name
		return nil
	})
	if err != nil {
		return err
	}

	s.broadcast(roomCode, MessageTypeChat, ChatBroadcastData{
		PlayerName: name,
		Message:    message,
		Timestamp:  s.clock.Now(),
	})
	return nil
}

// errorCode maps engine errors to stable wire codes clients can branch on.
func errorCode(err error) string {
	switch {
	case errors.Is(err, registry.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, game.ErrRoomFull):
		return "room_full"
	case errors.Is(err, game.ErrDuplicateName):
		return "duplicate_name"
	case errors.Is(err, game.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, game.ErrNotEnoughPlayers):
		return "not_enough_players"
	case errors.Is(err, game.ErrOutOfTurn):
		return "out_of_turn"
	case errors.Is(err, game.ErrInvalidAction):
		return "invalid_action"
	case errors.Is(err, game.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, game.ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, game.ErrInvalidWinner):
		return "invalid_winner"
	case errors.Is(err, game.ErrInvalidOrder):
		return "invalid_order"
	case errors.Is(err, game.ErrUnknownPlayer):
		return "unknown_player"
	}
	return "internal_error"
}
