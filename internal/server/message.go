package server

import (
	"encoding/json"
	"time"

	"homegame/internal/game"
)

// MessageType identifies a wire message.
type MessageType string

// Client → server message types.
const (
	MessageTypeJoin              MessageType = "join"
	MessageTypeLeave             MessageType = "leave"
	MessageTypeCreateRoom        MessageType = "create_room"
	MessageTypeStartGame         MessageType = "start_game"
	MessageTypeSetStartingPlayer MessageType = "set_starting_player"
	MessageTypeSetPlayerOrder    MessageType = "set_player_order"
	MessageTypePlayerAction      MessageType = "player_action"
	MessageTypeGetValidActions   MessageType = "get_valid_actions"
	MessageTypeKickPlayer        MessageType = "kick_player"
	MessageTypeEditPot           MessageType = "edit_pot"
	MessageTypeDeclareWinner     MessageType = "declare_winner"
	MessageTypeReclaimAdmin      MessageType = "reclaim_admin"
	MessageTypeNewHand           MessageType = "new_hand"
	MessageTypeResetGame         MessageType = "reset_game"
	MessageTypeChat              MessageType = "chat"
)

// Server → client message types.
const (
	MessageTypeJoined            MessageType = "joined"
	MessageTypePlayerJoined      MessageType = "player_joined"
	MessageTypePlayerLeft        MessageType = "player_left"
	MessageTypeRoomCreated       MessageType = "room_created"
	MessageTypeGameStarted       MessageType = "game_started"
	MessageTypeStartingPlayerSet MessageType = "starting_player_set"
	MessageTypePlayerOrderSet    MessageType = "player_order_set"
	MessageTypeActionPerformed   MessageType = "action_performed"
	MessageTypeHandWon           MessageType = "hand_won"
	MessageTypeValidActions      MessageType = "valid_actions"
	MessageTypePlayerKicked      MessageType = "player_kicked"
	MessageTypePotEdited         MessageType = "pot_edited"
	MessageTypeWinnerDeclared    MessageType = "winner_declared"
	MessageTypeAdminReclaimed    MessageType = "admin_reclaimed"
	MessageTypeNewHandStarted    MessageType = "new_hand_started"
	MessageTypeGameReset         MessageType = "game_reset"
	MessageTypeError             MessageType = "error"
)

// Message is the wire envelope for both directions.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps a payload in an envelope with the current timestamp.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → server payloads.

type JoinData struct {
	RoomCode   string `json:"roomCode,omitempty"`
	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName"`
}

type StartGameData struct {
	StartingPlayerID string `json:"startingPlayerId,omitempty"`
}

type SetStartingPlayerData struct {
	StartingPlayerID string `json:"startingPlayerId"`
}

type SetPlayerOrderData struct {
	PlayerOrder []string `json:"playerOrder"`
}

type PlayerActionData struct {
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

type KickPlayerData struct {
	TargetPlayerID string `json:"targetPlayerId"`
}

type EditPotData struct {
	NewPotValue int `json:"newPotValue"`
}

type DeclareWinnerData struct {
	WinnerID string `json:"winnerId"`
}

type ChatData struct {
	Message string `json:"message"`
}

// Server → client payloads. Mutating commands carry the full room state so
// every subscriber can re-render from scratch.

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type JoinedData struct {
	RoomCode  string     `json:"roomCode"`
	PlayerID  string     `json:"playerId"`
	Rejoined  bool       `json:"rejoined"`
	GameState game.State `json:"gameState"`
}

type PlayerJoinedData struct {
	PlayerID   string     `json:"playerId"`
	PlayerName string     `json:"playerName"`
	GameState  game.State `json:"gameState"`
}

type PlayerLeftData struct {
	PlayerID  string     `json:"playerId"`
	GameState game.State `json:"gameState"`
}

type RoomCreatedData struct {
	RoomCode string `json:"roomCode"`
}

type GameStateData struct {
	GameState game.State `json:"gameState"`
}

type StartingPlayerSetData struct {
	StartingPlayerID   string     `json:"startingPlayerId"`
	StartingPlayerName string     `json:"startingPlayerName"`
	GameState          game.State `json:"gameState"`
}

type PlayerOrderSetData struct {
	PlayerOrder []string   `json:"playerOrder"`
	GameState   game.State `json:"gameState"`
}

type ActionPerformedData struct {
	PlayerID   string            `json:"playerId"`
	PlayerName string            `json:"playerName"`
	Result     game.ActionResult `json:"result"`
	GameState  game.State        `json:"gameState"`
}

type HandWonData struct {
	WinnerID   string `json:"winnerId"`
	WinnerName string `json:"winnerName"`
	Pot        int    `json:"pot"`
}

type ValidActionsData struct {
	PlayerID string   `json:"playerId"`
	Actions  []string `json:"actions"`
}

type PlayerKickedData struct {
	KickedPlayerID string     `json:"kickedPlayerId"`
	GameState      game.State `json:"gameState"`
}

type PotEditedData struct {
	NewPot    int        `json:"newPot"`
	GameState game.State `json:"gameState"`
}

type WinnerDeclaredData struct {
	game.DeclareWinnerResult
	GameState game.State `json:"gameState"`
}

type AdminReclaimedData struct {
	NewAdminID   string     `json:"newAdminId"`
	NewAdminName string     `json:"newAdminName"`
	GameState    game.State `json:"gameState"`
}

type ChatBroadcastData struct {
	PlayerName string    `json:"playerName"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}
