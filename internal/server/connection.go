package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	playerID  string
	roomCode  string
	logger    zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	service   *Service
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger zerolog.Logger, service *Service) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:    conn,
		send:    make(chan *Message, 256),
		logger:  logger.With().Str("component", "conn").Logger(),
		ctx:     ctx,
		cancel:  cancel,
		service: service,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed during shutdown
			c.logger.Debug().Interface("error", r).Msg("attempted to send message on closed connection")
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn().Msg("connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// bind associates this connection with a seated player.
func (c *Connection) bind(roomCode, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = roomCode
	c.playerID = playerID
}

// unbind clears the player association after an explicit leave.
func (c *Connection) unbind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = ""
	c.playerID = ""
}

// PlayerID returns the associated player id, if any.
func (c *Connection) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// RoomCode returns the associated room code, if any.
func (c *Connection) RoomCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("WebSocket error")
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error().Err(err).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug().Str("type", string(msg.Type)).Str("player", c.PlayerID()).Msg("received message")

	switch msg.Type {
	case MessageTypeJoin:
		var data JoinData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join data")
			return
		}
		c.handleJoin(data)

	case MessageTypeLeave:
		c.handleLeave()

	case MessageTypeCreateRoom:
		c.handleCreateRoom()

	case MessageTypeStartGame:
		var data StartGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse start game data")
			return
		}
		c.inRoom(func(roomCode, playerID string) {
			_, err := c.service.StartGame(roomCode, data.StartingPlayerID)
			c.finish(err)
		})

	case MessageTypeSetStartingPlayer:
		var data SetStartingPlayerData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse set starting player data")
			return
		}
		c.inRoom(func(roomCode, playerID string) {
			_, err := c.service.SetStartingPlayer(roomCode, playerID, data.StartingPlayerID)
			c.finish(err)
		})

	case MessageTypeSetPlayerOrder:
		var data SetPlayerOrderData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse set player order data")
			return
		}
		c.inRoom(func(roomCode, playerID string) {
			_, err := c.service.SetPlayerOrder(roomCode, playerID, data.PlayerOrder)
			c.finish(err)
		})

	case MessageTypePlayerAction:
		var data PlayerActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse player action data")
			return
		}
		c.inRoom(func(roomCode, playerID string) {
			_, err := c.service.PerformAction(roomCode, playerID, data.Action, data.Amount)
			c.finish(err)
		})

	case MessageTypeGetValidActions:
		c.inRoom(func(roomCode, playerID string) {
			c.handleGetValidActions(roomCode, playerID)
		})

	case MessageTypeKickPlayer:
		var data KickPlayerData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse kick player data")
			return
		}
		c.inRoom(func(roomCode, playerID string) {
			_, err := c.service.Kick(roomCode, playerID, data.TargetPlayerID)
			c.finish(err)
		})

	case MessageTypeEditPot:
		var data EditPotData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse edit pot data")
			return
		}
		c.inRoom(func(roomCode, playerID string) {
			_, err := c.service.EditPot(roomCode, playerID, data.NewPotValue)
			c.finish(err)
		})

	case MessageTypeDeclareWinner:
		var data DeclareWinnerData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse declare winner data")
			return
		}
		c.inRoom(func(roomCode, playerID string) {
			_, err := c.service.DeclareWinner(roomCode, playerID, data.WinnerID)
			c.finish(err)
		})

	case MessageTypeReclaimAdmin:
		c.inRoom(func(roomCode, playerID string) {
			_, err := c.service.ReclaimAdmin(roomCode, playerID)
			c.finish(err)
		})

	case MessageTypeNewHand:
		c.inRoom(func(roomCode, playerID string) {
			_, err := c.service.StartNewHand(roomCode)
			c.finish(err)
		})

	case MessageTypeResetGame:
		c.inRoom(func(roomCode, playerID string) {
			_, err := c.service.ResetGame(roomCode)
			c.finish(err)
		})

	case MessageTypeChat:
		var data ChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse chat data")
			return
		}
		c.handleChat(data)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+string(msg.Type))
	}
}

// inRoom runs fn with the connection's bindings, rejecting commands from
// connections that have not joined a room.
func (c *Connection) inRoom(fn func(roomCode, playerID string)) {
	roomCode, playerID := c.RoomCode(), c.PlayerID()
	if roomCode == "" || playerID == "" {
		c.sendError("not_joined", "Must join a room first")
		return
	}
	fn(roomCode, playerID)
}

// finish reports a command error back to this client. Success needs no
// direct response: the room broadcast carries the result.
func (c *Connection) finish(err error) {
	if err != nil {
		c.sendServiceError(err)
	}
}

func (c *Connection) handleJoin(data JoinData) {
	if c.service == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	result, err := c.service.Join(data.RoomCode, data.PlayerID, data.PlayerName)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	c.bind(result.RoomCode, result.PlayerID)

	response, _ := NewMessage(MessageTypeJoined, result)
	_ = c.SendMessage(response)
}

func (c *Connection) handleLeave() {
	roomCode, playerID := c.RoomCode(), c.PlayerID()
	if roomCode == "" || playerID == "" {
		c.sendError("not_joined", "Must join a room first")
		return
	}

	if err := c.service.Leave(roomCode, playerID); err != nil {
		c.sendServiceError(err)
		return
	}
	c.unbind()
}

func (c *Connection) handleCreateRoom() {
	if c.service == nil {
		c.sendError("service_unavailable", "Game service not available")
		return
	}

	code, err := c.service.CreateRoom()
	if err != nil {
		c.sendError("create_failed", err.Error())
		return
	}

	response, _ := NewMessage(MessageTypeRoomCreated, RoomCreatedData{RoomCode: code})
	_ = c.SendMessage(response)
}

func (c *Connection) handleGetValidActions(roomCode, playerID string) {
	actions, err := c.service.ValidActions(roomCode, playerID)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	response, _ := NewMessage(MessageTypeValidActions, ValidActionsData{PlayerID: playerID, Actions: actions})
	_ = c.SendMessage(response)
}

func (c *Connection) handleChat(data ChatData) {
	c.inRoom(func(roomCode, playerID string) {
		if err := c.service.Chat(roomCode, playerID, data.Message); err != nil {
			c.sendServiceError(err)
		}
	})
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to create error message")
		return
	}

	_ = c.SendMessage(errorMsg)
}

// sendServiceError maps an engine error onto the wire taxonomy.
func (c *Connection) sendServiceError(err error) {
	c.sendError(errorCode(err), err.Error())
}
