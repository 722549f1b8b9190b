// Package server is the WebSocket transport: it upgrades connections,
// decodes commands, invokes the room service, and fans events out to every
// connection watching a room.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Server accepts WebSocket connections and fans room events out to them.
type Server struct {
	addr       string
	upgrader   websocket.Upgrader
	httpServer *http.Server

	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	mu          sync.RWMutex

	logger  zerolog.Logger
	service *Service
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewServer creates a server listening on addr. Call SetService before
// Start.
func NewServer(addr string, logger zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Home games run on a LAN or behind a trusted proxy, so any
				// origin may connect.
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.With().Str("component", "server").Logger(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetService wires the command surface the connections dispatch to.
func (s *Server) SetService(service *Service) {
	s.service = service
}

// Start runs the HTTP listener until Stop is called. It blocks.
func (s *Server) Start() error {
	go s.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	s.logger.Info().Str("addr", s.addr).Msg("starting WebSocket server")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the listener down gracefully and closes every connection.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	return err
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info().Int("total", total).Msg("client connected")

		case conn := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)
				_ = conn.Close()
			}
			total := len(s.connections)
			s.mu.Unlock()

			// A dropped connection keeps its seat: the player rejoins with
			// the same id, and the room expires on its own if nobody returns.
			s.logger.Info().Int("total", total).Str("player", conn.PlayerID()).Msg("client disconnected")

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := NewConnection(conn, s.logger, s.service)
	s.register <- client
	client.Start()

	go func() {
		<-client.ctx.Done()
		s.unregister <- client
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// BroadcastToRoom sends a message to every connection subscribed to a room.
func (s *Server) BroadcastToRoom(roomCode string, msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.RoomCode() == roomCode {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error().Err(err).Str("player", conn.PlayerID()).Msg("failed to send message to client")
			} else {
				count++
			}
		}
	}

	s.logger.Debug().Str("room", roomCode).Str("type", string(msg.Type)).Int("recipients", count).Msg("broadcasted message to room")
}

// SendToPlayer sends a message to a specific player's connection.
func (s *Server) SendToPlayer(playerID string, msg *Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.PlayerID() == playerID {
			return conn.SendMessage(msg)
		}
	}

	return fmt.Errorf("player not found: %s", playerID)
}

// ConnectedPlayers returns the ids of every connection bound to a player.
func (s *Server) ConnectedPlayers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var players []string
	for conn := range s.connections {
		if playerID := conn.PlayerID(); playerID != "" {
			players = append(players, playerID)
		}
	}

	return players
}
