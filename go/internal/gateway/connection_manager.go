// Package gateway holds the websocket edge: player connections, the realtime
// fan-out consumer and the read-only state endpoint.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/ladders/go/internal/events"
	"github.com/rs/zerolog/log"
)

// ErrBroadcastFull is returned by Notify when the broadcast buffer is full.
var ErrBroadcastFull = errors.New("broadcast channel full")

// ConnectionManager manages player websocket connections. Every connection
// gets an opaque address that the core uses to reach it.
type ConnectionManager struct {
	connections map[string]*Connection
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan *events.Envelope
}

// Connection represents a websocket connection to a client
type Connection struct {
	Address  string
	PlayerID string
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for websocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"10s"`
	ReadTimeout     time.Duration `env:"WS_READ_TIMEOUT" envDefault:"60s"`
	PingInterval    time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
	MaxMessageSize  int64         `env:"WS_MAX_MESSAGE_SIZE" envDefault:"1024"`
	ReadBufferSize  int           `env:"WS_READ_BUFFER" envDefault:"1024"`
	WriteBufferSize int           `env:"WS_WRITE_BUFFER" envDefault:"1024"`
	SendBuffer      int           `env:"WS_SEND_BUFFER" envDefault:"256"`
	BroadcastBuffer int           `env:"WS_BROADCAST_BUFFER" envDefault:"1000"`
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default websocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		BroadcastBuffer: 1000,
	}
}

// NewConnectionManager creates a new websocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	checkOrigin := config.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = 256
	}
	if config.BroadcastBuffer <= 0 {
		config.BroadcastBuffer = 1000
	}

	return &ConnectionManager{
		connections: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     checkOrigin,
		},
		config:      config,
		broadcastCh: make(chan *events.Envelope, config.BroadcastBuffer),
	}
}

// Start processes queued envelopes until ctx is cancelled, then closes every
// connection.
func (cm *ConnectionManager) Start(ctx context.Context) error {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			cm.closeAll()
			log.Info().Msg("connection manager shutting down")
			return nil
		case env := <-cm.broadcastCh:
			cm.deliver(env)
		}
	}
}

// Notify queues env for the connection at address. Addresses served by other
// instances are ignored when the envelope is delivered.
func (cm *ConnectionManager) Notify(_ context.Context, address string, env *events.Envelope) error {
	if env.Address != address {
		addressed := *env
		addressed.Address = address
		env = &addressed
	}
	select {
	case cm.broadcastCh <- env:
		return nil
	default:
		log.Warn().Str("address", address).Str("event_type", string(env.Type)).Msg("broadcast channel full, dropping message")
		return ErrBroadcastFull
	}
}

// UpgradeConnection upgrades an HTTP connection to a websocket and greets it
// with its address.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, playerID string) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		Address:     uuid.NewString(),
		PlayerID:    playerID,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBuffer),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	welcome, err := events.New(events.TypeWelcome, connection.Address, events.WelcomePayload{Address: connection.Address}, connection.ConnectedAt)
	if err != nil {
		conn.Close()
		return nil, err
	}
	data, err := json.Marshal(welcome)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to marshal welcome: %w", err)
	}
	connection.Send <- data

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("address", connection.Address).
		Str("player_id", playerID).
		Msg("websocket connection established")

	return connection, nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[conn.Address] = conn

	log.Debug().
		Str("address", conn.Address).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// unregisterConnection removes conn and closes its send channel. Send is only
// closed under the write lock, so senders holding the read lock never race it.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	current, ok := cm.connections[conn.Address]
	removed := ok && current == conn
	if removed {
		delete(cm.connections, conn.Address)
		close(conn.Send)
	}
	cm.mu.Unlock()

	if removed {
		log.Info().
			Str("address", conn.Address).
			Str("player_id", conn.PlayerID).
			Msg("connection unregistered")
	}
}

func (cm *ConnectionManager) deliver(env *events.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for delivery")
		return
	}

	cm.mu.RLock()
	conn, ok := cm.connections[env.Address]
	sent := false
	if ok {
		select {
		case conn.Send <- data:
			sent = true
		default:
		}
	}
	cm.mu.RUnlock()

	switch {
	case !ok:
		log.Debug().Str("address", env.Address).Str("event_type", string(env.Type)).Msg("no local connection for address")
	case !sent:
		log.Warn().
			Str("address", conn.Address).
			Str("player_id", conn.PlayerID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for _, c := range cm.connections {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		cm.unregisterConnection(c)
	}
}

// ConnectionStats summarises the live connections.
type ConnectionStats struct {
	TotalConnections int `json:"total_connections"`
	Players          int `json:"players"`
}

// Stats returns statistics about active connections
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	players := make(map[string]struct{})
	for _, c := range cm.connections {
		if c.PlayerID != "" {
			players[c.PlayerID] = struct{}{}
		}
	}
	return ConnectionStats{TotalConnections: len(cm.connections), Players: len(players)}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("address", c.Address).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("address", c.Address).
					Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	// clients only send control frames; anything else is logged and ignored
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("address", c.Address).
					Msg("unexpected websocket close error")
			}
			break
		}
		log.Debug().
			Str("address", c.Address).
			Int("bytes", len(message)).
			Msg("ignoring client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
