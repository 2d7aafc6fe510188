package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ErrSendFailed is returned by Unicast when the target could not accept the message
var ErrSendFailed = errors.New("connection send failed")

// Handler receives connection lifecycle callbacks and inbound frames
type Handler interface {
	// Join is called once after upgrade, before any frame is read. It is expected to register the connection.
	Join(c *Connection)
	// Leave is called once when the read side ends
	Leave(c *Connection)
	// HandleMessage is called for every inbound text frame, sequentially per connection
	HandleMessage(c *Connection, data []byte)
}

// ConnectionManager is the registry of live scoreboard connections
type ConnectionManager struct {
	connections map[*Connection]bool
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID         string
	RemoteAddr string
	Conn       *websocket.Conn
	Send       chan []byte
	Manager    *ConnectionManager

	ConnectedAt time.Time

	mu       sync.Mutex
	closed   bool
	lastPing time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout time.Duration
	// ReadTimeout bounds the wait for any frame or pong. Zero disables the deadline,
	// so idle clients are only dropped when a write to them fails.
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// ConnectionInfo describes one registered connection
type ConnectionInfo struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
	LastPing    time.Time `json:"last_ping"`
}

// Stats is a point-in-time view of the registry
type Stats struct {
	TotalConnections int              `json:"total_connections"`
	Connections      []ConnectionInfo `json:"connections"`
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     0,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			// scoreboards run on a trusted LAN
			return true
		},
	}
}

// NewConnectionManager creates an empty registry
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = DefaultConnectionConfig().SendBufferSize
	}
	if config.PingInterval <= 0 {
		config.PingInterval = DefaultConnectionConfig().PingInterval
	}
	return &ConnectionManager{
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// NewConnection creates a connection with no socket attached. The caller owns
// draining Send.
func NewConnection(id, remoteAddr string, buffer int) *Connection {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now()
	return &Connection{
		ID:          id,
		RemoteAddr:  remoteAddr,
		Send:        make(chan []byte, buffer),
		ConnectedAt: now,
		lastPing:    now,
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and hands it to handler
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, handler Handler) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := NewConnection("", r.RemoteAddr, cm.config.SendBufferSize)
	connection.Conn = conn
	connection.Manager = cm

	handler.Join(connection)

	go connection.writePump()
	go connection.readPump(handler)

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", connection.RemoteAddr).
		Msg("websocket connection established")

	return nil
}

// Register adds a connection to the registry
func (cm *ConnectionManager) Register(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// Unregister removes a connection and closes its send queue. Unknown or
// already removed connections are ignored.
func (cm *ConnectionManager) Unregister(conn *Connection) {
	cm.mu.Lock()
	_, exists := cm.connections[conn]
	delete(cm.connections, conn)
	remaining := len(cm.connections)
	cm.mu.Unlock()

	conn.close()

	if exists {
		log.Info().
			Str("connection_id", conn.ID).
			Str("remote_addr", conn.RemoteAddr).
			Int("total_connections", remaining).
			Msg("connection unregistered")
	}
}

// Count returns the number of registered connections
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// Broadcast enqueues msg on every registered connection. Connections that
// cannot accept it are unregistered once the pass is complete.
func (cm *ConnectionManager) Broadcast(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast: %w", err)
	}

	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.connections))
	for conn := range cm.connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	var failed []*Connection
	for _, conn := range targets {
		if !conn.enqueue(data) {
			failed = append(failed, conn)
		}
	}

	for _, conn := range failed {
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		cm.drop(conn)
	}

	log.Debug().
		Int("connections", len(targets)).
		Int("dropped", len(failed)).
		Msg("message broadcasted")

	return nil
}

// Unicast enqueues msg on a single connection, unregistering it on failure
func (cm *ConnectionManager) Unicast(conn *Connection, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if !conn.enqueue(data) {
		cm.drop(conn)
		return fmt.Errorf("%w: %s", ErrSendFailed, conn.ID)
	}
	return nil
}

// Stats returns statistics about active connections, oldest first
func (cm *ConnectionManager) Stats() Stats {
	cm.mu.RLock()
	infos := make([]ConnectionInfo, 0, len(cm.connections))
	for conn := range cm.connections {
		infos = append(infos, conn.info())
	}
	cm.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ConnectedAt.Before(infos[j].ConnectedAt)
	})
	return Stats{TotalConnections: len(infos), Connections: infos}
}

func (cm *ConnectionManager) drop(conn *Connection) {
	cm.Unregister(conn)
	if conn.Conn != nil {
		conn.Conn.Close()
	}
}

func (c *Connection) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Connection) touch() {
	c.mu.Lock()
	c.lastPing = time.Now()
	c.mu.Unlock()
}

func (c *Connection) info() ConnectionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnectionInfo{
		ID:          c.ID,
		RemoteAddr:  c.RemoteAddr,
		ConnectedAt: c.ConnectedAt,
		LastPing:    c.lastPing,
	}
}

// writePump drains the send queue onto the socket
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.Unregister(c)
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
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump feeds inbound frames to the handler until the socket fails
func (c *Connection) readPump(handler Handler) {
	defer func() {
		handler.Leave(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.extendReadDeadline()
	c.Conn.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		c.touch()
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close error")
			}
			return
		}
		c.extendReadDeadline()

		if messageType != websocket.TextMessage {
			continue
		}
		if !c.dispatch(handler, message) {
			return
		}
	}
}

// dispatch runs the handler for one frame and reports false if it panicked
func (c *Connection) dispatch(handler Handler, message []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("connection_id", c.ID).
				Msg("recovered panic in message handler, dropping connection")
			ok = false
		}
	}()
	handler.HandleMessage(c, message)
	return true
}

func (c *Connection) extendReadDeadline() {
	if c.Manager.config.ReadTimeout > 0 {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
