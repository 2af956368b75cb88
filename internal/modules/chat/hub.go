package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// ProbeInterval is how often live connections are liveness-probed. A
	// connection that misses two consecutive probes is force-closed, so a
	// half-open transport occupies the hub for at most 2 × ProbeInterval.
	ProbeInterval = 30 * time.Second

	writeWait = 10 * time.Second
)

// Connection is one live, authenticated websocket owned by the Hub. A user
// may hold several at once (multiple tabs).
type Connection struct {
	ws     *websocket.Conn
	userID int64

	mu    sync.Mutex // serializes writes and the alive flag
	alive bool
}

func (c *Connection) markAlive() {
	c.mu.Lock()
	c.alive = true
	c.mu.Unlock()
}

// probe clears the alive flag and sends a ping. It reports false when the
// previous probe went unacknowledged.
func (c *Connection) probe() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive {
		return false
	}
	c.alive = false
	_ = c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
	return true
}

func (c *Connection) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

func (c *Connection) closeWith(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = c.ws.Close()
}

// terminate drops the transport without a close handshake. Used when the peer
// is presumed half-open and a graceful close would just hang.
func (c *Connection) terminate() {
	_ = c.ws.Close()
}

// Hub owns the set of live authenticated connections for the process
// lifetime. The registry is mutated only through Register, Unregister and the
// reaper; nothing outside the hub touches it.
type Hub struct {
	mu    sync.RWMutex
	conns map[*Connection]struct{}

	interval time.Duration
	done     chan struct{}
	log      zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		conns:    make(map[*Connection]struct{}),
		interval: ProbeInterval,
		done:     make(chan struct{}),
		log:      log,
	}
}

func (h *Hub) Register(userID int64, ws *websocket.Conn) *Connection {
	conn := &Connection{ws: ws, userID: userID, alive: true}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	h.log.Info().Int64("user_id", userID).Msg("websocket connected")
	return conn
}

func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	if ok {
		delete(h.conns, conn)
	}
	h.mu.Unlock()

	if ok {
		h.log.Info().Int64("user_id", conn.userID).Msg("websocket disconnected")
	}
}

// Broadcast fans the event out to every live connection of the event's owner.
// Delivery is best-effort: a failed write unregisters that connection and the
// rest still receive the event. No retries, no buffering.
func (h *Hub) Broadcast(ev Event) {
	frame := Envelope{
		Type:      EnvelopeTypeChatUpdate,
		Data:      ev,
		Timestamp: time.Now(),
	}

	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.conns))
	for conn := range h.conns {
		if conn.userID == ev.OwnerID {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.writeJSON(frame); err != nil {
			h.log.Warn().Err(err).Int64("user_id", conn.userID).Msg("broadcast write failed")
			h.Unregister(conn)
			conn.terminate()
		}
	}
}

// Run reaps half-open connections: each tick, a connection that never
// acknowledged the previous probe is forcibly terminated, everyone else gets
// a fresh ping. Blocks until Close.
func (h *Hub) Run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.reap()
		}
	}
}

func (h *Hub) reap() {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if !conn.probe() {
			h.log.Info().Int64("user_id", conn.userID).Msg("terminating inactive connection")
			h.Unregister(conn)
			conn.terminate()
		}
	}
}

// Close stops the reaper and closes every connection with a going-away code.
func (h *Hub) Close() {
	close(h.done)

	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
		delete(h.conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.closeWith(websocket.CloseGoingAway, "Server shutting down")
	}
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
