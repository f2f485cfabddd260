// Package realtime fans live events out to the WebSocket connections of each
// user, locally or across instances through Redis.
package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
)

const sendQueueSize = 64

// Conn is the part of a WebSocket connection the hub writes to. Close and
// WriteControl must be safe to call concurrently with WriteMessage.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Client is one registered connection of a user.
type Client struct {
	UserID string

	conn     Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	lastSeen atomic.Int64
}

// Touch records activity from the peer (a read or a pong).
func (c *Client) Touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

func (c *Client) idleSince() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// Done is closed when the client has been unregistered.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Hub tracks userID -> set of connections. Each connection gets a buffered
// send queue drained by its own write pump, so a slow peer never blocks Send.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	pumps   sync.WaitGroup
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger.With("component", "hub"),
		clients: make(map[string]map[*Client]struct{}),
	}
}

// Register adds a connection for userID and starts its write pump.
func (h *Hub) Register(userID string, conn Conn) *Client {
	c := &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
	c.Touch()

	h.mu.Lock()
	if _, ok := h.clients[userID]; !ok {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	n := len(h.clients[userID])
	h.mu.Unlock()

	h.pumps.Add(1)
	go h.writePump(c)

	h.logger.Info("live connection registered", "user_id", userID, "connections", n)
	return c
}

func (h *Hub) writePump(c *Client) {
	defer h.pumps.Done()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Warn("live write failed", "user_id", c.UserID, "error", err)
				h.Unregister(c)
				return
			}
		}
	}
}

// Unregister removes the client and closes its connection. It is idempotent.
func (h *Hub) Unregister(c *Client) {
	c.once.Do(func() {
		h.mu.Lock()
		if conns, ok := h.clients[c.UserID]; ok {
			delete(conns, c)
			if len(conns) == 0 {
				delete(h.clients, c.UserID)
			}
		}
		h.mu.Unlock()

		close(c.done)
		_ = c.conn.Close()
		h.logger.Info("live connection unregistered", "user_id", c.UserID)
	})
}

// Send queues payload on every connection of userID and returns how many
// accepted it. A connection whose queue is full is dropped.
func (h *Hub) Send(userID string, payload []byte) int {
	h.mu.RLock()
	conns := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range conns {
		select {
		case <-c.done:
		case c.send <- payload:
			delivered++
		default:
			h.logger.Warn("live send queue full, dropping connection", "user_id", userID)
			h.Unregister(c)
		}
	}
	return delivered
}

// Heartbeat pings every connection each interval and evicts those that have
// been silent for two intervals. It returns when stop is closed.
func (h *Hub) Heartbeat(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.sweep(interval)
		}
	}
}

func (h *Hub) sweep(interval time.Duration) {
	var stale, live []*Client
	h.mu.RLock()
	for _, conns := range h.clients {
		for c := range conns {
			if time.Since(c.idleSince()) > 2*interval {
				stale = append(stale, c)
			} else {
				live = append(live, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.logger.Info("evicting silent live connection", "user_id", c.UserID)
		h.Unregister(c)
	}
	for _, c := range live {
		if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
			h.Unregister(c)
		}
	}
}

// Connections returns the number of open connections of userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Users returns the number of users with at least one connection.
func (h *Hub) Users() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unregisters every client and waits for their write pumps to exit.
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*Client
	for _, conns := range h.clients {
		for c := range conns {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.Unregister(c)
	}
	h.pumps.Wait()
}
