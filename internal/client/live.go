package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
)

const liveReadLimit = 64 << 10

// LiveConn is an open live channel. Events are delivered on Events until the
// connection ends, after which Err reports why.
type LiveConn struct {
	conn   *websocket.Conn
	events chan dto.LiveEvent
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// liveURL turns the API base URL into the WebSocket URL of /api/live.
func liveURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported api url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/live"
	return u.String(), nil
}

// DialLive opens the live channel with the client's token.
func (c *Client) DialLive(ctx context.Context) (*LiveConn, error) {
	target, err := liveURL(c.baseURL)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial live channel: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial live channel: %w", err)
	}
	conn.SetReadLimit(liveReadLimit)

	lc := &LiveConn{
		conn:   conn,
		events: make(chan dto.LiveEvent, 256),
		done:   make(chan struct{}),
		logger: c.logger.With("component", "live"),
	}
	go lc.readLoop()
	return lc, nil
}

func (lc *LiveConn) readLoop() {
	defer close(lc.events)
	for {
		_, data, err := lc.conn.ReadMessage()
		if err != nil {
			lc.setErr(err)
			return
		}
		var ev dto.LiveEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			lc.logger.Warn("dropping malformed live event", "error", err)
			continue
		}
		select {
		case lc.events <- ev:
		case <-lc.done:
			return
		}
	}
}

func (lc *LiveConn) setErr(err error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.err == nil {
		lc.err = err
	}
}

// Events is closed when the connection ends.
func (lc *LiveConn) Events() <-chan dto.LiveEvent {
	return lc.events
}

// Err returns the error that ended the connection, if any.
func (lc *LiveConn) Err() error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.err
}

// Close sends a close frame and closes the connection. The read loop exits
// and Events is closed.
func (lc *LiveConn) Close() error {
	var err error
	lc.closeOnce.Do(func() {
		close(lc.done)
		_ = lc.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = lc.conn.Close()
	})
	return err
}
