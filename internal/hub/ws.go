package hub

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrTransportClosed is returned when sending on a closed transport.
var ErrTransportClosed = errors.New("transport closed")

// WSConfig configures websocket subscribers.
type WSConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long a connection may stay silent (no frames, no pongs).
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// ReadLimit caps inbound message size in bytes.
	ReadLimit int64
	// CheckOrigin decides whether an upgrade request is accepted. Nil allows all,
	// overlays are loaded from streaming software with arbitrary origins.
	CheckOrigin func(r *http.Request) bool
}

// DefaultWSConfig returns default websocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		ReadLimit:    4096,
	}
}

// WSTransport implements Transport over gorilla/websocket.
type WSTransport struct {
	conn         *websocket.Conn
	writeMu      sync.Mutex
	closed       atomic.Bool
	writeTimeout time.Duration
}

// NewWSTransport wraps an upgraded connection.
func NewWSTransport(conn *websocket.Conn, writeTimeout time.Duration) *WSTransport {
	return &WSTransport{conn: conn, writeTimeout: writeTimeout}
}

// Send writes msg as a text frame.
func (t *WSTransport) Send(msg []byte) error {
	if t.closed.Load() {
		return ErrTransportClosed
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	if err := t.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.closed.Store(true)
		return err
	}
	return nil
}

// Sendable reports whether the connection is still open.
func (t *WSTransport) Sendable() bool {
	return !t.closed.Load()
}

// Close sends a close frame and closes the connection.
func (t *WSTransport) Close() error {
	if t.closed.Swap(true) {
		return nil // Already closed
	}
	t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(t.writeTimeout))
	return t.conn.Close()
}

// ping writes a control ping frame.
func (t *WSTransport) ping() error {
	if t.closed.Load() {
		return ErrTransportClosed
	}
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.writeTimeout))
}

// ServeWS upgrades the request and serves the subscriber until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, key string) error {
	checkOrigin := h.ws.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	t := NewWSTransport(conn, h.ws.WriteTimeout)
	sub := h.Subscribe(key, t)
	done := make(chan struct{})
	defer func() {
		close(done)
		h.Unsubscribe(sub)
		t.Close()
	}()

	conn.SetReadLimit(h.ws.ReadLimit)
	conn.SetReadDeadline(time.Now().Add(h.ws.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.ws.ReadTimeout))
	})

	go h.pingLoop(t, done)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			h.logger.Debug().Err(err).Str("session_key", key).Msg("subscriber disconnected")
			return nil
		}
		conn.SetReadDeadline(time.Now().Add(h.ws.ReadTimeout))
		h.HandleInbound(sub, msg)
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (h *Hub) pingLoop(t *WSTransport, done <-chan struct{}) {
	ticker := time.NewTicker(h.ws.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := t.ping(); err != nil {
				// Reader will notice the dead connection and clean up.
				return
			}
		}
	}
}
