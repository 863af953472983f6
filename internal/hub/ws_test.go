package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"drop-live/internal/events"
)

func readType(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return env.Type
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestServeWS_RoundTrip(t *testing.T) {
	h := New(zerolog.Nop())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.ServeWS(w, r, "pepe-abc123")
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if typ := readType(t, conn); typ != "CONNECTED" {
		t.Fatalf("expected CONNECTED, got %s", typ)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"PING"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if typ := readType(t, conn); typ != "PONG" {
		t.Fatalf("expected PONG, got %s", typ)
	}

	waitFor(t, func() bool { return h.CountFor("pepe-abc123") == 1 })
	h.Publish("pepe-abc123", events.ThresholdUpdated{ThresholdRaw: "5"})
	if typ := readType(t, conn); typ != "THRESHOLD_UPDATED" {
		t.Fatalf("expected THRESHOLD_UPDATED, got %s", typ)
	}
}

func TestServeWS_DisconnectUnsubscribes(t *testing.T) {
	h := New(zerolog.Nop())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.ServeWS(w, r, "k")
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readType(t, conn)

	waitFor(t, func() bool { return h.CountFor("k") == 1 })
	conn.Close()
	waitFor(t, func() bool { return h.CountFor("k") == 0 })
}

func TestServeWS_ServerPings(t *testing.T) {
	cfg := DefaultWSConfig()
	cfg.PingInterval = 20 * time.Millisecond
	h := New(zerolog.Nop(), WithWSConfig(cfg))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.ServeWS(w, r, "k")
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})

	// Control frames are dispatched from the read loop.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("expected server ping")
	}
}
