package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != want && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := h.ClientCount(); got != want {
		t.Fatalf("client count = %d, want %d", got, want)
	}
}

func TestPublishReachesAllClients(t *testing.T) {
	h := NewHub(zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	a := dialHub(t, srv)
	b := dialHub(t, srv)
	waitForClients(t, h, 2)

	h.Publish("whatsapp_message", map[string]string{"from": "90555"})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}

		var ev struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Event != "whatsapp_message" {
			t.Errorf("event = %q", ev.Event)
		}
		if !strings.Contains(string(ev.Data), "90555") {
			t.Errorf("data = %s", ev.Data)
		}
	}
}

func TestClientDisconnectLeavesHub(t *testing.T) {
	h := NewHub(zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	conn := dialHub(t, srv)
	waitForClients(t, h, 1)

	conn.Close()
	waitForClients(t, h, 0)

	// Publishing with nobody connected must be a no-op, not a panic.
	h.Publish("instagram_message", map[string]string{"x": "y"})
}

// A client that stops reading fills its socket buffers; Publish must hit
// the write deadline, drop that client, and keep serving the others.
func TestStalledClientIsDropped(t *testing.T) {
	h := NewHub(zerolog.Nop())
	h.writeTimeout = 100 * time.Millisecond
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	dialHub(t, srv) // never reads
	healthy := dialHub(t, srv)
	waitForClients(t, h, 2)

	received := make(chan struct{}, 64)
	go func() {
		for {
			if _, _, err := healthy.ReadMessage(); err != nil {
				return
			}
			received <- struct{}{}
		}
	}()

	// Large payloads back up the stalled client until a write times out.
	pad := strings.Repeat("x", 1<<20)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 32; i++ {
			h.Publish("whatsapp_message", map[string]string{"pad": pad})
		}
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("publish blocked on a stalled client")
	}

	waitForClients(t, h, 1)

	// The healthy client kept receiving throughout.
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("healthy client received nothing")
	}
}

func TestCloseRejectsNewClients(t *testing.T) {
	h := NewHub(zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	conn := dialHub(t, srv)
	waitForClients(t, h, 1)

	h.Close()
	if h.ClientCount() != 0 {
		t.Errorf("clients after close = %d", h.ClientCount())
	}

	// The closed connection surfaces as a read error on the client side.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read to fail after hub close")
	}

	// A late subscriber connects at the transport level but is dropped
	// immediately and never counted.
	late := dialHub(t, srv)
	late.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := late.ReadMessage(); err == nil {
		t.Error("expected late subscriber to be disconnected")
	}
	if h.ClientCount() != 0 {
		t.Errorf("clients = %d, want 0", h.ClientCount())
	}
}
