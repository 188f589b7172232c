// Package relay fans inbound provider events out to connected websocket
// clients. Delivery is fire-and-forget with no acknowledgement and no
// replay buffer. Every client receives every topic and filters on its
// own side.
package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/solvedigitale/Digitext-last/internal/metrics"
)

// defaultWriteTimeout bounds each broadcast write. A client that cannot
// drain within it is disconnected; it must never stall Publish and the
// webhook handlers behind it.
const defaultWriteTimeout = 5 * time.Second

// Event is the wire envelope carried to every connected client.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browser origin policy is enforced by the CORS layer; the webhook
		// relay itself accepts any subscriber.
		return true
	},
}

// Hub tracks connected websocket clients and broadcasts events to them.
type Hub struct {
	logger       zerolog.Logger
	writeTimeout time.Duration

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:       logger,
		writeTimeout: defaultWriteTimeout,
		clients:      make(map[string]*client),
	}
}

// ServeWS upgrades an HTTP request to a websocket subscription.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn}
	id := fmt.Sprintf("%s-%p", r.RemoteAddr, conn)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[id] = c
	h.mu.Unlock()
	metrics.ConnectedClients.Inc()

	h.logger.Info().Str("client_id", id).Msg("client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, id)
		h.mu.Unlock()
		conn.Close()
		metrics.ConnectedClients.Dec()
		h.logger.Info().Str("client_id", id).Msg("client disconnected")
	}()

	// Clients are subscribers only; the read loop exists to observe the
	// close handshake and discard anything else.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("client_id", id).Msg("websocket read error")
			}
			return
		}
	}
}

// Publish broadcasts a payload to every connected client under the given
// topic. A client whose write fails or times out is disconnected and just
// misses the event; nothing is queued or retried.
func (h *Hub) Publish(topic string, payload interface{}) {
	data, err := json.Marshal(Event{Event: topic, Data: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("event marshal failed")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.clients {
		c.mu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		err := c.conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			h.logger.Debug().Err(err).Str("client_id", id).Msg("websocket write failed, dropping client")
			// Closing the connection makes the client's read loop exit and
			// unregister it.
			c.conn.Close()
		}
	}
	metrics.BroadcastsSent.WithLabelValues(topic).Inc()
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients and rejects new subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		c.conn.Close()
		delete(h.clients, id)
	}
}
