// Package relay provides a websocket subscriber client for the Digitext
// relay channel. The relay is fire-and-forget: events published while the
// client is disconnected are lost, so the client's job is only to stay
// connected and dispatch what arrives.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Broadcast topics carried on the relay channel.
const (
	TopicInstagram = "instagram_message"
	TopicMessenger = "messenger_message"
	TopicWhatsApp  = "whatsapp_message"
)

// Event is the wire envelope received from the relay.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Handler consumes the raw provider payload of one event.
type Handler func(data json.RawMessage)

// ErrReconnectExhausted is returned by Run when the connection drops and
// all reconnect attempts fail.
var ErrReconnectExhausted = errors.New("relay: reconnect attempts exhausted")

// Client subscribes to the relay websocket endpoint.
type Client struct {
	// URL is the websocket endpoint, e.g. "ws://localhost:8080/ws".
	URL string

	// Reconnection policy. Zero values take the defaults set by NewClient.
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	HandshakeTimeout  time.Duration

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewClient creates a client with the default reconnection policy:
// 10 attempts, 1s delay doubling up to a 5s cap, 20s handshake timeout.
func NewClient(url string) *Client {
	return &Client{
		URL:               url,
		ReconnectAttempts: 10,
		ReconnectDelay:    time.Second,
		ReconnectDelayMax: 5 * time.Second,
		HandshakeTimeout:  20 * time.Second,
		handlers:          make(map[string]Handler),
	}
}

// On registers a handler for a topic. Events with no registered handler
// are discarded.
func (c *Client) On(topic string, fn Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = fn
}

// Run connects and dispatches events until ctx is cancelled. On connection
// loss it reconnects with bounded attempts; the attempt counter resets after
// every successful connection.
func (c *Client) Run(ctx context.Context) error {
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			return err
		}

		err = c.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_ = err // connection dropped; fall through to redial
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.HandshakeTimeout}

	delay := c.ReconnectDelay
	var lastErr error
	for attempt := 0; attempt < c.ReconnectAttempts; attempt++ {
		conn, _, err := dialer.DialContext(ctx, c.URL, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.ReconnectDelayMax {
			delay = c.ReconnectDelayMax
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrReconnectExhausted, lastErr)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// Unblock the read when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}

		c.mu.RLock()
		fn := c.handlers[ev.Event]
		c.mu.RUnlock()
		if fn != nil {
			fn(ev.Data)
		}
	}
}
