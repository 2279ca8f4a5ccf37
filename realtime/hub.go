// Package realtime pushes reading and device events to dashboard clients
// over WebSocket.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event names pushed to dashboard clients.
const (
	EventReading          = "reading"
	EventDeviceConnected  = "device_connected"
	EventDeviceDisconnect = "device_disconnected"
	EventDeviceRemoved    = "device_removed"
)

// Message is the envelope every client receives.
type Message struct {
	Type  string `json:"type"` // event or hello
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	TS    string `json:"ts"`
}

// Client is one connected dashboard session.
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Hub fans events out to all connected clients. Slow clients are dropped
// rather than allowed to block the broadcast path.
type Hub struct {
	mu sync.RWMutex

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	shutdown   chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
}

// NewHub creates a hub and starts its dispatch loop.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan []byte, 256),
		shutdown:   make(chan struct{}),
		logger:     logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.shutdown:
			h.mu.Lock()
			for c := range h.clients {
				close(c.Send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*Client
			for c := range h.clients {
				select {
				case c.Send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				h.logger.Warn("dropping slow websocket client")
				h.remove(c)
			}
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
	}
}

// Register adds a connection and returns its client handle. The caller owns
// the write pump draining Client.Send.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	c := &Client{
		Conn: conn,
		Send: make(chan []byte, 64),
	}
	select {
	case h.register <- c:
	case <-h.shutdown:
		close(c.Send)
	}
	return c
}

// Unregister drops a client.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.shutdown:
	}
}

// Broadcast sends an event to every connected client. Delivery is
// best-effort: if the hub's queue is full the event is dropped so telemetry
// ingestion never stalls on the dashboard.
func (h *Hub) Broadcast(event string, data any) {
	b, err := json.Marshal(Message{
		Type:  "event",
		Event: event,
		Data:  data,
		TS:    time.Now().Format(time.RFC3339),
	})
	if err != nil {
		h.logger.Warn("event encode failed", "event", event, "error", err)
		return
	}
	select {
	case h.broadcast <- b:
	default:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the dispatch loop and disconnects all clients.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.shutdown)
	})
}
