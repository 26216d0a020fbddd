package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Stream message types.
const (
	MsgScan   = "scan"   // One consumption scan finished
	MsgFrame  = "frame"  // Visitor positions after a movement step
	MsgPhase  = "phase"  // Session started or reset
	MsgLayout = "layout" // Garden occupancy replaced
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

// Message is the envelope for every stream message.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans stream messages out to connected websocket clients.
type Hub struct {
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	clients    map[*client]bool
	count      chan int
	done       chan struct{}

	upgrader websocket.Upgrader
}

// NewHub creates a hub. allowOrigin decides websocket handshakes; nil allows any.
func NewHub(allowOrigin func(origin string) bool) *Hub {
	h := &Hub{
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		clients:    make(map[*client]bool),
		count:      make(chan int),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return allowOrigin == nil || origin == "" || allowOrigin(origin)
		},
	}
	return h
}

// Run is the hub loop. It returns when ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			slog.Info("stream client connected", "clients", len(h.clients))

		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
				slog.Info("stream client disconnected", "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow reader.
					delete(h.clients, c)
					close(c.send)
				}
			}

		case h.count <- len(h.clients):
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	select {
	case n := <-h.count:
		return n
	case <-h.done:
		return 0
	}
}

// Publish queues a message for every client. It never blocks; when the
// queue is full the message is dropped.
func (h *Hub) Publish(msgType string, payload any) {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload})
	if err != nil {
		slog.Error("encode stream message", "type", msgType, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		slog.Debug("stream queue full, dropping message", "type", msgType)
	}
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump drains client frames so control messages are handled; the
// stream is one-way.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("stream read error", "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
