/*
Package api
File: hub.go
Description:
    The WebSocket Hub pushes share activity to every open calculator tab.

    It maintains a registry of connected clients and a broadcast channel.
    The share service calls Publish when a result is shared or the janitor
    purges expired links; the Hub writes the event to every socket.

    Architecture:
    - Hub: The singleton manager, implements share.Publisher.
    - Client: Represents one browser connection.
    - ServeWs: The HTTP handler that upgrades a standard GET request to a WebSocket.
*/

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Message is the JSON envelope for every real-time event.
type Message struct {
	Type    string `json:"type"`    // Event type (e.g., "share_created", "share_stats")
	Payload any    `json:"payload"` // Event data
	Sender  string `json:"sender"`  // Always "system"; clients cannot publish
}

// Client represents a single connected browser tab.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte // Buffered outbound messages
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	// map lookups beat slice scans on unregister
	clients map[*Client]bool

	// Outbound events. Buffered so Publish rarely drops under bursts.
	Broadcast chan []byte

	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns
}

// NewHub creates a new Hub instance. Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		Broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Publish implements share.Publisher. It never blocks: when the broadcast
// buffer is full the event is dropped.
func (h *Hub) Publish(event string, payload any) {
	msg, err := json.Marshal(Message{Type: event, Payload: payload, Sender: "system"})
	if err != nil {
		slog.Warn("ws: encoding event", "type", event, "err", err)
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		slog.Warn("ws: broadcast buffer full, dropping event", "type", event)
	}
}

// Run is the hub event loop. It blocks until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return nil

		case client := <-h.register:
			h.clients[client] = true
			slog.Debug("ws: client registered", "clients", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it.
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// upgrader configures the WebSocket handshake. Origins are not checked; the
// feed carries nothing the public share links don't already expose.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades the request and attaches the connection to hub.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws: upgrade", "err", err)
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256)}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection so control frames are processed. Incoming
// data frames are discarded.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("ws: read", "err", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
