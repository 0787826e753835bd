// Package ws streams notifications to connected popup clients over
// WebSocket.
package ws

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/recipeai/companion/internal/logging"
	"github.com/recipeai/companion/internal/notify"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local service, popup connects from its own origin
	},
}

// client wraps one connection. The websocket package allows only one
// concurrent writer per connection, and both the read loop (welcome,
// pong) and Notify broadcasts write here, so every write goes through
// the mutex.
type client struct {
	sock *websocket.Conn

	mu sync.Mutex
}

func (c *client) write(payload map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.WriteJSON(payload)
}

// Handler manages WebSocket connections and fans notifications out to
// them. It implements notify.Sink.
type Handler struct {
	log *logging.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHandler creates a WebSocket handler.
func NewHandler(log *logging.Logger) *Handler {
	return &Handler{
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// HandleConnection upgrades the request and keeps the connection
// registered until the client goes away.
func (h *Handler) HandleConnection(c *gin.Context) {
	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{sock: sock}
	defer h.drop(cl)

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	h.send(cl, map[string]any{
		"type":    "system",
		"message": "connected",
	})

	for {
		var msg map[string]any
		if err := sock.ReadJSON(&msg); err != nil {
			return
		}
		if msg["type"] == "ping" {
			h.send(cl, map[string]any{"type": "pong"})
		}
	}
}

// Notify broadcasts a notification to every connected client.
func (h *Handler) Notify(n notify.Notification) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.Unlock()

	for _, cl := range clients {
		h.send(cl, map[string]any{
			"type":         "notification",
			"notification": n,
		})
	}
}

func (h *Handler) send(cl *client, payload map[string]any) {
	if err := cl.write(payload); err != nil {
		h.log.Debug("websocket write failed", zap.Error(err))
		h.drop(cl)
	}
}

func (h *Handler) drop(cl *client) {
	h.mu.Lock()
	delete(h.clients, cl)
	h.mu.Unlock()
	cl.sock.Close()
}
