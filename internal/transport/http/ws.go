package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"walletdash/internal/service"
	"walletdash/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 5 * time.Second
	sendBufferSize = 16
)

type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// client owns one connection. Only its writer goroutine writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans state snapshots and notices out to connected dashboards. Broadcast
// never waits on a client: a client whose buffer is full is dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		log:     logger.Component(log, "ws-hub"),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (h *Hub) Broadcast(eventType string, data interface{}) {
	payload, err := json.Marshal(wsEvent{Type: eventType, Data: data})
	if err != nil {
		h.log.Error().Err(err).Str("type", eventType).Msg("encode event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.log.Warn().Str("type", eventType).Msg("dashboard too slow, disconnecting")
			h.dropLocked(c)
		}
	}
}

// Clients returns the number of connected dashboards.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
}

// dropLocked removes c and ends its writer. The connection is closed by the
// writer once the send channel is closed.
func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (c *client) writePump() {
	defer c.conn.Close()
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// ServeWS upgrades the request, queues the current state and then keeps the
// connection registered until the client goes away.
func (h *Hub) ServeWS(svc service.DashboardService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		initial, err := json.Marshal(wsEvent{Type: "state", Data: svc.State()})
		if err != nil {
			_ = ws.Close()
			return
		}
		c := &client{conn: ws, send: make(chan []byte, sendBufferSize)}
		c.send <- initial
		h.register(c)
		go c.writePump()
		h.log.Debug().Str("remote", r.RemoteAddr).Msg("dashboard connected")

		// Server push only; reads just detect the close.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				h.unregister(c)
				h.log.Debug().Str("remote", r.RemoteAddr).Msg("dashboard disconnected")
				return
			}
		}
	}
}
