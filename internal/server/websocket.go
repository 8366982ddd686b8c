package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/ospf-animator/internal/logging"
	"github.com/signalsfoundry/ospf-animator/internal/views"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Local teaching tool; any origin may watch.
	},
}

// FrameMessage is one websocket message: every view's snapshot for a tick.
type FrameMessage struct {
	Views []views.Snapshot `json:"views"`
}

// wsClient serializes writes to one connection; gorilla allows a single
// concurrent writer.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages websocket clients and broadcasts frames to them.
type Hub struct {
	log     logging.Logger
	mu      sync.RWMutex
	clients map[*websocket.Conn]*wsClient
	current []views.Snapshot
}

// NewHub creates a new websocket hub.
func NewHub(log logging.Logger) *Hub {
	if log == nil {
		log = logging.Noop()
	}
	return &Hub{
		log:     log,
		clients: make(map[*websocket.Conn]*wsClient),
	}
}

// HandleWebSocket upgrades the connection, sends the latest frame if one
// exists and registers the client for broadcasts.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}
	c := &wsClient{conn: conn}

	h.mu.Lock()
	h.clients[conn] = c
	current := h.current
	h.mu.Unlock()

	if current != nil {
		if data, err := json.Marshal(FrameMessage{Views: current}); err == nil {
			_ = c.write(data)
		}
	}

	// Read loop: keep the connection alive and notice disconnects.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Broadcast sends snaps to all connected clients. Its signature matches
// sim.FrameListener.
func (h *Hub) Broadcast(snaps []views.Snapshot) {
	data, err := json.Marshal(FrameMessage{Views: snaps})
	if err != nil {
		h.log.Error(context.Background(), "websocket marshal failed", logging.Err(err))
		return
	}

	h.mu.Lock()
	h.current = snaps
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.log.Debug(context.Background(), "websocket write failed", logging.Err(err))
			// The read goroutine removes the client once the close lands.
			c.conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*websocket.Conn]*wsClient)
	h.mu.Unlock()
	for conn, c := range clients {
		c.mu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		c.mu.Unlock()
		conn.Close()
	}
}
