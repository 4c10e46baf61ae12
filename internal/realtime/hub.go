package realtime

import (
	"sync"

	"github.com/gorilla/websocket"

	"institution-chat/internal/metrics"
)

// Hub tracks the live push connection of each user. A user has at most one
// active socket; attaching a new one replaces and closes the previous.
type Hub struct {
	mu    sync.RWMutex
	users map[int64]*Connection
}

func NewHub() *Hub {
	return &Hub{users: make(map[int64]*Connection)}
}

// Attach registers conn for its user and starts its write loop.
func (h *Hub) Attach(conn *Connection) {
	h.mu.Lock()
	previous := h.users[conn.UserID]
	h.users[conn.UserID] = conn
	h.mu.Unlock()

	conn.Start()
	if previous == nil {
		metrics.WSConnections.Inc()
	} else {
		previous.Close(4001, "session replaced")
	}
}

// Detach removes conn if it is still the user's current connection.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	current, ok := h.users[conn.UserID]
	if ok && current == conn {
		delete(h.users, conn.UserID)
	}
	h.mu.Unlock()

	if ok && current == conn {
		metrics.WSConnections.Dec()
	}
	conn.Close(websocket.CloseNormalClosure, "")
}

// NotifyUser writes payload to the user's connection. It reports false when
// the user is offline or the write could not be queued.
func (h *Hub) NotifyUser(userID int64, payload []byte) bool {
	h.mu.RLock()
	conn := h.users[userID]
	h.mu.RUnlock()
	if conn == nil {
		return false
	}
	return conn.Send(payload) == nil
}

// Online reports whether the user has a live connection.
func (h *Hub) Online(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.users[userID]
	return ok
}

// Close terminates every tracked connection.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.users))
	for _, c := range h.users {
		conns = append(conns, c)
	}
	h.users = make(map[int64]*Connection)
	h.mu.Unlock()

	metrics.WSConnections.Sub(float64(len(conns)))
	for _, c := range conns {
		c.Close(websocket.CloseGoingAway, "server shutdown")
	}
}
