package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is one live socket connection. Writes are serialized through the
// mutex; gorilla connections do not allow concurrent writers.
type Conn struct {
	ID     string
	UserID int64

	sock *websocket.Conn
	mu   sync.Mutex
}

func NewConn(id string, userID int64, sock *websocket.Conn) *Conn {
	return &Conn{ID: id, UserID: userID, sock: sock}
}

// WriteJSON sends a payload on the connection. Errors are swallowed after
// closing the socket; the read loop notices the closed connection and cleans
// up through Unregister.
func (c *Conn) WriteJSON(payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.sock.WriteJSON(payload); err != nil {
		c.sock.Close()
	}
}

// Hub manages active connections keyed by user id plus broadcast rooms keyed
// by conversation public id. Mutex-driven; no background loop.
type Hub struct {
	mu    sync.RWMutex
	conns map[int64]map[*Conn]struct{}
	rooms map[string]map[*Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[int64]map[*Conn]struct{}),
		rooms: make(map[string]map[*Conn]struct{}),
	}
}

// Register adds a connection for its user.
func (h *Hub) Register(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[conn.UserID] == nil {
		h.conns[conn.UserID] = make(map[*Conn]struct{})
	}
	h.conns[conn.UserID][conn] = struct{}{}
}

// Unregister removes a connection and drops it from every room.
func (h *Hub) Unregister(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.conns[conn.UserID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.conns, conn.UserID)
		}
	}
	for room, members := range h.rooms {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// JoinRoom adds a single connection to a room.
func (h *Hub) JoinRoom(room string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(room, conn)
}

// JoinRoomUsers adds every live connection of the given users to a room.
func (h *Hub) JoinRoomUsers(room string, userIDs []int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, uid := range userIDs {
		for conn := range h.conns[uid] {
			h.joinLocked(room, conn)
		}
	}
}

func (h *Hub) joinLocked(room string, conn *Conn) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Conn]struct{})
	}
	h.rooms[room][conn] = struct{}{}
}

// LeaveRoomUser drops all of a user's connections from a room.
func (h *Hub) LeaveRoomUser(room string, userID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}
	for conn := range members {
		if conn.UserID == userID {
			delete(members, conn)
		}
	}
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// BroadcastToRoom sends the payload to every connection in the room.
func (h *Hub) BroadcastToRoom(room string, payload any) {
	h.BroadcastToRoomExcept(room, nil, payload)
}

// BroadcastToRoomExcept sends the payload to every connection in the room
// except the given one.
func (h *Hub) BroadcastToRoomExcept(room string, except *Conn, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.rooms[room] {
		if conn == except {
			continue
		}
		conn.WriteJSON(payload)
	}
}

// BroadcastToUsers sends the payload to every live connection of the given
// users, regardless of room membership.
func (h *Hub) BroadcastToUsers(userIDs []int64, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, uid := range userIDs {
		for conn := range h.conns[uid] {
			conn.WriteJSON(payload)
		}
	}
}

// BroadcastAll sends the payload to every connected user. Used for presence.
func (h *Hub) BroadcastAll(payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.conns {
		for conn := range conns {
			conn.WriteJSON(payload)
		}
	}
}
