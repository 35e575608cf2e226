package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// connBinding ties a connection to the player it joined as. At most one
// binding per connection; cleared on leave or disconnect.
type connBinding struct {
	playerID string
	roomID   string
	nickname string
}

type wsHub struct {
	mu       sync.Mutex
	rooms    map[string]map[*websocket.Conn]struct{}
	bindings map[*websocket.Conn]connBinding
	writers  map[*websocket.Conn]*sync.Mutex
}

func newWSHub() *wsHub {
	return &wsHub{
		rooms:    make(map[string]map[*websocket.Conn]struct{}),
		bindings: make(map[*websocket.Conn]connBinding),
		writers:  make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Register makes the connection writable for acks and errors. Room
// membership is granted separately, on a successful join.
func (h *wsHub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writers[conn] = &sync.Mutex{}
}

// Add grants room membership: from here on the connection receives the
// room's broadcasts.
func (h *wsHub) Add(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[roomID]
	if members == nil {
		members = make(map[*websocket.Conn]struct{})
		h.rooms[roomID] = members
	}
	members[conn] = struct{}{}
}

// Drop revokes room membership and the binding but keeps the connection
// open. Used for explicit leaves.
func (h *wsHub) Drop(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(roomID, conn)
}

func (h *wsHub) dropLocked(roomID string, conn *websocket.Conn) {
	if members := h.rooms[roomID]; members != nil {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.bindings, conn)
}

// Remove tears the connection down entirely.
func (h *wsHub) Remove(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	h.dropLocked(roomID, conn)
	delete(h.writers, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *wsHub) Bind(conn *websocket.Conn, binding connBinding) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bindings[conn] = binding
}

func (h *wsHub) Binding(conn *websocket.Conn) (connBinding, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	binding, ok := h.bindings[conn]
	return binding, ok
}

func (h *wsHub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = h.write(conn, data)
}

// write serializes writes per connection; the websocket allows at most one
// concurrent writer.
func (h *wsHub) write(conn *websocket.Conn, data []byte) error {
	h.mu.Lock()
	lock := h.writers[conn]
	h.mu.Unlock()
	if lock == nil {
		return errors.New("connection is gone")
	}
	lock.Lock()
	defer lock.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *wsHub) Broadcast(roomID string, payload any) {
	h.broadcast(roomID, nil, payload)
}

// BroadcastExcept sends to every room member except the given connection.
func (h *wsHub) BroadcastExcept(roomID string, except *websocket.Conn, payload any) {
	h.broadcast(roomID, except, payload)
}

func (h *wsHub) broadcast(roomID string, except *websocket.Conn, payload any) {
	h.mu.Lock()
	members := h.rooms[roomID]
	conns := make([]*websocket.Conn, 0, len(members))
	for conn := range members {
		if conn != except {
			conns = append(conns, conn)
		}
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := h.write(conn, data); err != nil {
			h.Remove(roomID, conn)
		}
	}
}

func parseRoomWebsocketPath(path string) (string, bool) {
	roomID := strings.TrimPrefix(path, "/ws/rooms/")
	roomID = strings.Trim(roomID, "/")
	if roomID == "" || strings.Contains(roomID, "/") {
		return "", false
	}
	return roomID, true
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	roomID, ok := parseRoomWebsocketPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if _, exists := s.store.GetRoom(roomID); !exists {
		http.NotFound(w, r)
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected room_id=%s remote=%s", roomID, r.RemoteAddr)
	s.ws.Register(conn)
	go s.readWS(roomID, conn)
}

// readWS is the per-connection event loop: one inbound message at a time,
// dispatched to the coordinator. A read error means the client is gone and
// turns into an implicit leave.
func (s *Server) readWS(roomID string, conn *websocket.Conn) {
	defer func() {
		s.handleDisconnect(conn)
		s.ws.Remove(roomID, conn)
	}()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			log.Printf("ws disconnected room_id=%s error=%v", roomID, err)
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.ws.Send(conn, errorFact{Type: factError, Message: "invalid message", Code: "bad_request"})
			continue
		}
		s.dispatch(conn, msg)
	}
}
