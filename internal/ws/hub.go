package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smashladder/backend/internal/notify"
)

// Client represents one player's live connection to a room.
type Client struct {
	conn     *websocket.Conn
	userID   string
	roomCode string
	hub      *Hub
	send     chan []byte

	mu     sync.Mutex
	closed bool
}

// trySend queues data for the client without blocking. Returns false when
// the buffer is full or the client has been replaced; sending through here
// instead of directly on the channel means a send can never hit a closed
// channel and panic.
func (c *Client) trySend(data []byte) bool {
	if data == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend shuts the send channel exactly once. Safe to call from both the
// replacement and the disconnect path.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub maintains the set of connected clients per room and bridges the
// room's Redis notification channel onto their sockets. The first client
// of a room opens the subscription; the last one out closes it, so idle
// rooms cost nothing.
type Hub struct {
	publisher *notify.Publisher

	rooms      map[string]map[string]*Client // roomCode -> userID -> Client
	subs       map[string]*notify.Subscription
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub(publisher *notify.Publisher) *Hub {
	return &Hub{
		publisher:  publisher,
		rooms:      make(map[string]map[string]*Client),
		subs:       make(map[string]*notify.Subscription),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes connection lifecycle events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(ctx, client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, exists := h.rooms[client.roomCode]
	if !exists {
		room = make(map[string]*Client)
		h.rooms[client.roomCode] = room

		roomCode := client.roomCode
		h.subs[roomCode] = h.publisher.Subscribe(ctx, roomCode, func(payload []byte) {
			h.BroadcastToRoom(roomCode, envelope("session_update", payload))
		}, nil)
		log.Printf("[WS] Opened subscription for room %s", roomCode)
	}

	if old, exists := room[client.userID]; exists {
		log.Printf("[WS] User %s reconnecting to room %s - closing old connection", client.userID, client.roomCode)
		old.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"),
			time.Now().Add(5*time.Second))
		old.conn.Close()
		old.closeSend()
	}

	room[client.userID] = client
	log.Printf("[WS] User %s connected to room %s", client.userID, client.roomCode)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, exists := h.rooms[client.roomCode]
	if !exists {
		return
	}
	// Only drop the mapping if it still points at this client; a reconnect
	// may already have replaced it.
	if current, exists := room[client.userID]; !exists || current != client {
		return
	}

	delete(room, client.userID)
	client.closeSend()
	log.Printf("[WS] User %s disconnected from room %s", client.userID, client.roomCode)

	if len(room) == 0 {
		delete(h.rooms, client.roomCode)
		if sub, ok := h.subs[client.roomCode]; ok {
			sub.Unsubscribe()
			delete(h.subs, client.roomCode)
		}
		log.Printf("[WS] Closed subscription for room %s", client.roomCode)
	}
}

// BroadcastToRoom sends a message to every client connected to the room.
func (h *Hub) BroadcastToRoom(roomCode string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, exists := h.rooms[roomCode]; exists {
		for _, client := range room {
			if !client.trySend(data) {
				log.Printf("[WS] Dropped message for user %s in room %s", client.userID, roomCode)
			}
		}
	}
}

// wsMessage is the wire envelope in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func envelope(msgType string, data []byte) []byte {
	out, err := json.Marshal(wsMessage{Type: msgType, Data: data})
	if err != nil {
		log.Printf("[WS] Failed to marshal %s envelope: %v", msgType, err)
		return nil
	}
	return out
}

// writePump writes queued messages and keepalive pings to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if message == nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for user %s: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for user %s: %v", c.userID, err)
				return
			}
		}
	}
}

func (c *Client) sendError(message string) {
	data, _ := json.Marshal(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
	c.trySend(data)
}
