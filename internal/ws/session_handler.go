package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/smashladder/backend/internal/match"
	"github.com/smashladder/backend/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the WebSocket CORS middleware.
		return true
	},
}

// HandleSession upgrades an authenticated participant's connection for a
// room and streams every committed session update to it. The current state
// is pushed immediately after connect and again on a get_state request;
// every message carries the full record, so a missed intermediate update
// never leaves a client stuck.
func HandleSession(hub *Hub, store *match.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		roomCode := c.Param("room")
		s, err := store.Get(c.Request.Context(), roomCode)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		if s.SlotOf(userID) == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this room"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error for room %s: %v", roomCode, err)
			return
		}

		client := &Client{
			conn:     conn,
			userID:   userID,
			roomCode: roomCode,
			hub:      hub,
			send:     make(chan []byte, 256),
		}

		hub.register <- client

		go client.writePump()
		go client.readPump(store)

		client.pushState(s)
	}
}

// pushState queues the full session record for the client.
func (c *Client) pushState(s *match.Session) {
	payload, err := json.Marshal(s)
	if err != nil {
		log.Printf("[WS] Failed to marshal session %s: %v", s.RoomCode, err)
		return
	}
	if !c.trySend(envelope("session_state", payload)) {
		log.Printf("[WS] Dropped state push for user %s in room %s", c.userID, c.roomCode)
	}
}

// readPump consumes client messages. The protocol is deliberately thin:
// every mutation goes over the HTTP API, the socket only serves reads.
func (c *Client) readPump(store *match.Store) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read error for user %s: %v", c.userID, err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("malformed message")
			continue
		}

		switch msg.Type {
		case "get_state":
			s, err := store.Get(context.Background(), c.roomCode)
			if err != nil {
				c.sendError("room not found")
				continue
			}
			c.pushState(s)
		case "ping":
			c.trySend(envelope("pong", nil))
		default:
			c.sendError("unknown message type: " + msg.Type)
		}
	}
}
