package ws

import (
	"testing"

	"github.com/smashladder/backend/internal/match"
)

func TestSendToReplacedClientDoesNotPanic(t *testing.T) {
	c := &Client{
		userID:   "u1",
		roomCode: "ROOM1",
		send:     make(chan []byte, 1),
	}

	// A reconnect closes the replaced client's channel while its read loop
	// may still be serving a request; any late send must be a quiet drop.
	c.closeSend()

	c.pushState(&match.Session{RoomCode: "ROOM1"})
	c.sendError("late")
	if c.trySend([]byte("late")) {
		t.Error("send after close must report a drop")
	}

	// Closing again on the disconnect path must also be safe.
	c.closeSend()
}

func TestTrySendDropsWhenBufferFull(t *testing.T) {
	c := &Client{send: make(chan []byte, 1)}

	if !c.trySend([]byte("first")) {
		t.Fatal("first send should fit the buffer")
	}
	if c.trySend([]byte("second")) {
		t.Error("full buffer must drop, not block")
	}
	if c.trySend(nil) {
		t.Error("nil payloads are never queued")
	}
}
