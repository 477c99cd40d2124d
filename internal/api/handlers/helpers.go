package handlers

import (
	"crypto/rand"
	"errors"
	"log"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smashladder/backend/internal/match"
	"github.com/smashladder/backend/internal/queue"
)

const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateRoomCode returns a 6-character code from an alphabet without the
// lookalike characters, so players can read codes to each other.
func generateRoomCode() string {
	code := make([]byte, 6)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeAlphabet))))
		if err != nil {
			log.Printf("[API] Room code generation fell back to zero index: %v", err)
			n = big.NewInt(0)
		}
		code[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(code)
}

// respondError maps domain errors onto HTTP statuses. Validation failures
// and lost races carry their message to the client; everything else is a
// logged 500 with a generic body.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, match.ErrNotFound), errors.Is(err, queue.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, match.ErrConflict), errors.Is(err, queue.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, match.ErrValidation), errors.Is(err, queue.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[API] Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
