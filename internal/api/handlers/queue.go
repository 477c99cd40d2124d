package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smashladder/backend/internal/match"
	"github.com/smashladder/backend/internal/middleware"
	"github.com/smashladder/backend/internal/queue"
	"github.com/smashladder/backend/internal/rating"
)

// pairingAttempts bounds how many candidates one join request will race
// for before settling into the queue.
const pairingAttempts = 3

// JoinQueue enrolls the caller and immediately tries to pair them with the
// earliest compatible waiting player. If pairing succeeds the caller's side
// creates the session in the candidate's room; the candidate learns about
// it through queue status polling. Losing a pairing race is not an error,
// the caller simply stays enqueued.
func JoinQueue(qs *queue.Store, m *match.Machine, settler *rating.Settler) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, username, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req struct {
			MinRating   int     `json:"min_rating"`
			MaxRating   int     `json:"max_rating"`
			MainFighter *string `json:"main_fighter"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_rating and max_rating required"})
			return
		}

		ctx := c.Request.Context()
		myRating, err := settler.CurrentRating(ctx, userID)
		if err != nil {
			respondError(c, err)
			return
		}

		entry, err := qs.Enqueue(ctx, queue.EnqueueParams{
			UserID:      userID,
			Username:    username,
			Rating:      myRating,
			MainFighter: req.MainFighter,
			MinRating:   req.MinRating,
			MaxRating:   req.MaxRating,
			RoomCode:    generateRoomCode(),
		})
		if err != nil {
			respondError(c, err)
			return
		}

		for attempt := 0; attempt < pairingAttempts; attempt++ {
			candidate, err := qs.FindCandidate(ctx, entry)
			if err != nil {
				respondError(c, err)
				return
			}
			if candidate == nil {
				break
			}

			paired, err := qs.ConfirmPairing(ctx, entry.ID, candidate.ID)
			if errors.Is(err, queue.ErrConflict) {
				// First writer won this candidate; scan again.
				continue
			}
			if err != nil {
				respondError(c, err)
				return
			}

			s, err := m.CreateSession(ctx, match.CreateParams{
				RoomCode:        *paired.RoomCode,
				Player1ID:       paired.UserID,
				Player1Username: paired.Username,
				Player1Fighter:  paired.MainFighter,
				Player2ID:       userID,
				Player2Username: username,
				Player2Fighter:  req.MainFighter,
			})
			if errors.Is(err, match.ErrConflict) {
				// Session already exists for this room; hand the caller the
				// existing one.
				s, err = m.Store().Get(ctx, *paired.RoomCode)
			}
			if err != nil {
				respondError(c, err)
				return
			}

			log.Printf("[QUEUE] Paired %s with %s in room %s", userID, paired.UserID, s.RoomCode)
			c.JSON(http.StatusOK, gin.H{
				"status":    queue.StatusMatched,
				"room_code": s.RoomCode,
				"session":   s,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": queue.StatusWaiting,
			"entry":  entry,
		})
	}
}

// QueueStatus returns the caller's latest queue entry. A matched entry
// carries the room code the session lives under.
func QueueStatus(qs *queue.Store, m *match.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		entry, err := qs.Latest(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}

		resp := gin.H{"status": entry.Status, "entry": entry}
		if entry.Status == queue.StatusMatched && entry.RoomCode != nil {
			resp["room_code"] = *entry.RoomCode
			if s, err := m.Store().Get(c.Request.Context(), *entry.RoomCode); err == nil {
				resp["session"] = s
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// LeaveQueue cancels the caller's waiting entry.
func LeaveQueue(qs *queue.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if err := qs.Leave(c.Request.Context(), userID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"left": true})
	}
}
