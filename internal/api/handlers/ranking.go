package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/smashladder/backend/internal/middleware"
	"github.com/smashladder/backend/internal/rating"
)

const defaultListLimit = 50

func listLimit(c *gin.Context) int {
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			return n
		}
	}
	return defaultListLimit
}

// Ranking returns the ladder, best rating first.
func Ranking(settler *rating.Settler) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := settler.Ranking(c.Request.Context(), listLimit(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ranking": rows})
	}
}

// MyRating returns the caller's current rating.
func MyRating(settler *rating.Settler) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		current, err := settler.CurrentRating(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "rating": current})
	}
}

// MatchHistory returns a player's settled matches, most recent first.
func MatchHistory(settler *rating.Settler) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := settler.History(c.Request.Context(), c.Param("id"), listLimit(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": rows})
	}
}
