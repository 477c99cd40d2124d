package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smashladder/backend/internal/refdata"
)

// ListFighters serves the static fighter catalog.
func ListFighters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fighters": refdata.Fighters})
}

// ListStages serves the static stage catalog, optionally filtered by
// category (legal, counterpick, casual).
func ListStages(c *gin.Context) {
	if category := c.Query("category"); category != "" {
		stages := refdata.StagesByCategory(refdata.StageCategory(category))
		if len(stages) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown stage category: " + category})
			return
		}
		c.JSON(http.StatusOK, gin.H{"stages": stages})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": refdata.Stages})
}
