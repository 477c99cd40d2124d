package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smashladder/backend/internal/match"
	"github.com/smashladder/backend/internal/middleware"
)

// CreateSession opens a room hosted by the caller. Friendly matches pass no
// room code and get a generated one; queue pairing creates rooms itself, so
// this endpoint is the private-room path.
func CreateSession(m *match.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, username, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req struct {
			RoomCode string  `json:"room_code"`
			Fighter  *string `json:"fighter"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.RoomCode == "" {
			req.RoomCode = generateRoomCode()
		}

		s, err := m.CreateSession(c.Request.Context(), match.CreateParams{
			RoomCode:        req.RoomCode,
			Player1ID:       userID,
			Player1Username: username,
			Player1Fighter:  req.Fighter,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"session": s})
	}
}

// GetSession returns the current session record for a room, along with the
// stages the next actor may currently ban or pick.
func GetSession(m *match.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := m.Store().Get(c.Request.Context(), c.Param("room"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": s, "stage_choices": s.StageChoices()})
	}
}

// JoinSession seats the caller as the second player of a private room.
func JoinSession(m *match.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, username, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req struct {
			Fighter *string `json:"fighter"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		s, err := m.Join(c.Request.Context(), c.Param("room"), userID, username, req.Fighter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": s})
	}
}

// SelectFighter records the caller's fighter pick.
func SelectFighter(m *match.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req struct {
			Fighter string `json:"fighter"`
		}
		if err := c.BindJSON(&req); err != nil || req.Fighter == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fighter required"})
			return
		}

		s, err := m.SelectFighter(c.Request.Context(), c.Param("room"), userID, req.Fighter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": s})
	}
}

// SetWantsChange declares or withdraws the caller's wish to re-pick.
func SetWantsChange(m *match.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req struct {
			WantsChange bool `json:"wants_change"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		s, err := m.SetWantsChange(c.Request.Context(), c.Param("room"), userID, req.WantsChange)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": s})
	}
}

// ConfirmFighter accepts the current pairing.
func ConfirmFighter(m *match.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		s, err := m.ConfirmFighter(c.Request.Context(), c.Param("room"), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": s})
	}
}

// BanStages applies the caller's ban step. ExpectedVersion, when non-zero,
// makes the write conditional on the session still being at that version.
func BanStages(m *match.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req struct {
			Stages          []string `json:"stages"`
			ExpectedVersion int64    `json:"expected_version"`
		}
		if err := c.BindJSON(&req); err != nil || len(req.Stages) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stages required"})
			return
		}

		s, err := m.BanStages(c.Request.Context(), c.Param("room"), userID, req.Stages, req.ExpectedVersion)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": s})
	}
}

// SelectStage applies the caller's pick step.
func SelectStage(m *match.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req struct {
			Stage           string `json:"stage"`
			ExpectedVersion int64  `json:"expected_version"`
		}
		if err := c.BindJSON(&req); err != nil || req.Stage == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stage required"})
			return
		}

		s, err := m.SelectStage(c.Request.Context(), c.Param("room"), userID, req.Stage, req.ExpectedVersion)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": s})
	}
}

// ReportResult records the caller's view of the current game's winner. The
// response tells the client whether the report is pending, finalized the
// game, or collided with the opponent's report.
func ReportResult(m *match.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req struct {
			Winner          string `json:"winner"`
			ExpectedVersion int64  `json:"expected_version"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "winner required"})
			return
		}
		winner := match.PlayerSlot(req.Winner)
		if winner != match.SlotPlayer1 && winner != match.SlotPlayer2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "winner must be player1 or player2"})
			return
		}

		s, outcome, err := m.ReportResult(c.Request.Context(), c.Param("room"), userID, winner, req.ExpectedVersion)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": s, "outcome": outcome})
	}
}

// ResetReports clears both report slots of the given game after a mismatch.
func ResetReports(m *match.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req struct {
			Game int `json:"game"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "game required"})
			return
		}

		s, err := m.ResetReports(c.Request.Context(), c.Param("room"), userID, req.Game)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": s})
	}
}

// Forfeit concedes the match.
func Forfeit(m *match.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		s, err := m.Forfeit(c.Request.Context(), c.Param("room"), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": s})
	}
}
