package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/smashladder/backend/internal/api/handlers"
	"github.com/smashladder/backend/internal/config"
	"github.com/smashladder/backend/internal/match"
	"github.com/smashladder/backend/internal/middleware"
	"github.com/smashladder/backend/internal/queue"
	"github.com/smashladder/backend/internal/rating"
	"github.com/smashladder/backend/internal/ws"
)

// Deps bundles everything the route handlers close over.
type Deps struct {
	DB      *sqlx.DB
	Redis   *redis.Client
	Config  *config.Config
	Machine *match.Machine
	Queue   *queue.Store
	Settler *rating.Settler
	Hub     *ws.Hub
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, d Deps) {
	router.Use(middleware.CORSMiddleware(d.Config))
	router.Use(middleware.WebSocketCORSCheck(d.Config))

	if d.Config.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] Aggressive no-cache headers enabled for all routes")
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(d.DB, d.Redis))

		// Reference data is public and static.
		v1.GET("/fighters", handlers.ListFighters)
		v1.GET("/stages", handlers.ListStages)

		v1.GET("/ranking", handlers.Ranking(d.Settler))
		v1.GET("/players/:id/history", handlers.MatchHistory(d.Settler))

		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(d.Config))
		{
			authed.GET("/me/rating", handlers.MyRating(d.Settler))

			q := authed.Group("/queue")
			{
				q.POST("/join", handlers.JoinQueue(d.Queue, d.Machine, d.Settler))
				q.GET("/status", handlers.QueueStatus(d.Queue, d.Machine))
				q.POST("/leave", handlers.LeaveQueue(d.Queue))
			}

			s := authed.Group("/sessions")
			{
				s.POST("", handlers.CreateSession(d.Machine))
				s.GET("/:room", handlers.GetSession(d.Machine))
				s.POST("/:room/join", handlers.JoinSession(d.Machine))
				s.POST("/:room/fighter", handlers.SelectFighter(d.Machine))
				s.POST("/:room/wants-change", handlers.SetWantsChange(d.Machine))
				s.POST("/:room/confirm", handlers.ConfirmFighter(d.Machine))
				s.POST("/:room/ban", handlers.BanStages(d.Machine))
				s.POST("/:room/stage", handlers.SelectStage(d.Machine))
				s.POST("/:room/report", handlers.ReportResult(d.Machine))
				s.POST("/:room/reset-reports", handlers.ResetReports(d.Machine))
				s.POST("/:room/forfeit", handlers.Forfeit(d.Machine))
				s.GET("/:room/ws", ws.HandleSession(d.Hub, d.Machine.Store()))
			}
		}
	}
}
