package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/smashladder/backend/internal/api"
	"github.com/smashladder/backend/internal/config"
	"github.com/smashladder/backend/internal/database"
	"github.com/smashladder/backend/internal/match"
	"github.com/smashladder/backend/internal/migrations"
	"github.com/smashladder/backend/internal/notify"
	"github.com/smashladder/backend/internal/queue"
	"github.com/smashladder/backend/internal/rating"
	"github.com/smashladder/backend/internal/redis"
	"github.com/smashladder/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	ctx := context.Background()

	publisher := notify.NewPublisher(rdb)
	settler := rating.NewSettler(db, cfg)
	machine := match.NewMachine(db, rdb, publisher, settler, cfg)
	queueStore := queue.NewStore(db)

	hub := ws.NewHub(publisher)
	go hub.Run(ctx)

	// Background workers: stale queue entries, lapsed phase deadlines, and
	// settlement retries.
	queue.StartExpirySweeper(ctx, queueStore, cfg)
	match.StartDeadlineWorker(ctx, machine, rdb, cfg)
	rating.StartSettlementWorker(ctx, rdb, settler, cfg)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	api.SetupRoutes(router, api.Deps{
		DB:      db,
		Redis:   rdb,
		Config:  cfg,
		Machine: machine,
		Queue:   queueStore,
		Settler: settler,
		Hub:     hub,
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting SmashLadder server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
