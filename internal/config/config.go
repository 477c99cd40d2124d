package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Rating
	EloKFactor    int
	DefaultRating int

	// Ruleset: ban counts per step. The opening ban of game 1 is always a
	// single stage; these cover the "ban two" steps.
	Game1Player2Bans int
	CounterpickBans  int

	// Matchmaking
	QueueExpiryMinutes int
	QueueSweepSeconds  int

	// Session lifecycle
	PhaseDeadlineSeconds    int
	DeadlinePollSeconds     int
	SettlementRetrySeconds  int
	SettlementWorkerSeconds int

	// Security
	JWTSecret string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/smashladder?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Rating
		EloKFactor:    getEnvInt("ELO_K_FACTOR", 32),
		DefaultRating: getEnvInt("DEFAULT_RATING", 1500),

		// Ruleset
		Game1Player2Bans: getEnvInt("GAME1_PLAYER2_BANS", 2),
		CounterpickBans:  getEnvInt("COUNTERPICK_BANS", 2),

		// Matchmaking
		QueueExpiryMinutes: getEnvInt("QUEUE_EXPIRY_MINUTES", 10),
		QueueSweepSeconds:  getEnvInt("QUEUE_SWEEP_SECONDS", 30),

		// Session lifecycle
		PhaseDeadlineSeconds:    getEnvInt("PHASE_DEADLINE_SECONDS", 180),
		DeadlinePollSeconds:     getEnvInt("DEADLINE_POLL_SECONDS", 15),
		SettlementRetrySeconds:  getEnvInt("SETTLEMENT_RETRY_SECONDS", 30),
		SettlementWorkerSeconds: getEnvInt("SETTLEMENT_WORKER_SECONDS", 30),

		// Security
		JWTSecret: getEnv("JWT_SECRET", "change-me-in-production"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
