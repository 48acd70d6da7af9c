package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"gomoku-platform/backend/internal/db"
	"gomoku-platform/backend/internal/redis"
)

// Config holds all configuration values for the application
type Config struct {
	// Database configuration
	DBConfig db.Config

	// Redis configuration
	RedisConfig redis.Config

	// Event log configuration
	KafkaBrokers    []string
	EventPartitions int
	EventRetention  time.Duration

	// Gameplay configuration
	SessionTTL   time.Duration
	AIServiceURL string
	AITimeout    time.Duration

	// Server configuration
	ServerPort  string
	Environment string

	// Authentication
	JWTSecret        string
	JWTExpiry        time.Duration
	JWTRefreshExpiry time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() Config {
	// Load .env file if it exists
	godotenv.Load()

	return Config{
		DBConfig: db.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "gomoku_platform"),
		},
		RedisConfig: redis.Config{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		KafkaBrokers:     strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		EventPartitions:  getEnvInt("EVENT_PARTITIONS", 3),
		EventRetention:   getEnvDuration("EVENT_RETENTION", 7*24*time.Hour),
		SessionTTL:       getEnvDuration("SESSION_TTL", 2*time.Hour),
		AIServiceURL:     getEnv("AI_SERVICE_URL", "http://localhost:5000"),
		AITimeout:        getEnvDuration("AI_TIMEOUT", 30*time.Second),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		Environment:      getEnv("ENV", "development"),
		JWTSecret:        getEnv("JWT_SECRET", "secret"),
		JWTExpiry:        getEnvDuration("JWT_EXPIRY", 15*time.Minute),
		JWTRefreshExpiry: getEnvDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
	}
}

// getEnv retrieves an environment variable or returns a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable or returns a fallback
func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvDuration retrieves a duration environment variable or returns a fallback
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
