// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the process needs to start.
type Config struct {
	Port          string
	DBPath        string
	ModelDir      string
	RetentionDays int
	LogLevel      string
}

// Load reads configuration from the environment, after loading a local .env
// file if one exists. Every field has a working default.
func Load() *Config {
	// Missing .env is the normal case in deployment.
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "user_history.db"),
		ModelDir:      getEnv("MODEL_DIR", "models"),
		RetentionDays: getEnvInt("RETENTION_DAYS", 30),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
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
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
