// Package config loads runtime settings from the environment, with an
// optional .env file for development.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything the binary needs at startup
type Config struct {
	Addr             string
	DBPath           string
	LogLevel         string
	SessionID        string
	OperatorPassword string
	FingerprintSalt  string
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in when present; a missing file is fine.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:             getEnv("STAGEVOTE_ADDR", ":8080"),
		DBPath:           getEnv("STAGEVOTE_DB", "stagevote.db"),
		LogLevel:         getEnv("STAGEVOTE_LOG_LEVEL", "info"),
		SessionID:        getEnv("STAGEVOTE_SESSION", "default"),
		OperatorPassword: os.Getenv("STAGEVOTE_OPERATOR_PASSWORD"),
		FingerprintSalt:  getEnv("STAGEVOTE_FINGERPRINT_SALT", "stagevote"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
