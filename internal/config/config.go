// Package config loads service configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ListenAddr    string
	RedisAddr     string // empty = in-process store
	RedisPassword string
	StorePrefix   string
	PostgresDSN   string // empty = auth endpoints disabled
	JWTSecret     string
	TokenTTL      time.Duration
	LogLevel      string
}

// Load reads the environment, after merging a .env file when one
// exists. Missing optional values fall back to development defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("could not load .env file")
	}

	return &Config{
		ListenAddr:    envOr("LISTEN_ADDR", ":8080"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		StorePrefix:   envOr("STORE_PREFIX", "hub:"),
		PostgresDSN:   os.Getenv("DATABASE_URL"),
		JWTSecret:     envOr("JWT_SECRET", "dev-only-secret"),
		TokenTTL:      durationOr("TOKEN_TTL", 24*time.Hour),
		LogLevel:      envOr("LOG_LEVEL", "info"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logrus.WithField("key", key).WithError(err).Warn("bad duration, using default")
		return fallback
	}
	return d
}
