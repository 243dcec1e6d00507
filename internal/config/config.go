package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerPort        string
	BackendURL        string
	RequestTimeout    time.Duration
	StreamRetryDelay  time.Duration
	PollInterval      time.Duration
	MatchDisplayLimit int
	LogBufferLimit    int
	CORSAllowOrigin   string
	DashboardPassword string
	SessionTTL        time.Duration
	DemoMode          bool
}

func Load() *Config {
	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		BackendURL:        getEnv("BACKEND_URL", "http://localhost:8000"),
		RequestTimeout:    getDuration("REQUEST_TIMEOUT", 5*time.Second),
		StreamRetryDelay:  getDuration("STREAM_RETRY_DELAY", 5*time.Second),
		PollInterval:      getDuration("POLL_INTERVAL", 30*time.Second),
		MatchDisplayLimit: getInt("MATCH_DISPLAY_LIMIT", 10),
		LogBufferLimit:    getInt("LOG_BUFFER_LIMIT", 500),
		CORSAllowOrigin:   getEnv("CORS_ALLOW_ORIGIN", "*"),
		DashboardPassword: os.Getenv("DASHBOARD_PASSWORD"),
		SessionTTL:        getDuration("SESSION_TTL", 24*time.Hour),
		DemoMode:          getBool("DEMO_MODE", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration for env var, using default",
			"key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer for env var, using default",
			"key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean for env var, using default",
			"key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}
