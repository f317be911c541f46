package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	DatabaseFile string // Path to SQLite permission/user database (default: ./gatehouse.db)

	PermissionSource          string        // Where role definitions come from: "file" or "database" (default: database)
	PermissionFileDir         string        // Directory of role JSON files when source is "file" (default: ./configs/permissions)
	PermissionRefreshInterval time.Duration // Database snapshot refresh interval (default: 10m)

	RedisAddr     string // Shared session store address; empty runs an in-process store
	RedisPassword string // Optional Redis auth
	RedisDB       int    // Redis logical database (default: 0)

	SessionTTL       time.Duration // Sliding session lifetime (default: 30m)
	SessionCacheTTL  time.Duration // Local identity cache lifetime (default: 5m)
	NegativeCacheTTL time.Duration // Dead token memory (default: 1m)
	StoreTimeout     time.Duration // Per-call session store deadline (default: 2s)
	RenewalWorkers   int           // Background renewal workers (default: 4)

	AdminUsername string // Initial admin account username (default: admin)
	AdminPassword string // Initial admin account password; empty skips bootstrap


	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	cfg := Config{
		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Port:      getEnvIntOrDefault("PORT", 8080),

		DatabaseFile: getEnvOrDefault("GATEHOUSE_DATABASE_FILE", "gatehouse.db"),

		PermissionSource:          getEnvOrDefault("GATEHOUSE_PERMISSION_SOURCE", "database"),
		PermissionFileDir:         getEnvOrDefault("GATEHOUSE_PERMISSION_FILE_DIR", "configs/permissions"),
		PermissionRefreshInterval: getEnvDurationOrDefault("GATEHOUSE_PERMISSION_REFRESH_INTERVAL", 10*time.Minute),

		RedisAddr:     os.Getenv("GATEHOUSE_REDIS_ADDR"),
		RedisPassword: os.Getenv("GATEHOUSE_REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("GATEHOUSE_REDIS_DB", 0),

		SessionTTL:       getEnvDurationOrDefault("GATEHOUSE_SESSION_TTL", 30*time.Minute),
		SessionCacheTTL:  getEnvDurationOrDefault("GATEHOUSE_SESSION_CACHE_TTL", 5*time.Minute),
		NegativeCacheTTL: getEnvDurationOrDefault("GATEHOUSE_NEGATIVE_CACHE_TTL", time.Minute),
		StoreTimeout:     getEnvDurationOrDefault("GATEHOUSE_STORE_TIMEOUT", 2*time.Second),
		RenewalWorkers:   getEnvIntOrDefault("GATEHOUSE_RENEWAL_WORKERS", 4),

		AdminUsername: getEnvOrDefault("GATEHOUSE_ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("GATEHOUSE_ADMIN_PASSWORD"),


		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
