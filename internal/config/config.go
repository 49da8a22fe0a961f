// Package config loads server settings from the environment and the
// game world from its JSON configuration file.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address     string // Listen address for the game API
	DebugAddr   string // Listen address for pprof/metrics (localhost only)
	DatabaseURL string // Postgres connection string for the leaderboard
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Address:   "0.0.0.0:8080",
		DebugAddr: "localhost:6060",
	}
}

// ServerFromEnv returns server configuration with environment variable
// overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Address = "0.0.0.0:" + strconv.Itoa(p)
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.DebugAddr = addr
	}
	cfg.DatabaseURL = os.Getenv("GAME_DB_URL")

	return cfg
}

// =============================================================================
// RATE LIMITING
// =============================================================================

// RateLimitConfig controls the per-IP request limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultRateLimit returns the default rate limit configuration.
func DefaultRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 50,
		Burst:             100,
	}
}

// RateLimitFromEnv returns rate limit configuration with environment
// variable overrides.
func RateLimitFromEnv() RateLimitConfig {
	cfg := DefaultRateLimit()

	if rps := getEnvFloat("RATE_LIMIT_RPS", 0); rps > 0 {
		cfg.RequestsPerSecond = rps
	}
	if b := getEnvInt("RATE_LIMIT_BURST", 0); b > 0 {
		cfg.Burst = b
	}

	return cfg
}

// =============================================================================
// GAMEPLAY TOGGLES
// =============================================================================

// GameConfig holds gameplay behavior toggles.
type GameConfig struct {
	// RetireOnDBError keeps retiring a player in memory even when the
	// leaderboard write fails. When false, the player stays in the world
	// until the record can be written.
	RetireOnDBError bool
}

// DefaultGame returns the default gameplay toggles.
func DefaultGame() GameConfig {
	return GameConfig{
		RetireOnDBError: true,
	}
}

// GameFromEnv returns gameplay toggles with environment variable
// overrides.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if v := os.Getenv("RETIRE_ON_DB_ERROR"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RetireOnDBError = b
		}
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete environment-derived configuration.
type AppConfig struct {
	Server    ServerConfig
	RateLimit RateLimitConfig
	Game      GameConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server:    ServerFromEnv(),
		RateLimit: RateLimitFromEnv(),
		Game:      GameFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
