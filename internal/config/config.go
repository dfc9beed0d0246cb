// Package config loads daemon configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP server
	Port string

	// Snapshot storage
	Backend      string // "file" or "sqlite"
	DataFile     string
	SQLiteDBPath string

	// AMQP notifications (optional; empty URL disables the publisher)
	AMQPURL      string
	AMQPExchange string

	// Accounts managed by this instance
	Accounts []string

	// Logging
	LogLevel slog.Level
}

// Load reads configuration from the environment, after loading a .env
// file if one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:         getEnv("PORT", "8082"),
		Backend:      getEnv("DATA_BACKEND", "file"),
		DataFile:     getEnv("DATA_FILE", "./data/budget_tracker_data.json"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budget.db"),
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budget"),
		Accounts:     getEnvList("ACCOUNTS", []string{"default"}),
		LogLevel:     parseLogLevel(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.Backend {
	case "file":
		if c.DataFile == "" {
			errs = append(errs, "DATA_FILE must be set for the file backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLITE_DB_PATH must be set for the sqlite backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid backend '%s': must be one of file, sqlite", c.Backend))
	}

	if len(c.Accounts) == 0 {
		errs = append(errs, "at least one account must be configured")
	}
	for _, acc := range c.Accounts {
		if strings.TrimSpace(acc) == "" {
			errs = append(errs, "account names must not be blank")
			break
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
