package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// REST backend (the transaction/report collaborator)
	BackendBaseURL string
	BackendToken   string
	BackendTimeout time.Duration

	// Aggregation
	PageSize           int
	BalanceConcurrency int

	// Snapshot store
	SQLiteDBPath string

	// Directory snapshots
	DirectoryTTL time.Duration

	// AMQP refresh events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8082"),

		BackendBaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:8000/api/v1"),
		BackendToken:   getEnv("BACKEND_TOKEN", ""),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", 15*time.Second),

		PageSize:           getEnvInt("AGGREGATION_PAGE_SIZE", 500),
		BalanceConcurrency: getEnvInt("BALANCE_CONCURRENCY", 4),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledgerview.db"),

		DirectoryTTL: getEnvDuration("DIRECTORY_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledgerview"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "refresh_events"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if parsed, err := url.Parse(c.BackendBaseURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid backend base URL '%s': %v", c.BackendBaseURL, err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errs = append(errs, fmt.Sprintf("invalid backend base URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
	}

	if c.BackendTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid backend timeout %v: must be at least 1 second", c.BackendTimeout))
	}

	// The engine is agnostic to the exact page size but it must be a
	// positive integer, and the backend caps limits at 1000.
	if c.PageSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid aggregation page size %d: must be at least 1", c.PageSize))
	} else if c.PageSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid aggregation page size %d: must be at most 1000", c.PageSize))
	}

	if c.BalanceConcurrency < 1 || c.BalanceConcurrency > 64 {
		errs = append(errs, fmt.Sprintf("invalid balance concurrency %d: must be between 1 and 64", c.BalanceConcurrency))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.DirectoryTTL < 10*time.Second || c.DirectoryTTL > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid directory TTL %v: must be between 10 seconds and 24 hours", c.DirectoryTTL))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
