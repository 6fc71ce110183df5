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

	// Per-client limiter on mutating requests
	RateLimitPerMinute       int
	RateLimitStaleAfter      time.Duration
	RateLimitCleanupInterval time.Duration

	// Record store backend selection
	DataBackend string

	// SQLite backend
	SQLiteDBPath string

	// Postgres backend
	PostgresDSN string

	// Sessions
	JWTSecret          string
	AccessTokenTTL     time.Duration
	SignupConfirmation bool

	// AMQP change events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sheets export worker
	GoogleSpreadsheetID string
	GoogleSheetName     string
	ExportBatchSize     int
	ExportInterval      time.Duration
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		RateLimitPerMinute:       getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		RateLimitStaleAfter:      getEnvDuration("RATE_LIMIT_STALE_AFTER", 10*time.Minute),
		RateLimitCleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/coinshelter.db"),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		AccessTokenTTL:     getEnvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
		SignupConfirmation: getEnvBool("SIGNUP_CONFIRMATION", false),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "coinshelter"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "coin_changes"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Collection"),
		ExportBatchSize:     getEnvInt("EXPORT_BATCH_SIZE", 10),
		ExportInterval:      getEnvDuration("EXPORT_INTERVAL", 30*time.Second),
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

	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "postgres":
		if c.PostgresDSN == "" {
			errs = append(errs, "Postgres DSN cannot be empty when using postgres backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite postgres]", c.DataBackend))
	}

	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.RateLimitStaleAfter < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid rate limit stale cutoff %v: must be at least 1 minute", c.RateLimitStaleAfter))
	}
	if c.RateLimitCleanupInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid rate limit cleanup interval %v: must be at least 1 second", c.RateLimitCleanupInterval))
	}

	if c.JWTSecret == "" {
		errs = append(errs, "JWT secret cannot be empty")
	} else if len(c.JWTSecret) < 16 {
		errs = append(errs, "JWT secret must be at least 16 characters")
	}
	if c.AccessTokenTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid access token TTL %v: must be at least 1 minute", c.AccessTokenTTL))
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

	if c.ExportBatchSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid export batch size %d: must be at least 1", c.ExportBatchSize))
	} else if c.ExportBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid export batch size %d: must be at most 1000", c.ExportBatchSize))
	}
	if c.ExportInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid export interval %v: must be at least 1 second", c.ExportInterval))
	} else if c.ExportInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid export interval %v: must be at most 24 hours", c.ExportInterval))
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
