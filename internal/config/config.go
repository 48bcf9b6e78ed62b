package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "finanquest/internal/log"
)

type Config struct {
	// Backend API
	APIBaseURL  string
	HTTPTimeout time.Duration

	// Secure store
	StoreBackend string
	StorePath    string
	StoreKeyFile string

	// Repository cache
	CacheTTL  time.Duration
	CacheSize int

	// Logging
	LogLevel string

	// AMQP lifecycle events (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets report export (optional)
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

func Load() *Config {
	storePath := getEnv("FINANQUEST_STORE_PATH", defaultStorePath())

	cfg := &Config{
		APIBaseURL:  getEnv("FINANQUEST_API_URL", "http://localhost:8080"),
		HTTPTimeout: getEnvDuration("FINANQUEST_HTTP_TIMEOUT", 15*time.Second),

		StoreBackend: getEnv("FINANQUEST_STORE_BACKEND", "sqlite"),
		StorePath:    storePath,
		StoreKeyFile: getEnv("FINANQUEST_STORE_KEY_FILE", filepath.Join(filepath.Dir(storePath), "session.key")),

		CacheTTL:  getEnvDuration("FINANQUEST_CACHE_TTL", 30*time.Second),
		CacheSize: getEnvInt("FINANQUEST_CACHE_SIZE", 64),

		LogLevel: getEnv("FINANQUEST_LOG_LEVEL", "warn"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finanquest.events"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "finanquest.session"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Reports"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate API base URL
	if c.APIBaseURL == "" {
		errors = append(errors, "API base URL cannot be empty")
	} else if parsedURL, err := url.Parse(c.APIBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	} else if parsedURL.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': missing host", c.APIBaseURL))
	}

	if c.HTTPTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at least 1 second", c.HTTPTimeout))
	} else if c.HTTPTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at most 5 minutes", c.HTTPTimeout))
	}

	// Validate store backend
	validBackends := []string{"sqlite", "plain", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.StoreBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid store backend '%s': must be one of %v", c.StoreBackend, validBackends))
	}

	if c.StoreBackend == "sqlite" || c.StoreBackend == "plain" {
		if c.StorePath == "" {
			errors = append(errors, fmt.Sprintf("store path cannot be empty when using %s backend", c.StoreBackend))
		}
	}
	if c.StoreBackend == "sqlite" && c.StoreKeyFile == "" {
		errors = append(errors, "store key file cannot be empty when using sqlite backend")
	}

	// Validate cache configuration
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	} else if c.CacheSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at most 10000", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: cannot be negative", c.CacheTTL))
	} else if c.CacheTTL > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 1 hour", c.CacheTTL))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// EventsEnabled reports whether lifecycle events should go to AMQP.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// ExportEnabled reports whether report export to Google Sheets is configured.
func (c *Config) ExportEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".finanquest", "session.db")
	}
	return filepath.Join(home, ".finanquest", "session.db")
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
