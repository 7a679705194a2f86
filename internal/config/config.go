package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	AllowOrigin        string

	// Dataset
	DataSource          string
	DatasetPath         string
	SampleSize          int
	SampleSeed          uint64
	DefaultCountryCount int
	DefaultTheme        string

	// Database
	SQLiteDBPath string

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	// AMQPQueue names a durable per-instance queue. Empty uses a private
	// server-named queue per connection.
	AMQPQueue    string
	InstanceID   string

	// Google Sheets
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// View cache
	CacheSize int
	CacheTTL  time.Duration

	// Worker
	ReloadInterval time.Duration
}

// Data sources understood by the backend factory.
var DataSources = []string{"csv", "sheets", "sqlite"}

// Color themes accepted for DEFAULT_THEME.
var themes = []string{"blues", "reds", "greens", "turbo", "viridis"}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
		AllowOrigin:        getEnv("CORS_ALLOW_ORIGIN", ""),

		DataSource:          getEnv("DATA_SOURCE", "csv"),
		DatasetPath:         getEnv("DATASET_PATH", "./data/Import_Export.csv"),
		SampleSize:          getEnvInt("SAMPLE_SIZE", 0),
		SampleSeed:          uint64(getEnvInt("SAMPLE_SEED", 42)),
		DefaultCountryCount: getEnvInt("DEFAULT_COUNTRY_COUNT", 3),
		DefaultTheme:        strings.ToLower(getEnv("DEFAULT_THEME", "blues")),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/tradedash.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tradedash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", ""),
		InstanceID:   getEnv("INSTANCE_ID", defaultInstanceID()),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		CacheSize: getEnvInt("CACHE_SIZE", 256),
		CacheTTL:  getEnvDuration("CACHE_TTL", 10*time.Minute),

		ReloadInterval: getEnvDuration("RELOAD_INTERVAL", 0),
	}

	return cfg
}

// AMQPEnabled reports whether reload notifications are configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	if !slices.Contains(DataSources, c.DataSource) {
		errors = append(errors, fmt.Sprintf("invalid data source '%s': must be one of %v", c.DataSource, DataSources))
	}

	switch c.DataSource {
	case "csv":
		if c.DatasetPath == "" {
			errors = append(errors, "dataset path cannot be empty when using csv source")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite source")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets source")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets source")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if c.SampleSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid sample size %d: must be zero (disabled) or positive", c.SampleSize))
	}
	if c.DefaultCountryCount < 0 {
		errors = append(errors, fmt.Sprintf("invalid default country count %d: must not be negative", c.DefaultCountryCount))
	}
	if !slices.Contains(themes, c.DefaultTheme) {
		errors = append(errors, fmt.Sprintf("invalid default theme '%s': must be one of %v", c.DefaultTheme, themes))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}

	// Zero disables periodic reloads.
	if c.ReloadInterval != 0 && c.ReloadInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid reload interval %v: must be 0 or at least 1 minute", c.ReloadInterval))
	} else if c.ReloadInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reload interval %v: must be at most 24 hours", c.ReloadInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "tradedash"
	}
	return host
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
