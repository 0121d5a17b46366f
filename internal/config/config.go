// Package config loads runtime settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"moneytracker/internal/insights"
	"moneytracker/internal/log"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Quotes
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	QuoteTimeout  time.Duration

	CatalogFile string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration

	LogLevel string

	// Feedback thresholds
	FeedbackStrongRatio  float64
	FeedbackWarningRatio float64
	FeedbackStrongYear   float64
	FeedbackWarningYear  float64
}

var validBackends = []string{"memory", "sqlite"}

// defaults are keyed by the lower case form of the environment variable.
func defaults() map[string]any {
	th := insights.DefaultThresholds()
	return map[string]any{
		"port":                        "8081",
		"rate_limit_per_minute":       60,
		"data_backend":                "sqlite",
		"sqlite_db_path":              "./data/moneytracker.db",
		"amqp_url":                    "",
		"amqp_exchange":               "moneytracker",
		"amqp_queue":                  "mirror_spending",
		"openai_api_key":              "",
		"openai_model":                "gpt-4o-mini",
		"openai_base_url":             "",
		"quote_timeout":               "20s",
		"catalog_file":                "",
		"google_spreadsheet_id":       "",
		"google_sheet_name":           "Spending",
		"google_service_account_json": "",
		"google_service_account_file": "",
		"sync_batch_size":             10,
		"sync_interval":               "30s",
		"log_level":                   "info",
		"feedback_strong_ratio":       th.StrongRatio,
		"feedback_warning_ratio":      th.WarningRatio,
		"feedback_strong_year":        th.StrongYear,
		"feedback_warning_year":       th.WarningYear,
	}
}

// Load reads the configuration. CONFIG_FILE may name a YAML file whose keys
// are the lower case variable names; environment variables override it.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Port:               v.GetString("port"),
		RateLimitPerMinute: v.GetInt("rate_limit_per_minute"),

		DataBackend:  strings.ToLower(v.GetString("data_backend")),
		SQLiteDBPath: v.GetString("sqlite_db_path"),

		AMQPURL:      v.GetString("amqp_url"),
		AMQPExchange: v.GetString("amqp_exchange"),
		AMQPQueue:    v.GetString("amqp_queue"),

		OpenAIAPIKey:  v.GetString("openai_api_key"),
		OpenAIModel:   v.GetString("openai_model"),
		OpenAIBaseURL: v.GetString("openai_base_url"),
		QuoteTimeout:  v.GetDuration("quote_timeout"),

		CatalogFile: v.GetString("catalog_file"),

		GoogleSpreadsheetID:      v.GetString("google_spreadsheet_id"),
		GoogleSheetName:          v.GetString("google_sheet_name"),
		GoogleServiceAccountJSON: v.GetString("google_service_account_json"),
		GoogleServiceAccountFile: v.GetString("google_service_account_file"),

		SyncBatchSize: v.GetInt("sync_batch_size"),
		SyncInterval:  v.GetDuration("sync_interval"),

		LogLevel: v.GetString("log_level"),

		FeedbackStrongRatio:  v.GetFloat64("feedback_strong_ratio"),
		FeedbackWarningRatio: v.GetFloat64("feedback_warning_ratio"),
		FeedbackStrongYear:   v.GetFloat64("feedback_strong_year"),
		FeedbackWarningYear:  v.GetFloat64("feedback_warning_year"),
	}, nil
}

// Thresholds returns the configured feedback thresholds.
func (c *Config) Thresholds() insights.Thresholds {
	return insights.Thresholds{
		StrongRatio:  c.FeedbackStrongRatio,
		WarningRatio: c.FeedbackWarningRatio,
		StrongYear:   c.FeedbackStrongYear,
		WarningYear:  c.FeedbackWarningYear,
	}
}

// MirrorEnabled reports whether saved days are mirrored to Google Sheets.
func (c *Config) MirrorEnabled() bool {
	return strings.TrimSpace(c.GoogleSpreadsheetID) != ""
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
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.OpenAIBaseURL != "" {
		if u, err := url.Parse(c.OpenAIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid OpenAI base URL '%s'", c.OpenAIBaseURL))
		}
	}
	if c.QuoteTimeout <= 0 || c.QuoteTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid quote timeout %v: must be between 0 and 5 minutes", c.QuoteTimeout))
	}

	if c.CatalogFile != "" {
		if _, err := os.Stat(c.CatalogFile); err != nil {
			errors = append(errors, fmt.Sprintf("catalog file is not readable: %s", c.CatalogFile))
		}
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}
	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.Thresholds().Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid feedback thresholds: %v", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
