package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Port     string
	LogLevel string

	// Default number of days returned by the activity endpoint
	ActivityWindowDays int

	// Telegram front end, disabled when TelegramToken is empty
	TelegramToken  string
	AllowedUserIDs []int64
	WebhookMode    bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL     string // URL for webhook (required if WebhookMode is true)

	// ClickHouse configuration
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool

	UseMockDB bool
}

// BotEnabled reports whether the Telegram bot should be started
func (c *Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	config.Port = os.Getenv("PORT")
	if config.Port == "" {
		config.Port = "8080"
	}

	config.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	switch config.LogLevel {
	case "":
		config.LogLevel = "info"
	case "info", "debug":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL: %s (expected info or debug)", config.LogLevel)
	}

	config.ActivityWindowDays = 7
	if windowStr := os.Getenv("ACTIVITY_WINDOW_DAYS"); windowStr != "" {
		days, err := strconv.Atoi(windowStr)
		if err != nil || days <= 0 {
			return nil, fmt.Errorf("invalid ACTIVITY_WINDOW_DAYS: %s", windowStr)
		}
		config.ActivityWindowDays = days
	}

	// Telegram bot (optional)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken != "" {
		allowedIDsStr := os.Getenv("ALLOWED_USER_IDS")
		if allowedIDsStr == "" {
			return nil, fmt.Errorf("ALLOWED_USER_IDS is required when TELEGRAM_BOT_TOKEN is set (comma-separated list of Telegram user IDs)")
		}

		for _, idStr := range strings.Split(allowedIDsStr, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID in ALLOWED_USER_IDS: %s", idStr)
			}
			config.AllowedUserIDs = append(config.AllowedUserIDs, id)
		}

		config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
		if config.WebhookMode {
			config.WebhookURL = os.Getenv("WEBHOOK_URL")
			if config.WebhookURL == "" {
				return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
			}
		}
	}

	config.UseMockDB = os.Getenv("USE_MOCK_DB") == "true"

	// ClickHouse configuration (required if not using mock)
	if !config.UseMockDB {
		config.ClickHouseHost = os.Getenv("CLICKHOUSE_HOST")
		if config.ClickHouseHost == "" {
			return nil, fmt.Errorf("CLICKHOUSE_HOST is required when USE_MOCK_DB is not set")
		}

		portStr := os.Getenv("CLICKHOUSE_PORT")
		if portStr == "" {
			config.ClickHousePort = 9000 // Default ClickHouse native port
		} else {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
			}
			config.ClickHousePort = port
		}

		config.ClickHouseDatabase = os.Getenv("CLICKHOUSE_DATABASE")
		if config.ClickHouseDatabase == "" {
			config.ClickHouseDatabase = "default"
		}

		config.ClickHouseUser = os.Getenv("CLICKHOUSE_USER")
		if config.ClickHouseUser == "" {
			config.ClickHouseUser = "default"
		}

		config.ClickHousePassword = os.Getenv("CLICKHOUSE_PASSWORD")

		config.ClickHouseUseTLS = os.Getenv("CLICKHOUSE_USE_TLS") == "true"
	}

	return config, nil
}
