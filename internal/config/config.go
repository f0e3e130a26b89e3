// ABOUTME: Centralized configuration for the FitAI intake bot
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the intake bot
type Config struct {
	// Telegram settings
	TelegramToken     string
	TelegramSendRate  float64
	TelegramSendBurst int

	// OpenAI Assistants settings
	OpenAIKey          string
	AssistantID        string
	OpenAIBaseURL      string
	Timeout            time.Duration
	MaxRetries         int
	RetryDelay         time.Duration
	RunPollInterval    time.Duration
	RunPollMaxInterval time.Duration
	RunTimeout         time.Duration // 0 waits for the run indefinitely

	// Storage settings; empty DBPath means the XDG default
	DBPath string

	// Operations
	HTTPAddr  string // empty disables the health server; set HTTP_ADDR=off
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken:      os.Getenv("TELEGRAM_BOT_KEY"),
		TelegramSendRate:   getEnvFloat("TELEGRAM_SEND_RATE", 25),
		TelegramSendBurst:  getEnvInt("TELEGRAM_SEND_BURST", 5),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		AssistantID:        os.Getenv("ASSISTANT_ID"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		Timeout:            getEnvDuration("OPENAI_TIMEOUT", 30*time.Second),
		MaxRetries:         getEnvInt("OPENAI_MAX_RETRIES", 3),
		RetryDelay:         getEnvDuration("OPENAI_RETRY_DELAY", 2*time.Second),
		RunPollInterval:    getEnvDuration("RUN_POLL_INTERVAL", 500*time.Millisecond),
		RunPollMaxInterval: getEnvDuration("RUN_POLL_MAX_INTERVAL", 2*time.Second),
		RunTimeout:         getEnvDuration("RUN_TIMEOUT", 0),
		DBPath:             getEnv("FITBOT_DB_PATH", ""),
		HTTPAddr:           httpAddr(getEnv("HTTP_ADDR", ":8080")),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
	}

	return cfg, cfg.Validate()
}

// Validate checks value ranges. Credentials are checked separately by RequireServe.
func (c *Config) Validate() error {
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.RunPollInterval <= 0 {
		return fmt.Errorf("RUN_POLL_INTERVAL must be positive, got %v", c.RunPollInterval)
	}
	if c.RunPollMaxInterval < c.RunPollInterval {
		return fmt.Errorf("RUN_POLL_MAX_INTERVAL (%v) must be >= RUN_POLL_INTERVAL (%v)", c.RunPollMaxInterval, c.RunPollInterval)
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("RUN_TIMEOUT must not be negative, got %v", c.RunTimeout)
	}
	if c.TelegramSendRate <= 0 {
		return fmt.Errorf("TELEGRAM_SEND_RATE must be positive, got %f", c.TelegramSendRate)
	}
	if c.TelegramSendBurst < 1 {
		return fmt.Errorf("TELEGRAM_SEND_BURST must be >= 1, got %d", c.TelegramSendBurst)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// RequireServe reports the missing credentials needed to run the bot
func (c *Config) RequireServe() error {
	var missing []string
	if c.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_BOT_KEY")
	}
	if c.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.AssistantID == "" {
		missing = append(missing, "ASSISTANT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment: %s", strings.Join(missing, ", "))
	}
	return nil
}

// HTTPAddrOff is the HTTP_ADDR value that turns the health server off
const HTTPAddrOff = "off"

func httpAddr(v string) string {
	if strings.EqualFold(strings.TrimSpace(v), HTTPAddrOff) {
		return ""
	}
	return v
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

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

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
