// ABOUTME: Shared utility functions for CLI commands
// ABOUTME: Config loading, storage opening, and table formatting helpers
package commands

import (
	"fmt"
	"time"

	"github.com/fitai/intake-bot/internal/config"
	"github.com/fitai/intake-bot/internal/storage/sqlite"
	"github.com/joho/godotenv"
)

// loadConfig reads .env if present, then the environment
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openStorage opens the database named by the config, or the XDG default
func openStorage(cfg *config.Config) (*sqlite.Storage, error) {
	if cfg.DBPath != "" {
		return sqlite.NewStorageWithPath(cfg.DBPath)
	}
	return sqlite.NewStorage()
}

// wantJSON reports whether output should be JSON
func wantJSON() bool {
	return outputFormat == "json"
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatTime formats a time for display
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	if diff < time.Minute {
		return "just now"
	} else if diff < time.Hour {
		mins := int(diff.Minutes())
		return fmt.Sprintf("%dm ago", mins)
	} else if diff < 24*time.Hour {
		hours := int(diff.Hours())
		return fmt.Sprintf("%dh ago", hours)
	} else if diff < 7*24*time.Hour {
		days := int(diff.Hours() / 24)
		return fmt.Sprintf("%dd ago", days)
	}
	return t.Format("2006-01-02")
}

// validatePositiveInt returns error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}
