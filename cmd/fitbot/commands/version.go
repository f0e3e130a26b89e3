// ABOUTME: Version command to display build information
// ABOUTME: With --verbose also shows which assistant and database the bot would use
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fitai/intake-bot/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

var (
	versionInfo = VersionInfo{
		Version: "dev",
		Commit:  "none",
		Date:    "unknown",
	}
)

// VersionInfo contains build information
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// SetVersion sets the version information (called from main)
func SetVersion(version, commit, date string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.Date = date
}

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display version, commit hash, and build date for the fitbot binary.

With --verbose, also show where configuration was read from and the
assistant id and database path the bot would run with.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "fitbot %s\n", versionInfo.Version)
			fmt.Fprintf(out, "Commit: %s\n", versionInfo.Commit)
			fmt.Fprintf(out, "Built:  %s\n", versionInfo.Date)

			if verbose {
				printRuntimeConfig(out)
			}
		},
	}

	return cmd
}

// printRuntimeConfig reports the settings serve would start with. Secrets are never printed.
func printRuntimeConfig(out io.Writer) {
	source := "environment"
	if _, err := os.Stat(".env"); err == nil {
		source = ".env + environment"
	}
	fmt.Fprintf(out, "Config: %s\n", source)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "Config error: %v\n", err)
		return
	}

	assistantID := cfg.AssistantID
	if assistantID == "" {
		assistantID = "(not set)"
	}
	fmt.Fprintf(out, "Assistant: %s\n", assistantID)

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = sqlite.DefaultDBPath()
	}
	fmt.Fprintf(out, "Database: %s\n", dbPath)
}
