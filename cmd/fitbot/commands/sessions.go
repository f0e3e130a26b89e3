// ABOUTME: CLI command to list a client's assistant sessions
// ABOUTME: Shows the thread id and state of each session, newest first
package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/fitai/intake-bot/internal/models"
	"github.com/spf13/cobra"
)

var sessionsLimit int

// NewSessionsCmd creates sessions command
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions <external-id>",
		Short: "List a client's assistant sessions",
		Long: `List the assistant sessions recorded for a Telegram user.

Each session links the user to one OpenAI thread. The newest session
is the one the bot talks to.

Examples:
  fitbot sessions 123456789
  fitbot sessions 123456789 --limit 1
  fitbot sessions 123456789 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runSessions,
	}

	cmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "Maximum number of sessions to show")

	return cmd
}

func runSessions(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(sessionsLimit, "limit"); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()

	profile, err := store.GetUserByExternalID(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("getting profile: %w", err)
	}
	if profile == nil {
		return fmt.Errorf("no profile found for %s", args[0])
	}

	sessions, err := store.ListSessions(cmd.Context(), profile.ID)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) > sessionsLimit {
		sessions = sessions[:sessionsLimit]
	}
	if sessions == nil {
		sessions = []models.Session{}
	}

	if wantJSON() {
		jsonData, err := json.MarshalIndent(sessions, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	if len(sessions) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No sessions yet for %s.\n", args[0])
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "THREAD\tSTATE\tCREATED\tUPDATED\n")
	fmt.Fprintf(w, "------\t-----\t-------\t-------\n")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			truncate(s.ThreadID, 40), s.State, formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	}

	return w.Flush()
}
