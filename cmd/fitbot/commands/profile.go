// ABOUTME: CLI command to view a client's stored intake profile
// ABOUTME: Shows contact, age, weight, and height as a table or JSON
package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewProfileCmd creates profile command
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile <external-id>",
		Short: "View a client's intake profile",
		Long: `View the intake profile stored for a Telegram user.

The profile holds the answers collected during onboarding:
contact, age, weight (kg), and height (cm).

Examples:
  fitbot profile 123456789
  fitbot profile 123456789 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runProfileShow,
	}

	return cmd
}

func runProfileShow(cmd *cobra.Command, args []string) error {
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
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No profile found for %s. The user has not finished intake.\n", args[0])
		}
		return nil
	}

	if wantJSON() {
		jsonData, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", jsonData)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "FIELD\tVALUE\n")
	fmt.Fprintf(w, "-----\t-----\n")

	name := profile.DisplayName
	if name == "" {
		name = "(not set)"
	}
	fmt.Fprintf(w, "Name\t%s\n", truncate(name, 60))
	if profile.Username != "" {
		fmt.Fprintf(w, "Username\t@%s\n", profile.Username)
	}
	fmt.Fprintf(w, "Contact\t%s\n", profile.Contact)
	fmt.Fprintf(w, "Age\t%d\n", profile.Age)
	fmt.Fprintf(w, "Weight\t%s kg\n", strconv.FormatFloat(profile.Weight, 'f', -1, 64))
	fmt.Fprintf(w, "Height\t%s cm\n", strconv.FormatFloat(profile.Height, 'f', -1, 64))
	fmt.Fprintf(w, "Last Updated\t%s\n", formatTime(profile.UpdatedAt))

	return w.Flush()
}
