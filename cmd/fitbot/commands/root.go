// ABOUTME: Root Cobra command and global flags for fitbot
// ABOUTME: Wires serve, profile, sessions, mcp, and version subcommands
package commands

import (
	"errors"

	"github.com/spf13/cobra"
)

// Global flags shared by subcommands
var (
	verbose      bool
	quiet        bool
	outputFormat string
)

const banner = `
███████╗██╗████████╗██████╗  ██████╗ ████████╗
██╔════╝██║╚══██╔══╝██╔══██╗██╔═══██╗╚══██╔══╝
█████╗  ██║   ██║   ██████╔╝██║   ██║   ██║
██╔══╝  ██║   ██║   ██╔══██╗██║   ██║   ██║
██║     ██║   ██║   ██████╔╝╚██████╔╝   ██║
╚═╝     ╚═╝   ╚═╝   ╚═════╝  ╚═════╝    ╚═╝
`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fitbot",
		Short: "FitAI Telegram intake bot",
		Long: banner + `
FitAI intake bot

Walks new clients through a short onboarding questionnaire on Telegram
(contact, age, weight, height), stores their profile, and hands the
conversation to an OpenAI assistant that keeps chatting with them.

Run "fitbot serve" to start the bot. The other commands inspect stored
profiles and assistant sessions.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose && quiet {
				return errors.New("--verbose and --quiet are mutually exclusive")
			}
			switch outputFormat {
			case "auto", "table", "json":
				return nil
			default:
				return errors.New("--format must be auto, table, or json")
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table, or json")

	cmd.AddCommand(
		NewServeCmd(),
		NewProfileCmd(),
		NewSessionsCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
