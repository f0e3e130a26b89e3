// ABOUTME: MCP command starts the operator Model Context Protocol server
// ABOUTME: Lets LLM agents look up client profiles and sessions via stdio
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fitai/intake-bot/internal/logging"
	"github.com/fitai/intake-bot/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs fitbot as an MCP (Model Context Protocol) server so LLM agents
like Claude can look up client intake profiles and assistant sessions
via stdio. The tools are read-only.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by Claude Desktop)
  fitbot mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "fitbot": {
  #       "command": "fitbot",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// stdout carries the protocol, so logs always go to stderr
	logger, err := logging.Setup(logLevel(cfg.LogLevel), cfg.LogFormat)
	if err != nil {
		return err
	}

	store, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	server := mcpserver.NewMCPServer("FitAI Intake", versionInfo.Version)
	mcp.RegisterTools(server, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Msg("MCP server starting on stdio")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err = <-serverErr:
	}

	if cerr := store.Close(); cerr != nil {
		logger.Warn().Err(cerr).Msg("error closing storage")
	}
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
