// ABOUTME: MCP tool definitions and registration for the operator server
// ABOUTME: Read-only tools over stored intake profiles and assistant sessions
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, store Store) *Handlers {
	handlers := &Handlers{storage: store}

	// 1. get_profile - Intake answers for one user
	server.AddTool(mcp.Tool{
		Name:        "get_profile",
		Description: "Get the stored intake profile (contact, age, weight, height) for a Telegram user.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"external_id": map[string]interface{}{
					"type":        "string",
					"description": "Telegram user id",
				},
			},
			Required: []string{"external_id"},
		},
	}, handlers.GetProfile)

	// 2. list_sessions - Assistant threads for one user
	server.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List the assistant sessions (thread id and state) recorded for a Telegram user, newest first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"external_id": map[string]interface{}{
					"type":        "string",
					"description": "Telegram user id",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of sessions to return (default: 10)",
					"default":     10,
				},
			},
			Required: []string{"external_id"},
		},
	}, handlers.ListSessions)

	return handlers
}
