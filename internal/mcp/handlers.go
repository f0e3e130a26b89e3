// ABOUTME: MCP tool handler implementations for the operator server
// ABOUTME: Tool failures are reported as tool errors, never as protocol errors
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fitai/intake-bot/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// Store is the read side of the profile store the tools need
type Store interface {
	GetUserByExternalID(ctx context.Context, externalID string) (*models.Profile, error)
	ListSessions(ctx context.Context, userID string) ([]models.Session, error)
}

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	storage Store
}

// GetProfile handles the get_profile tool
func (h *Handlers) GetProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	externalID, err := request.RequireString("external_id")
	if err != nil {
		return mcp.NewToolResultError("external_id argument is required and must be a string"), nil
	}

	profile, err := h.storage.GetUserByExternalID(ctx, externalID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load profile: %v", err)), nil
	}
	if profile == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no profile for user %s", externalID)), nil
	}

	return jsonResult(map[string]interface{}{
		"profile": map[string]interface{}{
			"id":           profile.ID,
			"external_id":  profile.ExternalID,
			"display_name": profile.DisplayName,
			"username":     profile.Username,
			"contact":      profile.Contact,
			"age":          profile.Age,
			"weight":       profile.Weight,
			"height":       profile.Height,
			"updated_at":   profile.UpdatedAt.Format(time.RFC3339),
		},
		"summary": profile.Summary(),
	})
}

// ListSessions handles the list_sessions tool
func (h *Handlers) ListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	externalID, err := request.RequireString("external_id")
	if err != nil {
		return mcp.NewToolResultError("external_id argument is required and must be a string"), nil
	}
	limit := int(request.GetFloat("limit", 10))
	if limit <= 0 {
		limit = 10
	}

	profile, err := h.storage.GetUserByExternalID(ctx, externalID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load profile: %v", err)), nil
	}
	if profile == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no profile for user %s", externalID)), nil
	}

	sessions, err := h.storage.ListSessions(ctx, profile.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}

	results := make([]map[string]interface{}, 0, len(sessions))
	for _, s := range sessions {
		results = append(results, map[string]interface{}{
			"id":         s.ID,
			"thread_id":  s.ThreadID,
			"state":      string(s.State),
			"created_at": s.CreatedAt.Format(time.RFC3339),
			"updated_at": s.UpdatedAt.Format(time.RFC3339),
		})
	}

	return jsonResult(map[string]interface{}{
		"external_id": externalID,
		"sessions":    results,
		"count":       len(results),
	})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
