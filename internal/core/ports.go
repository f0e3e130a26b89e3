// ABOUTME: Interfaces for the collaborators the core drives
// ABOUTME: Implemented by the sqlite store, the assistant client, and the Telegram transport
package core

import (
	"context"

	"github.com/fitai/intake-bot/internal/assistant"
	"github.com/fitai/intake-bot/internal/models"
)

// ProfileStore persists profiles and assistant sessions
type ProfileStore interface {
	UpsertUser(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*models.Profile, error)
	InsertSession(ctx context.Context, session *models.Session) (*models.Session, error)
	LatestSession(ctx context.Context, userID string) (*models.Session, error)
	UpdateSessionState(ctx context.Context, sessionID string, state models.SessionState) error
	UpdateSessionThread(ctx context.Context, sessionID, threadID string) error
}

// AssistantClient is the remote thread/run/message API
type AssistantClient interface {
	CreateThread(ctx context.Context) (string, error)
	PostMessage(ctx context.Context, threadID, text string) error
	StartRun(ctx context.Context, threadID string) (assistant.Run, error)
	GetRun(ctx context.Context, threadID, runID string) (assistant.Run, error)
	ListRuns(ctx context.Context, threadID string, limit int) ([]assistant.Run, error)
	ListMessages(ctx context.Context, threadID string) ([]assistant.Message, error)
}

// Format carries the optional presentation hints for an outbound message
type Format struct {
	Markdown       bool
	RequestContact bool // offer a one-button "share contact" keyboard
	RemoveKeyboard bool
}

// Sender delivers text to a chat
type Sender interface {
	SendText(ctx context.Context, chatID, text string, format Format) error
}
