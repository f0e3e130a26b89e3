// ABOUTME: Unified Storage layer that wraps the users and sessions stores
// ABOUTME: Satisfies the core profile store contract and the operator read paths
package sqlite

import (
	"context"
	"fmt"

	"github.com/fitai/intake-bot/internal/models"
)

// Storage manages all persistent data for the intake bot
type Storage struct {
	db       *DB
	users    *UserStore
	sessions *SessionStore
}

// NewStorage initializes storage at the default XDG path
func NewStorage() (*Storage, error) {
	return NewStorageWithPath(DefaultDBPath())
}

// NewStorageWithPath initializes storage with a custom database path
func NewStorageWithPath(dbPath string) (*Storage, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newStorage(db), nil
}

// NewStorageInMemory creates an in-memory storage (for testing)
func NewStorageInMemory() (*Storage, error) {
	db, err := OpenInMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return newStorage(db), nil
}

func newStorage(db *DB) *Storage {
	return &Storage{
		db:       db,
		users:    NewUserStore(db),
		sessions: NewSessionStore(db),
	}
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping verifies database connectivity
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// UpsertUser saves a completed profile, keyed by external id
func (s *Storage) UpsertUser(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	return s.users.Upsert(ctx, profile)
}

// GetUserByExternalID loads a profile, returning nil if the user never finished intake
func (s *Storage) GetUserByExternalID(ctx context.Context, externalID string) (*models.Profile, error) {
	return s.users.GetByExternalID(ctx, externalID)
}

// InsertSession stores a new assistant session row
func (s *Storage) InsertSession(ctx context.Context, session *models.Session) (*models.Session, error) {
	return s.sessions.Insert(ctx, session)
}

// LatestSession returns the newest session row for a user, or nil
func (s *Storage) LatestSession(ctx context.Context, userID string) (*models.Session, error) {
	return s.sessions.Latest(ctx, userID)
}

// ListSessions returns all session rows for a user, newest first
func (s *Storage) ListSessions(ctx context.Context, userID string) ([]models.Session, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// UpdateSessionState sets a session's lifecycle flag
func (s *Storage) UpdateSessionState(ctx context.Context, sessionID string, state models.SessionState) error {
	return s.sessions.UpdateState(ctx, sessionID, state)
}

// UpdateSessionThread replaces a session's remote thread id
func (s *Storage) UpdateSessionThread(ctx context.Context, sessionID, threadID string) error {
	return s.sessions.UpdateThread(ctx, sessionID, threadID)
}
