// ABOUTME: Assistant session storage operations for SQLite
// ABOUTME: Selects the newest row per user; rows are only ever updated in place
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fitai/intake-bot/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when an update targets a row that does not exist
var ErrNotFound = errors.New("not found")

const sessionColumns = `id, user_id, thread_id, state, created_at, updated_at`

// SessionStore handles assistant session persistence
type SessionStore struct {
	db  *DB
	now func() time.Time
}

// NewSessionStore creates a new SessionStore
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

// Insert stores a new session row and returns it with id and timestamps set
func (s *SessionStore) Insert(ctx context.Context, session *models.Session) (*models.Session, error) {
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}

	stored := *session
	stored.ID = uuid.New().String()
	now := s.now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assistant_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`, stored.ID, stored.UserID, stored.ThreadID, string(stored.State), now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return &stored, nil
}

// Latest returns the most recently created session for a user, or nil if none exists
func (s *SessionStore) Latest(ctx context.Context, userID string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM assistant_sessions
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, userID)

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select latest session: %w", err)
	}
	return session, nil
}

// ListByUser returns every session for a user, newest first
func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM assistant_sessions
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// UpdateState sets the lifecycle state of a session
func (s *SessionStore) UpdateState(ctx context.Context, sessionID string, state models.SessionState) error {
	return s.update(ctx, "state", string(state), sessionID)
}

// UpdateThread points a session at a different remote thread
func (s *SessionStore) UpdateThread(ctx context.Context, sessionID, threadID string) error {
	if threadID == "" {
		return errors.New("thread id cannot be empty")
	}
	return s.update(ctx, "thread_id", threadID, sessionID)
}

// update writes one column; column is always a package constant, never user input
func (s *SessionStore) update(ctx context.Context, column, value, sessionID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE assistant_sessions SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		value, s.now().UTC().UnixNano(), sessionID)
	if err != nil {
		return fmt.Errorf("update session %s: %w", column, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		session              models.Session
		state                string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&session.ID, &session.UserID, &session.ThreadID, &state, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	session.State = models.SessionState(state)
	session.CreatedAt = time.Unix(0, createdAt).UTC()
	session.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &session, nil
}
