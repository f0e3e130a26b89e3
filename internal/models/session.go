// ABOUTME: Session links a user to a remote assistant thread
// ABOUTME: Rows are never deleted; the newest row per user wins
package models

import (
	"errors"
	"time"
)

// SessionState is the lifecycle flag stored on a session row
type SessionState string

const (
	SessionStarted SessionState = "STARTED"
	SessionOngoing SessionState = "ONGOING"
)

// Session records which remote thread a user is talking to
type Session struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	ThreadID  string       `json:"thread_id"`
	State     SessionState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Validate checks the session has the fields storage requires
func (s *Session) Validate() error {
	if s.UserID == "" {
		return errors.New("user id cannot be empty")
	}
	if s.ThreadID == "" {
		return errors.New("thread id cannot be empty")
	}
	if s.State != SessionStarted && s.State != SessionOngoing {
		return errors.New("invalid state")
	}
	return nil
}
