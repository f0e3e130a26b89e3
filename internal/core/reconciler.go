// ABOUTME: SessionReconciler keeps exactly one usable assistant thread per user
// ABOUTME: Finds or creates the session row, promotes it to ONGOING, and replaces dead threads
package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitai/intake-bot/internal/assistant"
	"github.com/fitai/intake-bot/internal/models"
	"github.com/rs/zerolog"
)

// ErrThreadUnusable is reported by the assistant client when a stored thread is gone
var ErrThreadUnusable = assistant.ErrThreadNotFound

// Reconciler maps a user row to a live remote thread
type Reconciler struct {
	store  ProfileStore
	client AssistantClient
	logger zerolog.Logger
}

// NewReconciler creates a reconciler over the given store and assistant client
func NewReconciler(store ProfileStore, client AssistantClient, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		client: client,
		logger: logger.With().Str("component", "reconciler").Logger(),
	}
}

// GetOrCreate returns the user's newest session, promoted to ONGOING.
// A user with no session gets a fresh thread and an ONGOING row.
// Calling it again with no intervening failure returns the same thread.
func (r *Reconciler) GetOrCreate(ctx context.Context, userID string) (*models.Session, error) {
	session, err := r.store.LatestSession(ctx, userID)
	if err != nil {
		return nil, dependency("load session", err)
	}

	if session != nil {
		if session.State != models.SessionOngoing {
			if err := r.store.UpdateSessionState(ctx, session.ID, models.SessionOngoing); err != nil {
				return nil, dependency("promote session", err)
			}
			session.State = models.SessionOngoing
		}
		return session, nil
	}

	threadID, err := r.client.CreateThread(ctx)
	if err != nil {
		return nil, dependency("create thread", err)
	}

	session, err = r.store.InsertSession(ctx, &models.Session{
		UserID:   userID,
		ThreadID: threadID,
		State:    models.SessionOngoing,
	})
	if err != nil {
		return nil, dependency("insert session", err)
	}

	r.logger.Info().
		Str("user_id", userID).
		Str("thread_id", threadID).
		Msg("created assistant session")
	return session, nil
}

// Replace points the session at a brand new thread, keeping the row
func (r *Reconciler) Replace(ctx context.Context, session *models.Session) (*models.Session, error) {
	threadID, err := r.client.CreateThread(ctx)
	if err != nil {
		return nil, dependency("create replacement thread", err)
	}
	if err := r.store.UpdateSessionThread(ctx, session.ID, threadID); err != nil {
		return nil, dependency("store replacement thread", err)
	}

	r.logger.Warn().
		Str("user_id", session.UserID).
		Str("old_thread_id", session.ThreadID).
		Str("thread_id", threadID).
		Msg("replaced unusable assistant thread")

	replaced := *session
	replaced.ThreadID = threadID
	return &replaced, nil
}

// WithThread runs fn against the user's thread. If fn reports the thread as
// unusable, the thread is replaced once and fn runs one more time.
func (r *Reconciler) WithThread(ctx context.Context, userID string, fn func(ctx context.Context, threadID string) error) error {
	session, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	err = fn(ctx, session.ThreadID)
	if !errors.Is(err, ErrThreadUnusable) {
		return err
	}

	r.logger.Warn().Err(err).
		Str("user_id", userID).
		Str("thread_id", session.ThreadID).
		Msg("assistant thread unusable")

	session, err = r.Replace(ctx, session)
	if err != nil {
		return err
	}
	if err := fn(ctx, session.ThreadID); err != nil {
		return fmt.Errorf("after thread replacement: %w", err)
	}
	return nil
}
