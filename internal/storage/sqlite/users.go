// ABOUTME: User profile storage operations for SQLite
// ABOUTME: Upserts are keyed by external id and return the stored row
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

// UserStore handles user profile persistence
type UserStore struct {
	db  *DB
	now func() time.Time
}

// NewUserStore creates a new UserStore
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db, now: time.Now}
}

// Upsert inserts the profile or updates the row with the same external id.
// The returned profile carries the row id, which is stable across upserts.
func (s *UserStore) Upsert(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	now := s.now().UTC()
	var createdAt, updatedAt int64
	var id string

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, external_id, display_name, username, contact, age, weight, height, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			display_name = excluded.display_name,
			username = excluded.username,
			contact = excluded.contact,
			age = excluded.age,
			weight = excluded.weight,
			height = excluded.height,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at
	`, uuid.New().String(), profile.ExternalID, profile.DisplayName, profile.Username,
		profile.Contact, profile.Age, profile.Weight, profile.Height,
		now.UnixNano(), now.UnixNano()).Scan(&id, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	stored := *profile
	stored.ID = id
	stored.CreatedAt = time.Unix(0, createdAt).UTC()
	stored.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &stored, nil
}

// GetByExternalID returns the profile for an external id, or nil if none exists
func (s *UserStore) GetByExternalID(ctx context.Context, externalID string) (*models.Profile, error) {
	var (
		p                    models.Profile
		createdAt, updatedAt int64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, display_name, username, contact, age, weight, height, created_at, updated_at
		FROM users
		WHERE external_id = ?
	`, externalID).Scan(&p.ID, &p.ExternalID, &p.DisplayName, &p.Username, &p.Contact,
		&p.Age, &p.Weight, &p.Height, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}

	p.CreatedAt = time.Unix(0, createdAt).UTC()
	p.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &p, nil
}
