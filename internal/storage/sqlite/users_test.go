// ABOUTME: Tests for user profile storage operations
// ABOUTME: Verifies upsert idempotence and lookups by external id
package sqlite

import (
	"context"
	"testing"

	"github.com/fitai/intake-bot/internal/models"
)

func testProfile(externalID string) *models.Profile {
	return &models.Profile{
		ExternalID:  externalID,
		DisplayName: "Sam Lee",
		Username:    "samlee",
		Contact:     "+15550100",
		Age:         30,
		Weight:      70.5,
		Height:      175.5,
	}
}

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpsertUser_InsertThenGet(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	got, err := store.GetUserByExternalID(ctx, "42")
	if err != nil {
		t.Fatalf("GetUserByExternalID() error = %v", err)
	}
	if got != nil {
		t.Error("GetUserByExternalID() should return nil when no user exists")
	}

	saved, err := store.UpsertUser(ctx, testProfile("42"))
	if err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	if saved.ID == "" {
		t.Fatal("UpsertUser() returned empty row id")
	}

	got, err = store.GetUserByExternalID(ctx, "42")
	if err != nil {
		t.Fatalf("GetUserByExternalID() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetUserByExternalID() returned nil after upsert")
	}
	if got.ID != saved.ID {
		t.Errorf("ID = %v, want %v", got.ID, saved.ID)
	}
	if got.Age != 30 || got.Weight != 70.5 || got.Height != 175.5 {
		t.Errorf("answers = %d/%v/%v, want 30/70.5/175.5", got.Age, got.Weight, got.Height)
	}
	if got.Contact != "+15550100" || got.Username != "samlee" {
		t.Errorf("identity = %q/%q", got.Contact, got.Username)
	}
}

func TestUpsertUser_SameExternalIDKeepsRowID(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	first, err := store.UpsertUser(ctx, testProfile("42"))
	if err != nil {
		t.Fatalf("first UpsertUser() error = %v", err)
	}

	again := testProfile("42")
	again.Age = 31
	again.Weight = 68
	second, err := store.UpsertUser(ctx, again)
	if err != nil {
		t.Fatalf("second UpsertUser() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("row id changed on re-upsert: %v -> %v", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed on re-upsert: %v -> %v", first.CreatedAt, second.CreatedAt)
	}

	got, err := store.GetUserByExternalID(ctx, "42")
	if err != nil {
		t.Fatalf("GetUserByExternalID() error = %v", err)
	}
	if got.Age != 31 || got.Weight != 68 {
		t.Errorf("answers not updated: age=%d weight=%v", got.Age, got.Weight)
	}

	var count int
	if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("count error = %v", err)
	}
	if count != 1 {
		t.Errorf("users count = %d, want 1", count)
	}
}

func TestUpsertUser_RejectsIncompleteProfile(t *testing.T) {
	store := newTestStorage(t)

	p := testProfile("42")
	p.Height = 0
	if _, err := store.UpsertUser(context.Background(), p); err == nil {
		t.Error("UpsertUser() should reject a profile without height")
	}
}
