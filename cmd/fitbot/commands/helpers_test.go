// ABOUTME: Shared fixtures for command tests
// ABOUTME: Seeds a throwaway database and runs the root command against it

package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/fitai/intake-bot/internal/models"
	"github.com/fitai/intake-bot/internal/storage/sqlite"
)

// testDB points FITBOT_DB_PATH at a fresh database and returns the open store
func testDB(t *testing.T) *sqlite.Storage {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fitbot.db")
	t.Setenv("FITBOT_DB_PATH", path)

	store, err := sqlite.NewStorageWithPath(path)
	if err != nil {
		t.Fatalf("NewStorageWithPath() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedProfile(t *testing.T, store *sqlite.Storage, externalID string) *models.Profile {
	t.Helper()

	profile, err := store.UpsertUser(context.Background(), &models.Profile{
		ExternalID:  externalID,
		DisplayName: "Sam Lee",
		Username:    "samlee",
		Contact:     "+15550100",
		Age:         30,
		Weight:      70.5,
		Height:      175,
	})
	if err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	return profile
}

func seedSession(t *testing.T, store *sqlite.Storage, userID, threadID string) {
	t.Helper()

	_, err := store.InsertSession(context.Background(), &models.Session{
		UserID:   userID,
		ThreadID: threadID,
		State:    models.SessionOngoing,
	})
	if err != nil {
		t.Fatalf("InsertSession() error = %v", err)
	}
}

// runRoot executes the root command with args and returns its stdout
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return output.String(), err
}
