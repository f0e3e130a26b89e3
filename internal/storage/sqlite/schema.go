// ABOUTME: SQLite database schema for profiles and assistant sessions
// ABOUTME: Timestamps are unix nanoseconds so "latest session" ordering is exact
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
-- One row per Telegram user, upserted on every completed intake
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    external_id TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL DEFAULT '',
    username TEXT NOT NULL DEFAULT '',
    contact TEXT NOT NULL,
    age INTEGER NOT NULL,
    weight REAL NOT NULL,
    height REAL NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- No uniqueness on user_id: older rows are orphaned, never removed
CREATE TABLE IF NOT EXISTS assistant_sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    thread_id TEXT NOT NULL,
    state TEXT NOT NULL CHECK (state IN ('STARTED', 'ONGOING')),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_user_created ON assistant_sessions(user_id, created_at DESC);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
