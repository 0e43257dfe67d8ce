package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations runs the migrations directly (for testing)
// In production, migrations should be run via the migrate CLI or embed package
func (db *DB) RunMigrations() error {
	migration := `
-- Tracked websites. "position" preserves registry order across a full
-- save/load round trip. Transient capture state is never stored.
CREATE TABLE websites (
    id INTEGER PRIMARY KEY,
    position INTEGER NOT NULL,
    url TEXT NOT NULL,
    name TEXT NOT NULL,
    status INTEGER,
    vitals TEXT,
    last_checked TIMESTAMP,
    screenshot TEXT,
    industry TEXT NOT NULL DEFAULT 'general',
    project_status TEXT NOT NULL DEFAULT '',
    favorite INTEGER NOT NULL DEFAULT 0,
    is_wordpress INTEGER,
    notes TEXT
);
CREATE INDEX idx_websites_position ON websites(position);
CREATE INDEX idx_websites_favorite ON websites(favorite);
CREATE INDEX idx_websites_industry ON websites(industry);
CREATE INDEX idx_websites_project_status ON websites(project_status);

-- User-defined project status extensions (built-ins are not stored)
CREATE TABLE project_statuses (
    value TEXT PRIMARY KEY,
    label TEXT NOT NULL,
    color TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- History of finished bulk capture runs
CREATE TABLE capture_runs (
    id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    total INTEGER NOT NULL,
    completed INTEGER NOT NULL,
    errors TEXT,
    outcome TEXT NOT NULL CHECK(outcome IN ('complete', 'degraded', 'cancelled'))
);
CREATE INDEX idx_capture_runs_finished ON capture_runs(finished_at);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
