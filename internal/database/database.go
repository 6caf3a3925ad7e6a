package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

type Database struct {
	db *sql.DB
}

// DB returns the underlying *sql.DB instance
func (d *Database) DB() *sql.DB {
	return d.db
}

func New(path string) (*Database, error) {
	// Create the directory if it doesn't exist
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	dbInstance := &Database{db: db}

	// Run migrations
	if err := dbInstance.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %v", err)
	}

	return dbInstance, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// migrate runs the database migrations
func (d *Database) migrate() error {
	var tableExists int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='_migrations'`,
	).Scan(&tableExists)

	if err != nil {
		return fmt.Errorf("failed to check migrations table: %v", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if tableExists == 0 {
		if _, err := tx.Exec(`
			CREATE TABLE _migrations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE,
				run_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`); err != nil {
			return fmt.Errorf("failed to create migrations table: %v", err)
		}
	}

	for _, migration := range getMigrations() {
		var count int
		err := tx.QueryRow(
			`SELECT COUNT(*) FROM _migrations WHERE name = ?`,
			migration.name,
		).Scan(&count)

		if err != nil {
			return fmt.Errorf("failed to check migration status: %v", err)
		}

		if count == 0 {
			if _, err := tx.Exec(migration.statement); err != nil {
				return fmt.Errorf("failed to run migration %s: %v", migration.name, err)
			}

			if _, err := tx.Exec(
				`INSERT INTO _migrations (name) VALUES (?)`,
				migration.name,
			); err != nil {
				return fmt.Errorf("failed to record migration %s: %v", migration.name, err)
			}
		}
	}

	return tx.Commit()
}

type migration struct {
	name      string
	statement string
}

func getMigrations() []migration {
	return []migration{
		{
			name: "initial_schema",
			statement: `
				-- Schedule events
				CREATE TABLE IF NOT EXISTS events (
					id TEXT PRIMARY KEY,
					title TEXT NOT NULL,
					description TEXT,
					start_time TIMESTAMP NOT NULL,
					end_time TIMESTAMP NOT NULL,
					owner_id TEXT NOT NULL,
					location TEXT,
					is_virtual BOOLEAN DEFAULT 0,
					meeting_link TEXT,
					event_type TEXT NOT NULL DEFAULT 'meeting',
					notes TEXT,
					reminder_offset_minutes INTEGER DEFAULT 0,
					created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_events_owner ON events(owner_id);
				CREATE INDEX IF NOT EXISTS idx_events_start_time ON events(start_time);

				-- Attendees get read visibility into an event without
				-- mutation rights
				CREATE TABLE IF NOT EXISTS event_attendees (
					event_id TEXT NOT NULL,
					user_id TEXT NOT NULL,
					PRIMARY KEY (event_id, user_id),
					FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
				);

				CREATE INDEX IF NOT EXISTS idx_event_attendees_user ON event_attendees(user_id);
			`,
		},
		// Add more migrations here as needed
	}
}
