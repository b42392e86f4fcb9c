package repository

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB creates and initializes a SQLite database
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys and WAL for concurrent readers
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	-- Media cache: denormalized mirror of the media index
	CREATE TABLE IF NOT EXISTS media (
		id INTEGER PRIMARY KEY,
		uri TEXT NOT NULL,
		display_name TEXT NOT NULL,
		date_added INTEGER NOT NULL,
		bucket_id TEXT,
		bucket_name TEXT,
		mime_type TEXT NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		size INTEGER NOT NULL DEFAULT 0,
		duration INTEGER,
		is_video INTEGER NOT NULL DEFAULT 0,
		path TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_media_date_added ON media(date_added);
	CREATE INDEX IF NOT EXISTS idx_media_bucket_id ON media(bucket_id);
	CREATE INDEX IF NOT EXISTS idx_media_is_video ON media(is_video);
	CREATE INDEX IF NOT EXISTS idx_media_is_video_date ON media(is_video, date_added);
	CREATE INDEX IF NOT EXISTS idx_media_display_name ON media(display_name);
	CREATE INDEX IF NOT EXISTS idx_media_size ON media(size);

	-- Favorites: row presence means favorited
	CREATE TABLE IF NOT EXISTS favorites (
		media_id INTEGER PRIMARY KEY
	);

	-- ML-derived labels, written by the labeling collaborator
	CREATE TABLE IF NOT EXISTS labels (
		media_id INTEGER PRIMARY KEY,
		labels TEXT NOT NULL DEFAULT '',
		labels_with_confidence TEXT NOT NULL DEFAULT '',
		processed_timestamp INTEGER NOT NULL DEFAULT 0
	);

	-- Persisted preferences served as continuously-updating streams
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Migration bookkeeping
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := db.Exec(schema)
	return err
}

// migrations is the ordered list of additive schema changes. User data is
// never dropped or rewritten; every entry is a new table or a new column
// with a default.
var migrations = []struct {
	version int
	stmt    string
}{
	{1, `ALTER TABLE media ADD COLUMN path TEXT NOT NULL DEFAULT ''`},
	{2, `ALTER TABLE labels ADD COLUMN labels_with_confidence TEXT NOT NULL DEFAULT ''`},
}

func applyMigrations(db *sql.DB) error {
	for _, m := range migrations {
		var exists int
		err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, m.version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("migration check %d: %w", m.version, err)
		}
		if exists > 0 {
			continue
		}

		// Fresh databases already carry the final shape from createTables;
		// a duplicate-column error just means there is nothing to do.
		if _, err := db.Exec(m.stmt); err != nil && !isDuplicateColumn(err) {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			return fmt.Errorf("migration record %d: %w", m.version, err)
		}
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate column name")
}
