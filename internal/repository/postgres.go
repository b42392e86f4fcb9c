package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// NewPostgresDB creates and initializes a PostgreSQL database connection
func NewPostgresDB(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := createPostgresTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createPostgresTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS media (
		id BIGINT PRIMARY KEY,
		uri TEXT NOT NULL,
		display_name TEXT NOT NULL,
		date_added BIGINT NOT NULL,
		bucket_id TEXT,
		bucket_name TEXT,
		mime_type TEXT NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		size BIGINT NOT NULL DEFAULT 0,
		duration BIGINT,
		is_video SMALLINT NOT NULL DEFAULT 0,
		path TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_media_date_added ON media(date_added);
	CREATE INDEX IF NOT EXISTS idx_media_bucket_id ON media(bucket_id);
	CREATE INDEX IF NOT EXISTS idx_media_is_video ON media(is_video);
	CREATE INDEX IF NOT EXISTS idx_media_is_video_date ON media(is_video, date_added);
	CREATE INDEX IF NOT EXISTS idx_media_display_name ON media(display_name);
	CREATE INDEX IF NOT EXISTS idx_media_size ON media(size);

	CREATE TABLE IF NOT EXISTS favorites (
		media_id BIGINT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS labels (
		media_id BIGINT PRIMARY KEY,
		labels TEXT NOT NULL DEFAULT '',
		labels_with_confidence TEXT NOT NULL DEFAULT '',
		processed_timestamp BIGINT NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);
	`

	_, err := db.Exec(schema)
	return err
}
