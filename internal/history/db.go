// Package history stores finished downloads in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ytget/streamgrab/internal/platform"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// DB wraps the history database connection
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the database at path and migrates it
func Open(ctx context.Context, path string) (*DB, error) {
	if path != MemoryPath {
		if err := platform.CreateDirectoryIfNotExists(filepath.Dir(path)); err != nil {
			return nil, err
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	// SQLite serializes writers; one connection also keeps :memory: shared
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB}
	if err := db.Migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate runs all database migrations
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL,
			url TEXT NOT NULL,
			destination TEXT NOT NULL,
			quality TEXT NOT NULL,
			codec TEXT NOT NULL,
			state TEXT NOT NULL,
			file_path TEXT,
			failure_kind TEXT,
			error_message TEXT,
			started_at INTEGER,
			finished_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_finished_at ON downloads(finished_at)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_url ON downloads(url)`,
	}

	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
