// Package journal provides access to the host journal: the document store
// the activity imports starred entries from and writes edited metadata back
// to.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB holding the journal.
type DB struct {
	*sql.DB
}

// Open opens the journal database under dataDir with:
// - WAL mode for concurrent reads/writes
// - foreign key constraints enabled
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "journal.db")

	// modernc.org/sqlite is pure Go, no CGO
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// initSchema creates the entries table if it doesn't exist. The schema
// mirrors the host journal's metadata surface: every optional key is a
// nullable column, and absence degrades to a default at normalization.
func initSchema(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS entries (
		object_id TEXT PRIMARY KEY,
		title TEXT,
		description TEXT,
		creation_time TEXT,
		timestamp TEXT,
		activity TEXT,
		tags TEXT,
		comments TEXT,
		mime_type TEXT,
		file_path TEXT,
		keep INTEGER NOT NULL DEFAULT 0
	);`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
