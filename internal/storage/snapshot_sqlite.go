// Package storage persists cache snapshots in a local SQLite database so a
// fresh process can show last known good data before its first fetch
// completes. Only the client cache is persisted; the server remains the
// owner of all entities.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/kakeibolab/kakeibo-sync/internal/query"
)

// SnapshotStore is a SQLite-backed store of exported cache entries.
type SnapshotStore struct {
	db     *sql.DB
	dbPath string
}

// NewSnapshotStore opens the snapshot database, creating it and its parent
// directory when missing.
func NewSnapshotStore(dbPath string) (*SnapshotStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath cannot be empty")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping snapshot database: %w", err)
	}

	return &SnapshotStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SnapshotStore) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Entry is one persisted cache entry with its value still in JSON form; the
// caller decodes it to the concrete type its key demands.
type Entry struct {
	FetchedAt time.Time
	Key       query.Key
	Value     []byte
	Stale     bool
}

// Stats summarizes the persisted snapshot.
type Stats struct {
	OldestFetch time.Time
	NewestFetch time.Time
	Entries     int
	StaleCount  int
}
