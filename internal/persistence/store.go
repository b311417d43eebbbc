package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/aristath/tower/internal/quest"
	"github.com/aristath/tower/internal/transition"
	_ "modernc.org/sqlite"
)

// Store defines the persistence interface for the player profile.
type Store interface {
	// Checkpoint operations
	ReadCheckpoint(ctx context.Context) (transition.Checkpoint, error)
	WriteCheckpoint(ctx context.Context, cp transition.Checkpoint) error

	// Task-state operations
	SaveTasks(ctx context.Context, records []quest.Record) error
	LoadTasks(ctx context.Context) ([]quest.Record, error)

	// Lifecycle
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	retry RetryConfig
}

// memoryDBSeq gives each in-memory store its own shared-cache database.
var memoryDBSeq atomic.Int64

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode and busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	return open(ctx, connStr)
}

// NewMemoryStore creates an in-memory SQLite store for testing.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	connStr := fmt.Sprintf("file:tower-mem-%d?mode=memory&cache=shared", memoryDBSeq.Add(1))
	return open(ctx, connStr)
}

func open(ctx context.Context, connStr string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The profile is written by one transition at a time
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, retry: DefaultRetryConfig()}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
