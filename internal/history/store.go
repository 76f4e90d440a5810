// Package history keeps a journal of task outcomes for the history command
// and the dashboard. It never feeds back into scheduling: the queue itself
// is not persisted.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one task as seen by the journal.
type Run struct {
	ID        string
	Name      string
	Requester string
	Args      []string
	Status    string // pending, running, preempted, completed, failed, cancelled
	Attempts  int
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry is one lifecycle step of a run.
type Entry struct {
	Kind      string // event type, e.g. "task.preempted"
	Detail    string
	Timestamp time.Time
}

// Store defines the journal operations.
type Store interface {
	SaveRun(ctx context.Context, run Run) error
	UpdateStatus(ctx context.Context, id, status string, attempts int, errText string) error
	GetRun(ctx context.Context, id string) (Run, error)
	Recent(ctx context.Context, limit int) ([]Run, error)

	AppendEntry(ctx context.Context, id, kind, detail string) error
	Entries(ctx context.Context, id string) ([]Entry, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a journal at dbPath, creating parent directories.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	return open(ctx, connStr)
}

// NewMemoryStore creates an in-memory journal. Each call gets its own
// database; the shared cache only spans this store's connections.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	connStr := fmt.Sprintf("file:history-%s?mode=memory&cache=shared", uuid.NewString())
	return open(ctx, connStr)
}

func open(ctx context.Context, connStr string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db, now: time.Now}
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
