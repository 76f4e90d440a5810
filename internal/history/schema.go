package history

import (
	"context"
)

// initSchema creates all required tables if they don't exist. Times are
// stored as Unix nanoseconds so ordering is exact.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		requester TEXT NOT NULL,
		args TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_ns INTEGER NOT NULL,
		updated_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_updated ON runs(updated_ns);

	CREATE TABLE IF NOT EXISTS run_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		at_ns INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_run_entries_run ON run_entries(run_id, id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
