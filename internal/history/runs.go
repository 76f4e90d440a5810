package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SaveRun inserts or replaces a run. The creation time of an existing run
// is kept.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) error {
	now := s.now().UnixNano()
	created := now
	if !run.CreatedAt.IsZero() {
		created = run.CreatedAt.UnixNano()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, name, requester, args, status, attempts, error, created_ns, updated_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			requester = excluded.requester,
			args = excluded.args,
			status = excluded.status,
			attempts = excluded.attempts,
			error = excluded.error,
			updated_ns = excluded.updated_ns
	`, run.ID, run.Name, run.Requester, strings.Join(run.Args, " "), run.Status, run.Attempts, run.Error, created, now)
	if err != nil {
		return fmt.Errorf("failed to upsert run: %w", err)
	}
	return nil
}

// UpdateStatus moves a run to status. attempts < 0 leaves the count alone.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id, status string, attempts int, errText string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			status = ?,
			attempts = CASE WHEN ? < 0 THEN attempts ELSE ? END,
			error = ?,
			updated_ns = ?
		WHERE id = ?
	`, status, attempts, attempts, errText, s.now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// GetRun returns one run.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, requester, args, status, attempts, error, created_ns, updated_ns
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// Recent returns up to limit runs, most recently updated first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, requester, args, status, attempts, error, created_ns, updated_ns
		FROM runs
		ORDER BY updated_ns DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// AppendEntry adds a lifecycle step to a run.
func (s *SQLiteStore) AppendEntry(ctx context.Context, id, kind, detail string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_entries (run_id, kind, detail, at_ns) VALUES (?, ?, ?, ?)
	`, id, kind, detail, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to append entry to %s: %w", id, err)
	}
	return nil
}

// Entries returns a run's lifecycle steps in order.
func (s *SQLiteStore) Entries(ctx context.Context, id string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, detail, at_ns FROM run_entries WHERE run_id = ? ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at int64
		if err := rows.Scan(&e.Kind, &e.Detail, &at); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Timestamp = time.Unix(0, at)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var args string
	var created, updated int64
	if err := sc.Scan(&run.ID, &run.Name, &run.Requester, &args, &run.Status, &run.Attempts, &run.Error, &created, &updated); err != nil {
		return Run{}, err
	}
	run.Args = strings.Fields(args)
	run.CreatedAt = time.Unix(0, created)
	run.UpdatedAt = time.Unix(0, updated)
	return run, nil
}
