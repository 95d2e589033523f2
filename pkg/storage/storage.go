package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS scan_runs (
  id            TEXT PRIMARY KEY,
  started_at    DATETIME NOT NULL,
  files         INTEGER NOT NULL DEFAULT 0,
  findings      INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS findings (
  id            INTEGER PRIMARY KEY,
  path          TEXT NOT NULL,
  lookup_key    TEXT NOT NULL,
  line          INTEGER NOT NULL,
  col           INTEGER NOT NULL,
  end_line      INTEGER NOT NULL,
  end_char      INTEGER NOT NULL,
  status        TEXT NOT NULL CHECK (status IN ('limited','newly')),
  label         TEXT,
  run_id        TEXT NOT NULL,
  first_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_seen_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(path, lookup_key, line, col)
);
CREATE INDEX IF NOT EXISTS idx_findings_path ON findings(path);
CREATE TABLE IF NOT EXISTS finding_changes (
  id            INTEGER PRIMARY KEY,
  occurred_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  run_id        TEXT NOT NULL,
  path          TEXT NOT NULL,
  lookup_key    TEXT NOT NULL,
  line          INTEGER NOT NULL,
  col           INTEGER NOT NULL,
  status        TEXT NOT NULL,
  label         TEXT,
  change_type   TEXT NOT NULL CHECK (change_type IN ('added','updated','removed'))
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON finding_changes(occurred_at);
CREATE INDEX IF NOT EXISTS idx_changes_path ON finding_changes(path, occurred_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// NewRun registers a scan run and returns it. Its ID tags every finding
// touched during the run.
func (d *DB) NewRun(ctx context.Context) (Run, error) {
	r := Run{ID: uuid.NewString(), StartedAt: time.Now().UTC().Truncate(time.Second)}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO scan_runs(id, started_at) VALUES(?, ?)`, r.ID, r.StartedAt.Format(timeLayout))
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

// FinishRun stores the totals of a run.
func (d *DB) FinishRun(ctx context.Context, r Run) error {
	res, err := d.sql.ExecContext(ctx, `UPDATE scan_runs SET files = ?, findings = ? WHERE id = ?`, r.Files, r.Findings, r.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("unknown run " + r.ID)
	}
	return nil
}

// UpsertFileFindings replaces the stored findings of one file with fs and
// returns what changed. Rows not touched by this run are swept and logged as
// removed; new rows are logged as added, and rows whose status or label
// changed as updated.
func (d *DB) UpsertFileFindings(ctx context.Context, runID, path string, fs []baseline.Finding) ([]Change, error) {
	now := time.Now().UTC()

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, "SELECT lookup_key, line, col, status, label FROM findings WHERE path = ?", path)
	if err != nil {
		return nil, err
	}

	type existing struct{ Status, Label string }
	existingMap := make(map[string]existing)
	for rows.Next() {
		var (
			key, status string
			line, char  int
			label       sql.NullString
		)
		if err = rows.Scan(&key, &line, &char, &status, &label); err != nil {
			rows.Close()
			return nil, err
		}
		existingMap[identityKey(key, line, char)] = existing{Status: status, Label: label.String}
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}

	var changes []Change
	logChange := func(f baseline.Finding, status, changeType string) error {
		_, cerr := tx.ExecContext(ctx, `INSERT INTO finding_changes(occurred_at, run_id, path, lookup_key, line, col, status, label, change_type) VALUES(?,?,?,?,?,?,?,?,?)`,
			now.Format(timeLayout), runID, path, f.Key, f.Range.Start.Line, f.Range.Start.Char, status, nullIfEmpty(f.Label), changeType)
		if cerr != nil {
			return cerr
		}
		changes = append(changes, Change{OccurredAt: now, RunID: runID, Path: path, Key: f.Key, Line: f.Range.Start.Line, Char: f.Range.Start.Char, Status: status, Label: f.Label, ChangeType: changeType})
		return nil
	}

	for _, f := range fs {
		if !f.Status.Valid() || f.Status == baseline.WidelyAvailable {
			continue
		}
		key := identityKey(f.Key, f.Range.Start.Line, f.Range.Start.Char)
		if key == "" {
			continue
		}
		status := f.Status.String()

		ex, existed := existingMap[key]
		switch {
		case !existed:
			_, err = tx.ExecContext(ctx, `INSERT INTO findings(path, lookup_key, line, col, end_line, end_char, status, label, run_id, first_seen_at, last_seen_at) VALUES(?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP,CURRENT_TIMESTAMP)`,
				path, f.Key, f.Range.Start.Line, f.Range.Start.Char, f.Range.End.Line, f.Range.End.Char, status, nullIfEmpty(f.Label), runID)
			if err != nil {
				return nil, err
			}
			if err = logChange(f, status, "added"); err != nil {
				return nil, err
			}
			existingMap[key] = existing{Status: status, Label: f.Label}
		case ex.Status != status || ex.Label != f.Label:
			_, err = tx.ExecContext(ctx, `UPDATE findings SET status = ?, label = ?, end_line = ?, end_char = ?, run_id = ?, last_seen_at = CURRENT_TIMESTAMP WHERE path = ? AND lookup_key = ? AND line = ? AND col = ?`,
				status, nullIfEmpty(f.Label), f.Range.End.Line, f.Range.End.Char, runID, path, f.Key, f.Range.Start.Line, f.Range.Start.Char)
			if err != nil {
				return nil, err
			}
			if err = logChange(f, status, "updated"); err != nil {
				return nil, err
			}
			existingMap[key] = existing{Status: status, Label: f.Label}
		default:
			_, err = tx.ExecContext(ctx, `UPDATE findings SET end_line = ?, end_char = ?, run_id = ?, last_seen_at = CURRENT_TIMESTAMP WHERE path = ? AND lookup_key = ? AND line = ? AND col = ?`,
				f.Range.End.Line, f.Range.End.Char, runID, path, f.Key, f.Range.Start.Line, f.Range.Start.Char)
			if err != nil {
				return nil, err
			}
		}
	}

	// Sweep: find and delete findings not touched in this run, log removals
	staleRows, err := tx.QueryContext(ctx, "SELECT lookup_key, line, col, status, label FROM findings WHERE path = ? AND run_id != ?", path, runID)
	if err != nil {
		return nil, err
	}
	type staleFinding struct {
		f      baseline.Finding
		status string
	}
	var toRemove []staleFinding
	for staleRows.Next() {
		var (
			s     staleFinding
			label sql.NullString
		)
		if err = staleRows.Scan(&s.f.Key, &s.f.Range.Start.Line, &s.f.Range.Start.Char, &s.status, &label); err != nil {
			staleRows.Close()
			return nil, err
		}
		s.f.Label = label.String
		toRemove = append(toRemove, s)
	}
	if err = staleRows.Close(); err != nil {
		return nil, err
	}

	if len(toRemove) > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM findings WHERE path = ? AND run_id != ?`, path, runID)
		if err != nil {
			return nil, err
		}
		for _, s := range toRemove {
			if err = logChange(s.f, s.status, "removed"); err != nil {
				return nil, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

// ListOptions controls selection when listing findings.
type ListOptions struct {
	PathFilter string
	Status     string
	Since      time.Time
}

// ListFindings returns current findings matching filters.
func (d *DB) ListFindings(ctx context.Context, opts ListOptions) ([]Finding, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	if opts.PathFilter != "" {
		where += " AND path LIKE ?"
		args = append(args, "%"+opts.PathFilter+"%")
	}
	if opts.Status != "" && opts.Status != "all" {
		where += " AND status = ?"
		args = append(args, opts.Status)
	}
	if !opts.Since.IsZero() {
		where += " AND last_seen_at >= ?"
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}

	q := "SELECT path, lookup_key, line, col, end_line, end_char, status, label, first_seen_at, last_seen_at FROM findings " + where + " ORDER BY path, line, col"
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Finding
	for rows.Next() {
		var (
			f             Finding
			label         sql.NullString
			first, lastAt string
		)
		if err := rows.Scan(&f.Path, &f.Key, &f.Line, &f.Char, &f.EndLine, &f.EndChar, &f.Status, &label, &first, &lastAt); err != nil {
			return nil, err
		}
		f.Label = label.String
		f.FirstSeenAt = parseTime(first)
		f.LastSeenAt = parseTime(lastAt)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRecentChanges returns the most recent N changes across all files.
func (d *DB) ListRecentChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT occurred_at, run_id, path, lookup_key, line, col, status, label, change_type FROM finding_changes ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var (
			c             Change
			occurredAtStr string
			label         sql.NullString
		)
		if err := rows.Scan(&occurredAtStr, &c.RunID, &c.Path, &c.Key, &c.Line, &c.Char, &c.Status, &label, &c.ChangeType); err != nil {
			return nil, err
		}
		c.OccurredAt = parseTime(occurredAtStr)
		c.Label = label.String
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

// ListRuns returns the most recent runs first.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.QueryContext(ctx, "SELECT id, started_at, files, findings FROM scan_runs ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			started string
		)
		if err := rows.Scan(&r.ID, &started, &r.Files, &r.Findings); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(started)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetStats counts current findings and distinct files per status.
func (d *DB) GetStats(ctx context.Context) ([]FileStats, error) {
	query := `
		SELECT
			status,
			COUNT(DISTINCT path),
			COUNT(*)
		FROM
			findings
		GROUP BY
			status
		ORDER BY
			status;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []FileStats
	for rows.Next() {
		var s FileStats
		if err := rows.Scan(&s.Status, &s.Files, &s.Findings); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// CountFiles returns the number of files with stored findings.
func (d *DB) CountFiles(ctx context.Context) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(DISTINCT path) FROM findings").Scan(&n)
	return n, err
}

// parseTime reads SQLite CURRENT_TIMESTAMP values, falling back to RFC3339.
func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
