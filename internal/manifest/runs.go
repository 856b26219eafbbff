package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCanceled  RunStatus = "canceled"
)

// Run is one generation invocation.
type Run struct {
	ID          string
	ScriptPath  string
	Title       string
	Quality     string
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      RunStatus
	FailedCount int
}

// Finished reports whether the run has a terminal status.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Elapsed is the run's wall-clock duration, or zero while running.
func (r Run) Elapsed() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunInput describes a run being started.
type RunInput struct {
	ScriptPath string
	Title      string
	Quality    string
}

const runColumns = "id, script_path, title, quality, started_at, finished_at, status, failed_count"

// BeginRun inserts a running run with a fresh id.
func (l *Ledger) BeginRun(ctx context.Context, in RunInput) (Run, error) {
	run := Run{
		ID:         uuid.NewString(),
		ScriptPath: in.ScriptPath,
		Title:      in.Title,
		Quality:    in.Quality,
		StartedAt:  l.now().UTC(),
		Status:     RunRunning,
	}
	_, err := l.execWithRetry(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, NULL, ?, 0)`,
		run.ID, run.ScriptPath, run.Title, run.Quality, formatTime(run.StartedAt), string(run.Status),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stamps the run's terminal status and failure count.
func (l *Ledger) FinishRun(ctx context.Context, id string, status RunStatus, failed int) error {
	res, err := l.execWithRetry(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, failed_count = ? WHERE id = ?`,
		formatTime(l.now()), string(status), failed, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: %w", ErrRunNotFound)
	}
	return nil
}

// ErrRunNotFound reports an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// GetRun fetches a run by id, or a run whose id starts with the given prefix
// when exactly one matches.
func (l *Ledger) GetRun(ctx context.Context, id string) (Run, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id LIKE ? || '%' LIMIT 2`, id)
	if err != nil {
		return Run{}, fmt.Errorf("get run by prefix: %w", err)
	}
	defer rows.Close()
	runs, err := scanRuns(rows)
	if err != nil {
		return Run{}, err
	}
	switch len(runs) {
	case 1:
		return runs[0], nil
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	default:
		return Run{}, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// RecentRuns lists the newest runs first.
func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		started  sql.NullString
		finished sql.NullString
		status   string
	)
	if err := row.Scan(&run.ID, &run.ScriptPath, &run.Title, &run.Quality, &started, &finished, &status, &run.FailedCount); err != nil {
		return Run{}, err
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.Status = RunStatus(status)
	return run, nil
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
