// Package store keeps a SQLite history of recorded runs so reports can be
// listed, inspected and exported after the command that produced them exits.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrRunNotFound is returned when no run matches the requested id.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousRunID is returned when an id prefix matches more than one run.
var ErrAmbiguousRunID = errors.New("ambiguous run id")

// Run is one recorded command invocation and its report.
type Run struct {
	ID        string    `json:"id" yaml:"id"`
	Command   string    `json:"command" yaml:"command"`
	Source    string    `json:"source,omitempty" yaml:"source,omitempty"`
	Objective string    `json:"objective,omitempty" yaml:"objective,omitempty"`
	Summary   string    `json:"summary" yaml:"summary"`
	TaskCount int       `json:"task_count" yaml:"task_count"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Report is the JSON encoding of the command's report
	Report string `json:"-" yaml:"-"`

	Tasks []TaskRecord `json:"tasks,omitempty" yaml:"tasks,omitempty"`
}

// TaskRecord is where a task landed in a recorded run. Batch is the batch or
// layer index, -1 when the run placed no tasks.
type TaskRecord struct {
	TaskID      string  `json:"task_id" yaml:"task_id"`
	Batch       int     `json:"batch" yaml:"batch"`
	Agent       string  `json:"agent,omitempty" yaml:"agent,omitempty"`
	StartMinute float64 `json:"start_minute" yaml:"start_minute"`
	EndMinute   float64 `json:"end_minute" yaml:"end_minute"`
	Critical    bool    `json:"critical,omitempty" yaml:"critical,omitempty"`
}

// ListOptions filters ListRuns. A zero Limit returns every run.
type ListOptions struct {
	Command string
	Limit   int
}

// Store manages the SQLite database of recorded runs
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the database at dbPath and applies
// pending migrations. ":memory:" opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps per-connection pragmas and in-memory
	// databases consistent across calls
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun inserts run and its task records. A missing ID is filled with a
// new UUID and a zero CreatedAt with the current time.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.Command == "" {
		return errors.New("run command is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC()
	if run.Report == "" {
		run.Report = "{}"
	}
	if run.TaskCount == 0 {
		run.TaskCount = len(run.Tasks)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, command, source, objective, summary, task_count, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.Source, run.Objective, run.Summary, run.TaskCount, run.Report, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, rec := range run.Tasks {
		_, err := tx.ExecContext(ctx, `INSERT INTO run_tasks
			(run_id, task_id, batch, agent, start_minute, end_minute, critical)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, rec.TaskID, rec.Batch, rec.Agent, rec.StartMinute, rec.EndMinute, rec.Critical)
		if err != nil {
			return fmt.Errorf("insert task %s: %w", rec.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// GetRun returns the run whose id equals or starts with id, including its
// report and task records.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, command, source, objective, summary, task_count, report, created_at
		FROM runs
		WHERE id = ? OR id LIKE ? || '%'
		ORDER BY id = ? DESC
		LIMIT 2`, id, id, id)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	rows.Close()

	switch {
	case len(runs) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(runs) > 1 && runs[0].ID != id:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRunID, id)
	}

	run := runs[0]
	tasks, err := s.taskRecords(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Tasks = tasks
	return run, nil
}

// ListRuns returns runs newest first. Task records are not loaded.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]*Run, error) {
	query := `SELECT id, command, source, objective, summary, task_count, report, created_at FROM runs`
	var args []interface{}
	if opts.Command != "" {
		query += ` WHERE command = ?`
		args = append(args, opts.Command)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// DeleteRunsBefore removes runs recorded before cutoff and returns how many
// were deleted.
func (s *Store) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete runs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (s *Store) taskRecords(ctx context.Context, runID string) ([]TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT task_id, batch, agent, start_minute, end_minute, critical
		FROM run_tasks
		WHERE run_id = ?
		ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run tasks: %w", err)
	}
	defer rows.Close()

	var records []TaskRecord
	for rows.Next() {
		var rec TaskRecord
		var batch sql.NullInt64
		var agent sql.NullString
		var start, end sql.NullFloat64
		if err := rows.Scan(&rec.TaskID, &batch, &agent, &start, &end, &rec.Critical); err != nil {
			return nil, fmt.Errorf("scan run task: %w", err)
		}
		rec.Batch = -1
		if batch.Valid {
			rec.Batch = int(batch.Int64)
		}
		rec.Agent = agent.String
		rec.StartMinute = start.Float64
		rec.EndMinute = end.Float64
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run tasks: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var source, objective, summary sql.NullString
	var taskCount sql.NullInt64
	if err := row.Scan(&run.ID, &run.Command, &source, &objective, &summary, &taskCount, &run.Report, &run.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan run row: %w", err)
	}
	run.Source = source.String
	run.Objective = objective.String
	run.Summary = summary.String
	run.TaskCount = int(taskCount.Int64)
	return run, nil
}
