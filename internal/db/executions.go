package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrExecutionNotFound is returned when an execution is not found.
var ErrExecutionNotFound = errors.New("execution not found")

// Execution is one command the assistant ran, or refused to run.
type Execution struct {
	ID        int64         `json:"id" yaml:"id"`
	SessionID string        `json:"session_id" yaml:"session_id"`
	Query     string        `json:"query" yaml:"query"`
	Command   string        `json:"command" yaml:"command"`
	Output    string        `json:"output" yaml:"output"`
	ExitCode  int           `json:"exit_code" yaml:"exit_code"`
	TimedOut  bool          `json:"timed_out" yaml:"timed_out"`
	Blocked   bool          `json:"blocked" yaml:"blocked"`
	Confirmed *bool         `json:"confirmed,omitempty" yaml:"confirmed,omitempty"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
}

// ListOptions filters ListExecutions.
type ListOptions struct {
	SessionID string
	// Query matches a substring of the command or the user's query.
	Query string
	// Limit <= 0 means no limit.
	Limit int
}

const executionColumns = `id, session_id, query, command, output, exit_code, timed_out, blocked, confirmed, duration_ms, created_at`

// RecordExecution inserts e and sets its ID. The session must exist.
func (db *DB) RecordExecution(e *Execution) error {
	if e.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if strings.TrimSpace(e.Command) == "" {
		return fmt.Errorf("command is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	var confirmed sql.NullBool
	if e.Confirmed != nil {
		confirmed = sql.NullBool{Bool: *e.Confirmed, Valid: true}
	}

	result, err := db.Exec(`
		INSERT INTO executions (session_id, query, command, output, exit_code, timed_out, blocked, confirmed, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.SessionID, e.Query, e.Command, e.Output, e.ExitCode, e.TimedOut, e.Blocked, confirmed,
		e.Duration.Milliseconds(), formatTime(e.CreatedAt))
	if err != nil {
		if strings.Contains(strings.ToUpper(err.Error()), "FOREIGN KEY") {
			return fmt.Errorf("recording execution: %w", ErrSessionNotFound)
		}
		return fmt.Errorf("recording execution: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting execution id: %w", err)
	}
	e.ID = id
	return nil
}

// GetExecution retrieves an execution by ID.
func (db *DB) GetExecution(id int64) (*Execution, error) {
	row := db.QueryRow(`SELECT `+executionColumns+` FROM executions WHERE id = ?`, id)
	e, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrExecutionNotFound
	}
	return e, err
}

// ListExecutions returns matching executions, most recent first.
func (db *DB) ListExecutions(opts ListOptions) ([]*Execution, error) {
	var (
		where []string
		args  []any
	)
	if opts.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, opts.SessionID)
	}
	if opts.Query != "" {
		where = append(where, "(instr(lower(command), lower(?)) > 0 OR instr(lower(query), lower(?)) > 0)")
		args = append(args, opts.Query, opts.Query)
	}

	q := `SELECT ` + executionColumns + ` FROM executions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var out []*Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (*Execution, error) {
	e := &Execution{}
	var (
		confirmed  sql.NullBool
		durationMS int64
		createdAt  string
	)
	err := row.Scan(&e.ID, &e.SessionID, &e.Query, &e.Command, &e.Output, &e.ExitCode,
		&e.TimedOut, &e.Blocked, &confirmed, &durationMS, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning execution: %w", err)
	}
	if confirmed.Valid {
		v := confirmed.Bool
		e.Confirmed = &v
	}
	e.Duration = time.Duration(durationMS) * time.Millisecond
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return e, nil
}
