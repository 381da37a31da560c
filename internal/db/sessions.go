package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSessionExists is returned when a session id is already recorded.
var ErrSessionExists = errors.New("session already exists")

// ErrSessionNotFound is returned when a session is not found.
var ErrSessionNotFound = errors.New("session not found")

// Session is one interactive run as stored in history.
type Session struct {
	ID        string    `json:"id" yaml:"id"`
	User      string    `json:"user" yaml:"user"`
	Platform  string    `json:"platform" yaml:"platform"`
	Model     string    `json:"model" yaml:"model"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
}

// CreateSession inserts a session. A missing ID gets a fresh UUID and a
// zero StartedAt is set to now.
func (db *DB) CreateSession(s *Session) error {
	if s.User == "" {
		return fmt.Errorf("user is required")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	s.StartedAt = s.StartedAt.UTC()

	_, err := db.Exec(`
		INSERT INTO sessions (id, user, platform, model, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, s.User, s.Platform, s.Model, formatTime(s.StartedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSessionExists
		}
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.QueryRow(`
		SELECT id, user, platform, model, started_at FROM sessions WHERE id = ?
	`, id)

	s := &Session{}
	var startedAt string
	if err := row.Scan(&s.ID, &s.User, &s.Platform, &s.Model, &startedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	t, err := parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	s.StartedAt = t
	return s, nil
}

// ListSessions returns sessions newest first. limit <= 0 means no limit.
func (db *DB) ListSessions(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT id, user, platform, model, started_at FROM sessions
		ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s := &Session{}
		var startedAt string
		if err := rows.Scan(&s.ID, &s.User, &s.Platform, &s.Model, &startedAt); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		if s.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}
