package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/kassist/kassist/internal/db"
)

// SessionOption customizes a test session.
type SessionOption func(*db.Session)

// ExecutionOption customizes a test execution.
type ExecutionOption func(*db.Execution)

// MakeSession creates and inserts a session into the DB.
func MakeSession(t *testing.T, database *db.DB, opts ...SessionOption) *db.Session {
	t.Helper()

	s := &db.Session{
		ID:       "sess-" + randHex(6),
		User:     "tester",
		Platform: "linux-amd64",
		Model:    "test-model",
	}
	for _, opt := range opts {
		opt(s)
	}
	RequireNoError(t, database.CreateSession(s), "create session")
	return s
}

// MakeExecution records an execution for session.
func MakeExecution(t *testing.T, database *db.DB, session *db.Session, opts ...ExecutionOption) *db.Execution {
	t.Helper()

	e := &db.Execution{
		SessionID: session.ID,
		Query:     "test query",
		Command:   "echo test",
		Output:    "test\n",
	}
	for _, opt := range opts {
		opt(e)
	}
	RequireNoError(t, database.RecordExecution(e), "record execution")
	return e
}

// WithUser sets the session user.
func WithUser(user string) SessionOption {
	return func(s *db.Session) { s.User = user }
}

// WithCommand sets the executed command.
func WithCommand(command string) ExecutionOption {
	return func(e *db.Execution) { e.Command = command }
}

// WithExitCode sets the execution exit code.
func WithExitCode(code int) ExecutionOption {
	return func(e *db.Execution) { e.ExitCode = code }
}

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
