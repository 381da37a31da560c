package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kassist/kassist/internal/db"
	"github.com/kassist/kassist/internal/testutil"
)

func TestHistoryCommand_NoDatabase(t *testing.T) {
	newEnv(t)

	stdout, stderr, err := executeCommand(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if stdout != "" || !strings.Contains(stderr, "No history recorded yet.") {
		t.Errorf("stdout = %q, stderr = %q", stdout, stderr)
	}

	stdout, _, err = executeCommand(t, "history", "-j")
	if err != nil {
		t.Fatalf("history -j: %v", err)
	}
	if strings.TrimSpace(stdout) != "[]" {
		t.Errorf("expected an empty JSON list, got %q", stdout)
	}
}

func seedHistory(t *testing.T, h *testutil.Harness) (*db.Session, *db.Session) {
	t.Helper()
	database := testutil.NewTestDBAtPath(t, h.DBPath)
	first := testutil.MakeSession(t, database)
	second := testutil.MakeSession(t, database)

	testutil.MakeExecution(t, database, first, testutil.WithCommand("nmap -sV 10.0.0.1"))
	testutil.MakeExecution(t, database, first, testutil.WithCommand("ls /missing"), testutil.WithExitCode(2))
	denied := false
	testutil.MakeExecution(t, database, second, testutil.WithCommand("rm -rf /"), func(e *db.Execution) {
		e.Blocked = true
		e.ExitCode = 1
		e.Output = ""
	})
	testutil.MakeExecution(t, database, second, testutil.WithCommand("reboot"), func(e *db.Execution) {
		e.Blocked = true
		e.Confirmed = &denied
	})
	return first, second
}

func TestHistoryCommand_Table(t *testing.T) {
	h := newEnv(t)
	seedHistory(t, h)

	stdout, _, err := executeCommand(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, want := range []string{"STATUS", "nmap -sV 10.0.0.1", "exit 2", "blocked", "declined"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in:\n%s", want, stdout)
		}
	}
	// Newest first.
	if strings.Index(stdout, "reboot") > strings.Index(stdout, "nmap") {
		t.Errorf("expected newest first:\n%s", stdout)
	}
}

func TestHistoryCommand_Filters(t *testing.T) {
	h := newEnv(t)
	first, second := seedHistory(t, h)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"query", []string{"-q", "NMAP"}, []string{"nmap -sV 10.0.0.1"}},
		{"session", []string{"--session", second.ID}, []string{"reboot", "rm -rf /"}},
		{"session and query", []string{"--session", first.ID, "-q", "ls"}, []string{"ls /missing"}},
		{"limit", []string{"--limit", "1"}, []string{"reboot"}},
		{"no match", []string{"-q", "zzz"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"history", "-j"}, tt.args...)
			stdout, _, err := executeCommand(t, args...)
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			var got []db.Execution
			if err := json.Unmarshal([]byte(stdout), &got); err != nil {
				t.Fatalf("parse JSON: %v\n%s", err, stdout)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d rows, want %d:\n%s", len(got), len(tt.want), stdout)
			}
			for i, cmd := range tt.want {
				if got[i].Command != cmd {
					t.Errorf("row %d = %q, want %q", i, got[i].Command, cmd)
				}
			}
		})
	}
}

func TestHistorySessionsCommand(t *testing.T) {
	h := newEnv(t)
	first, second := seedHistory(t, h)

	stdout, _, err := executeCommand(t, "history", "sessions")
	if err != nil {
		t.Fatalf("history sessions: %v", err)
	}
	for _, want := range []string{"STARTED", first.ID, second.ID, "test-model"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in:\n%s", want, stdout)
		}
	}
}

func TestHistoryCommand_DBFlag(t *testing.T) {
	h := newEnv(t)
	other := filepath.Join(h.HomeDir, "other.db")
	database := testutil.NewTestDBAtPath(t, other)
	testutil.MakeExecution(t, database, testutil.MakeSession(t, database), testutil.WithCommand("whoami"))

	stdout, _, err := executeCommand(t, "history", "--db", other)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(stdout, "whoami") {
		t.Errorf("expected the --db database to be read:\n%s", stdout)
	}
}

func TestExecutionStatus(t *testing.T) {
	no, yes := false, true
	tests := []struct {
		e    db.Execution
		want string
	}{
		{db.Execution{ExitCode: 0}, "exit 0"},
		{db.Execution{ExitCode: 127}, "exit 127"},
		{db.Execution{TimedOut: true, ExitCode: 1}, "timeout"},
		{db.Execution{Blocked: true}, "blocked"},
		{db.Execution{Blocked: true, Confirmed: &no}, "declined"},
		{db.Execution{ExitCode: 0, Confirmed: &yes}, "exit 0"},
	}
	for _, tt := range tests {
		if got := executionStatus(&tt.e); got != tt.want {
			t.Errorf("executionStatus(%+v) = %q, want %q", tt.e, got, tt.want)
		}
	}
}
