package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/kassist/kassist/internal/db"
	"github.com/kassist/kassist/internal/testutil"
)

func TestCompleteSessionIDs_DatabaseNotFound(t *testing.T) {
	newEnv(t)
	resetFlags(t)

	got, directive := completeSessionIDs(historyCmd, nil, "")
	if len(got) != 0 {
		t.Errorf("expected no completions, got %v", got)
	}
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("directive = %v", directive)
	}
}

func TestCompleteSessionIDs_WithSessions(t *testing.T) {
	h := newEnv(t)
	resetFlags(t)
	database := testutil.NewTestDBAtPath(t, h.DBPath)

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	testutil.MakeSession(t, database, func(s *db.Session) {
		s.ID = "abc-111"
		s.StartedAt = start
	})
	testutil.MakeSession(t, database, func(s *db.Session) {
		s.ID = "abd-222"
		s.Model = ""
		s.StartedAt = start.Add(time.Hour)
	})
	testutil.MakeSession(t, database, func(s *db.Session) {
		s.ID = "xyz-333"
		s.StartedAt = start.Add(2 * time.Hour)
	})

	tests := []struct {
		prefix string
		want   []string
	}{
		{"", []string{"xyz-333", "abd-222", "abc-111"}},
		{"ab", []string{"abd-222", "abc-111"}},
		{"abc", []string{"abc-111"}},
		{"nope", nil},
	}
	for _, tt := range tests {
		t.Run("prefix="+tt.prefix, func(t *testing.T) {
			got, _ := completeSessionIDs(historyCmd, nil, tt.prefix)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want ids %v", got, tt.want)
			}
			for i, id := range tt.want {
				if !strings.HasPrefix(got[i], id+"\t") {
					t.Errorf("completion %d = %q, want id %s", i, got[i], id)
				}
			}
		})
	}

	got, _ := completeSessionIDs(historyCmd, nil, "abc")
	if !strings.Contains(got[0], "tester (test-model)") {
		t.Errorf("description = %q", got[0])
	}
	got, _ = completeSessionIDs(historyCmd, nil, "abd")
	if strings.Contains(got[0], "(") {
		t.Errorf("session without model should have no model in description: %q", got[0])
	}
}

func TestCompletionCommand(t *testing.T) {
	newEnv(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			stdout, _, err := executeCommand(t, "completion", shell)
			if err != nil {
				t.Fatalf("completion %s: %v", shell, err)
			}
			if !strings.Contains(stdout, "kassist") {
				t.Errorf("%s completion does not mention kassist", shell)
			}
		})
	}

	if _, _, err := executeCommand(t, "completion", "tcsh"); err == nil {
		t.Error("expected error for unsupported shell")
	}
}

func TestCompleteConfigKeys(t *testing.T) {
	got, _ := completeConfigKeys(configGetCmd, nil, "security.")
	if len(got) == 0 {
		t.Fatal("expected security keys")
	}
	for _, key := range got {
		if !strings.HasPrefix(key, "security.") {
			t.Errorf("unexpected key %q", key)
		}
	}
	if got, _ := completeConfigKeys(configGetCmd, []string{"api.model"}, ""); len(got) != 0 {
		t.Errorf("second argument should not complete keys, got %v", got)
	}
}
