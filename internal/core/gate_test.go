package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

// recordingAsker returns a fixed answer and counts calls.
type recordingAsker struct {
	answer  string
	err     error
	calls   int
	prompts []string
}

func (a *recordingAsker) Ask(_ context.Context, prompt string) (string, error) {
	a.calls++
	a.prompts = append(a.prompts, prompt)
	return a.answer, a.err
}

func TestAuthorizeDangerVetoIsAbsolute(t *testing.T) {
	gate := NewGate(nil)
	dangerous := []string{"rm -rf /", "dd if=/dev/zero of=/dev/sda", ":(){ :|:& };:", "mkfs.ext4 /dev/sdb1"}
	answers := []string{"y", "Y", " y ", "yes", ""}

	for _, cmd := range dangerous {
		for _, require := range []bool{true, false} {
			for _, answer := range answers {
				asker := &recordingAsker{answer: answer}
				decision, err := gate.Authorize(context.Background(), cmd, require, asker)
				if err != nil {
					t.Fatalf("Authorize(%q): unexpected error %v", cmd, err)
				}
				if decision.Allowed {
					t.Fatalf("Authorize(%q, require=%v, answer=%q) allowed a dangerous command", cmd, require, answer)
				}
				if !decision.BlockedByPattern || decision.Rule == nil {
					t.Fatalf("Authorize(%q) decision = %+v, want pattern block", cmd, decision)
				}
				if decision.Confirmed != nil {
					t.Fatalf("Authorize(%q) should not record a confirmation", cmd)
				}
				if asker.calls != 0 {
					t.Fatalf("Authorize(%q) prompted %d times, want 0", cmd, asker.calls)
				}
			}
		}
	}
}

func TestAuthorizeWithoutConfirmation(t *testing.T) {
	asker := &recordingAsker{answer: "n"}
	for _, cmd := range []string{"echo hi", "ls -la", "uname -a"} {
		decision, err := NewGate(nil).Authorize(context.Background(), cmd, false, asker)
		if err != nil {
			t.Fatalf("Authorize(%q): %v", cmd, err)
		}
		if !decision.Allowed {
			t.Errorf("Authorize(%q) denied, want allowed", cmd)
		}
	}
	if asker.calls != 0 {
		t.Errorf("ask invoked %d times, want 0", asker.calls)
	}
}

func TestAuthorizeConfirmationAnswers(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"y", true},
		{"Y", true},
		{" y ", true},
		{"Y ", true},
		{"y\n", true},
		{"yes", false},
		{"", false},
		{"n", false},
		{"N", false},
		{"yy", false},
		{"ok", false},
	}

	gate := NewGate(NewMatcher())
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%q", tc.answer), func(t *testing.T) {
			asker := &recordingAsker{answer: tc.answer}
			decision, err := gate.Authorize(context.Background(), "echo hi", true, asker)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if decision.Allowed != tc.want {
				t.Errorf("answer %q: allowed = %v, want %v", tc.answer, decision.Allowed, tc.want)
			}
			if decision.Confirmed == nil || *decision.Confirmed != tc.want {
				t.Errorf("answer %q: confirmed = %v, want %v", tc.answer, decision.Confirmed, tc.want)
			}
			if asker.calls != 1 {
				t.Fatalf("ask invoked %d times, want 1", asker.calls)
			}
			if !strings.Contains(asker.prompts[0], "echo hi") {
				t.Errorf("prompt %q does not show the command", asker.prompts[0])
			}
		})
	}
}

func TestAuthorizeAskFailures(t *testing.T) {
	gate := NewGate(nil)

	t.Run("nil asker denies", func(t *testing.T) {
		decision, err := gate.Authorize(context.Background(), "echo hi", true, nil)
		if err != nil || decision.Allowed {
			t.Fatalf("decision = %+v, err = %v; want denial without error", decision, err)
		}
	})

	t.Run("eof denies", func(t *testing.T) {
		decision, err := gate.Authorize(context.Background(), "echo hi", true, &recordingAsker{err: io.EOF})
		if err != nil || decision.Allowed {
			t.Fatalf("decision = %+v, err = %v; want denial without error", decision, err)
		}
	})

	t.Run("interrupt cancels", func(t *testing.T) {
		decision, err := gate.Authorize(context.Background(), "echo hi", true, &recordingAsker{err: ErrPromptCancelled})
		if !errors.Is(err, ErrPromptCancelled) {
			t.Fatalf("err = %v, want ErrPromptCancelled", err)
		}
		if decision.Allowed {
			t.Fatal("cancelled prompt must deny")
		}
	})

	t.Run("context cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		asker := AskFunc(func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})
		decision, err := gate.Authorize(ctx, "echo hi", true, asker)
		if !errors.Is(err, ErrPromptCancelled) {
			t.Fatalf("err = %v, want ErrPromptCancelled", err)
		}
		if decision.Allowed {
			t.Fatal("cancelled prompt must deny")
		}
	})
}

func TestSafetyDecisionReason(t *testing.T) {
	no := false
	tests := []struct {
		decision SafetyDecision
		want     string
	}{
		{SafetyDecision{BlockedByPattern: true, Rule: &Rule{Description: "fork bomb"}}, "matches danger rule: fork bomb"},
		{SafetyDecision{Confirmed: &no}, "not confirmed by user"},
		{SafetyDecision{Allowed: true}, "allowed"},
		{SafetyDecision{}, "denied"},
	}
	for _, tc := range tests {
		if got := tc.decision.Reason(); got != tc.want {
			t.Errorf("Reason() = %q, want %q", got, tc.want)
		}
	}
}
