//go:build !windows

package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExecutorRunSuccess(t *testing.T) {
	e := NewExecutor(ExecutorOptions{Timeout: 5 * time.Second, MaxOutputBytes: 1000})
	res := e.Run(context.Background(), "echo hi")

	if res.Output != "hi\n" {
		t.Errorf("Output = %q, want %q", res.Output, "hi\n")
	}
	if res.ExitCode != 0 || res.TimedOut || res.Error != "" {
		t.Errorf("result = %+v, want clean exit", res)
	}
	if !res.Success() || res.Err() != nil {
		t.Errorf("Success() = %v, Err() = %v", res.Success(), res.Err())
	}
	if res.Command != "echo hi" {
		t.Errorf("Command = %q", res.Command)
	}
}

func TestExecutorRunExitCode(t *testing.T) {
	e := NewExecutor(ExecutorOptions{Timeout: 5 * time.Second})
	res := e.Run(context.Background(), "echo oops >&2; exit 3")

	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.Output, "oops") {
		t.Errorf("Output = %q, want stderr merged in", res.Output)
	}
	if !errors.Is(res.Err(), ErrCommandFailed) {
		t.Errorf("Err() = %v, want ErrCommandFailed", res.Err())
	}
}

func TestExecutorMergesStreamsInOrder(t *testing.T) {
	e := NewExecutor(ExecutorOptions{Timeout: 5 * time.Second})
	res := e.Run(context.Background(), "echo one; echo two >&2; echo three")

	if res.Output != "one\ntwo\nthree\n" {
		t.Errorf("Output = %q, want interleaved stdout/stderr", res.Output)
	}
}

func TestExecutorEmptyCommand(t *testing.T) {
	e := NewExecutor(ExecutorOptions{})
	for _, cmd := range []string{"", "   ", "\n\t"} {
		res := e.Run(context.Background(), cmd)
		if res.ExitCode != 1 {
			t.Errorf("Run(%q).ExitCode = %d, want 1", cmd, res.ExitCode)
		}
		if res.Output != emptyCommandMessage {
			t.Errorf("Run(%q).Output = %q", cmd, res.Output)
		}
		if res.Duration != 0 {
			t.Errorf("Run(%q) should not spawn anything", cmd)
		}
	}
}

func TestExecutorTimeout(t *testing.T) {
	e := NewExecutor(ExecutorOptions{Timeout: 200 * time.Millisecond})
	start := time.Now()
	res := e.Run(context.Background(), "echo started; sleep 10")
	elapsed := time.Since(start)

	if !res.TimedOut {
		t.Fatalf("TimedOut = false, result = %+v", res)
	}
	if res.ExitCode == 0 {
		t.Error("timed out command must not report exit 0")
	}
	if !strings.HasSuffix(res.Output, timeoutMessage) {
		t.Errorf("Output = %q, want suffix %q", res.Output, timeoutMessage)
	}
	if !errors.Is(res.Err(), ErrCommandTimeout) {
		t.Errorf("Err() = %v, want ErrCommandTimeout", res.Err())
	}
	if elapsed > 5*time.Second {
		t.Errorf("Run took %v, the process group was not killed", elapsed)
	}
}

func TestExecutorSpawnFailure(t *testing.T) {
	e := NewExecutor(ExecutorOptions{Timeout: 5 * time.Second, Shell: "/nonexistent/shell"})
	res := e.Run(context.Background(), "echo hi")

	if res.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", res.ExitCode)
	}
	if !strings.HasPrefix(res.Error, "Execution error:") {
		t.Errorf("Error = %q, want Execution error prefix", res.Error)
	}
}

func TestExecutorTruncation(t *testing.T) {
	const max = 10

	tests := []struct {
		name       string
		command    string
		wantOutput string
	}{
		{"under limit", "printf 12345", "12345"},
		{"exactly at limit", "printf 1234567890", "1234567890"},
		{"over limit", "printf 1234567890abc", "1234567890" + TruncationMarker},
	}

	e := NewExecutor(ExecutorOptions{Timeout: 5 * time.Second, MaxOutputBytes: max})
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := e.Run(context.Background(), tc.command)
			if res.Output != tc.wantOutput {
				t.Errorf("Output = %q, want %q", res.Output, tc.wantOutput)
			}
			if len(res.Output) > max+len(TruncationMarker) {
				t.Errorf("len(Output) = %d exceeds bound", len(res.Output))
			}
		})
	}
}

func TestExecutorLargeOutputBound(t *testing.T) {
	e := NewExecutor(ExecutorOptions{Timeout: 10 * time.Second, MaxOutputBytes: 100})
	res := e.Run(context.Background(), "yes | head -n 100000")

	if len(res.Output) != 100+len(TruncationMarker) {
		t.Errorf("len(Output) = %d, want %d", len(res.Output), 100+len(TruncationMarker))
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
}

func TestBlockedResult(t *testing.T) {
	res := BlockedResult("rm -rf /")
	if !res.Blocked || res.ExitCode != 1 || res.Success() {
		t.Errorf("BlockedResult = %+v", res)
	}
	if !errors.Is(res.Err(), ErrCommandBlocked) {
		t.Errorf("Err() = %v, want ErrCommandBlocked", res.Err())
	}
}

func TestDeclinedResult(t *testing.T) {
	res := DeclinedResult("ls")
	if !res.Blocked || !res.Declined || res.Output != declinedMessage {
		t.Errorf("DeclinedResult = %+v", res)
	}
	if !errors.Is(res.Err(), ErrCommandBlocked) {
		t.Errorf("Err() = %v, want ErrCommandBlocked", res.Err())
	}
	if BlockedResult("ls").Declined {
		t.Error("a pattern veto is not a decline")
	}
}

func TestExecutorBackgroundJobKeepsResult(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		wantExit int
		wantOut  string
	}{
		{"clean exit", "sleep 4 & echo hi", 0, "hi\n"},
		{"failing exit", "sleep 4 & echo bye; exit 4", 4, "bye\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := NewExecutor(ExecutorOptions{Timeout: 10 * time.Second, MaxOutputBytes: 1000})
			res := e.Run(context.Background(), tc.command)

			if res.ExitCode != tc.wantExit || res.Error != "" || res.TimedOut {
				t.Errorf("result = %+v, want exit %d with no error", res, tc.wantExit)
			}
			if res.Output != tc.wantOut {
				t.Errorf("Output = %q, want %q", res.Output, tc.wantOut)
			}
		})
	}
}

func TestExecutorCancellation(t *testing.T) {
	e := NewExecutor(ExecutorOptions{Timeout: 10 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	res := e.Run(ctx, "echo started; sleep 5")

	if res.TimedOut {
		t.Error("a cancelled command is not a timeout")
	}
	if res.ExitCode != 1 || res.Error != cancelledMessage {
		t.Errorf("result = %+v", res)
	}
	if !strings.HasPrefix(res.Output, "started") || !strings.HasSuffix(res.Output, cancelledMessage) {
		t.Errorf("Output = %q, want partial output then %q", res.Output, cancelledMessage)
	}
	if strings.Contains(res.Output, timeoutMessage) {
		t.Errorf("Output = %q mentions a timeout", res.Output)
	}
}

func TestShellCommand(t *testing.T) {
	shell, args := shellCommand("")
	if shell != "/bin/sh" || len(args) != 1 || args[0] != "-c" {
		t.Errorf("default shell = %s %v", shell, args)
	}
	shell, args = shellCommand("/bin/bash")
	if shell != "/bin/bash" || args[0] != "-c" {
		t.Errorf("bash = %s %v", shell, args)
	}
	_, args = shellCommand(`C:\Windows\System32\cmd.exe`)
	if args[0] != "/C" {
		t.Errorf("cmd.exe args = %v, want /C", args)
	}
}
