package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// waitDelay bounds how long Wait keeps reading pipes held open by
// grandchildren after the shell itself has exited or been killed.
const waitDelay = 2 * time.Second

// CommandSpec describes one shell invocation.
type CommandSpec struct {
	// Raw is the command text handed to the shell.
	Raw string
	// Shell is the interpreter; empty selects the platform default.
	Shell string
	// Dir is the working directory; empty inherits the caller's.
	Dir string
}

// CommandResult holds the result of running a command.
type CommandResult struct {
	// ExitCode is the command's exit code.
	ExitCode int
	// Output is the merged stdout/stderr, capped at the capture limit.
	Output string
	// TotalBytes is how many bytes the command wrote before capping.
	TotalBytes int64
	// Truncated is set when TotalBytes exceeded the capture limit.
	Truncated bool
	// Duration is the execution time.
	Duration time.Duration
}

// cappedBuffer keeps the first limit bytes written to it and counts the rest.
// A limit <= 0 keeps everything.
type cappedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
	total int64
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total += int64(len(p))
	if b.limit <= 0 {
		b.buf.Write(p)
		return len(p), nil
	}
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) snapshot() (string, int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String(), b.total
}

// shellCommand returns the interpreter and its "run this string" flag.
func shellCommand(shell string) (string, []string) {
	if shell == "" {
		return defaultShell()
	}
	base := strings.ToLower(shell)
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if base == "cmd" || base == "cmd.exe" {
		return shell, []string{"/C"}
	}
	return shell, []string{"-c"}
}

// RunCommand runs spec.Raw through the shell, capturing merged output up to
// maxOutput bytes. The command inherits the caller's environment.
//
// On timeout or cancellation the partial result is returned together with the
// context error. Any other start/wait failure is returned as a wrapped error.
func RunCommand(ctx context.Context, spec CommandSpec, maxOutput int) (*CommandResult, error) {
	if strings.TrimSpace(spec.Raw) == "" {
		return nil, ErrEmptyCommand
	}

	startTime := time.Now()

	shell, flags := shellCommand(spec.Shell)
	args := append(append([]string{}, flags...), spec.Raw)
	cmd := exec.CommandContext(ctx, shell, args...)
	configureProcess(cmd)
	cmd.WaitDelay = waitDelay

	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	cmd.Env = os.Environ()

	// One writer for both streams: exec then shares a single pipe, so the
	// bytes arrive in the order the process emitted them.
	capture := &cappedBuffer{limit: maxOutput}
	cmd.Stdout = capture
	cmd.Stderr = capture

	err := cmd.Run()

	output, total := capture.snapshot()
	result := &CommandResult{
		Output:     output,
		TotalBytes: total,
		Truncated:  maxOutput > 0 && total > int64(maxOutput),
		Duration:   time.Since(startTime),
	}

	if err == nil {
		return result, nil
	}

	// Check the context first: a killed process also reports an ExitError.
	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = 1
		return result, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode < 0 {
			// Terminated by a signal.
			result.ExitCode = 1
		}
		return result, nil
	}

	// The shell exited cleanly but a background job kept the pipe open past
	// waitDelay; the run itself completed.
	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
		return result, nil
	}

	return nil, fmt.Errorf("running command: %w", err)
}
