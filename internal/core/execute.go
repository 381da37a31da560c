package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Execution errors.
var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrCommandTimeout = errors.New("command execution timed out")
	ErrCommandFailed  = errors.New("command failed")
)

const (
	// DefaultExecutionTimeout is the default timeout for command execution.
	DefaultExecutionTimeout = 45 * time.Second
	// DefaultMaxOutputBytes is the default capture limit for merged output.
	DefaultMaxOutputBytes = 5000
	// TruncationMarker is appended to output cut at the capture limit.
	TruncationMarker = "\n\n[OUTPUT TRUNCATED]"

	timeoutMessage      = "Command timed out"
	cancelledMessage    = "Command cancelled"
	emptyCommandMessage = "No command to execute"
	blockedMessage      = "Command blocked by safety system"
	declinedMessage     = "Command not confirmed by user"
)

// Runner runs a gated command and reports the outcome as data.
type Runner interface {
	Run(ctx context.Context, command string) *ExecutionResult
}

// ExecutionResult holds the result of one execution attempt.
type ExecutionResult struct {
	// Command is the command text as gated.
	Command string
	// Output is the merged stdout/stderr, possibly truncated.
	Output string
	// ExitCode is the command's exit code (1 for every non-process failure).
	ExitCode int
	// TimedOut indicates the command was killed at the deadline.
	TimedOut bool
	// Blocked indicates the gate refused the command; nothing was run.
	Blocked bool
	// Declined narrows Blocked: the user answered the confirmation with
	// anything but "y", as opposed to a danger-pattern veto.
	Declined bool
	// Error describes a failure that is not a plain non-zero exit.
	Error string
	// Duration is the execution duration.
	Duration time.Duration
}

// Success reports whether the command ran and exited zero.
func (r *ExecutionResult) Success() bool {
	return r != nil && !r.Blocked && !r.TimedOut && r.Error == "" && r.ExitCode == 0
}

// Err maps the result onto the error taxonomy. It returns nil on success.
func (r *ExecutionResult) Err() error {
	switch {
	case r == nil:
		return ErrCommandFailed
	case r.Blocked:
		return ErrCommandBlocked
	case r.TimedOut:
		return ErrCommandTimeout
	case r.Error != "":
		return fmt.Errorf("%w: %s", ErrCommandFailed, r.Error)
	case r.ExitCode != 0:
		return fmt.Errorf("%w: exit status %d", ErrCommandFailed, r.ExitCode)
	default:
		return nil
	}
}

// BlockedResult is the synthesized result for a command the gate refused.
func BlockedResult(command string) *ExecutionResult {
	return &ExecutionResult{
		Command:  command,
		Output:   blockedMessage,
		ExitCode: 1,
		Blocked:  true,
	}
}

// DeclinedResult is the synthesized result for a command the user did not
// confirm. It counts as blocked.
func DeclinedResult(command string) *ExecutionResult {
	res := BlockedResult(command)
	res.Output = declinedMessage
	res.Declined = true
	return res
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// Timeout bounds one command (default 45s).
	Timeout time.Duration
	// MaxOutputBytes caps the captured output (default 5000).
	MaxOutputBytes int
	// Shell overrides the platform command interpreter.
	Shell string
	// Dir is the working directory for commands.
	Dir string
}

// Executor runs commands in a shell subprocess under time and output bounds.
type Executor struct {
	opts ExecutorOptions
}

// NewExecutor creates a new executor. Zero option values take the defaults.
func NewExecutor(opts ExecutorOptions) *Executor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultExecutionTimeout
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = DefaultMaxOutputBytes
	}
	return &Executor{opts: opts}
}

// Options returns the effective options.
func (e *Executor) Options() ExecutorOptions {
	return e.opts
}

// Run executes command and never returns an error or panics: every failure
// mode is encoded in the result.
func (e *Executor) Run(ctx context.Context, command string) (result *ExecutionResult) {
	startTime := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = &ExecutionResult{
				Command:  command,
				Output:   fmt.Sprintf("Execution error: %v", r),
				ExitCode: 1,
				Error:    fmt.Sprintf("Execution error: %v", r),
				Duration: time.Since(startTime),
			}
		}
	}()

	execCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	cmdResult, err := RunCommand(execCtx, CommandSpec{
		Raw:   command,
		Shell: e.opts.Shell,
		Dir:   e.opts.Dir,
	}, e.opts.MaxOutputBytes)

	switch {
	case errors.Is(err, ErrEmptyCommand):
		return &ExecutionResult{
			Command:  command,
			Output:   emptyCommandMessage,
			ExitCode: 1,
			Error:    emptyCommandMessage,
		}

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		// The partial output is capped at the limit and the status line is
		// shorter than the truncation marker, so the output bound still holds.
		timedOut := errors.Is(err, context.DeadlineExceeded)
		msg := cancelledMessage
		if timedOut {
			msg = timeoutMessage
		}
		output := msg
		if cmdResult != nil && cmdResult.Output != "" {
			output = cmdResult.Output + "\n" + msg
		}
		return &ExecutionResult{
			Command:  command,
			Output:   output,
			ExitCode: 1,
			TimedOut: timedOut,
			Error:    msg,
			Duration: time.Since(startTime),
		}

	case err != nil:
		msg := fmt.Sprintf("Execution error: %v", err)
		return &ExecutionResult{
			Command:  command,
			Output:   msg,
			ExitCode: 1,
			Error:    msg,
			Duration: time.Since(startTime),
		}
	}

	output := cmdResult.Output
	if cmdResult.Truncated {
		output += TruncationMarker
	}
	return &ExecutionResult{
		Command:  command,
		Output:   output,
		ExitCode: cmdResult.ExitCode,
		Duration: cmdResult.Duration,
	}
}
