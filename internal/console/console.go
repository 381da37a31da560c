// Package console is the interactive terminal: line input for the
// conversation and the cancellable y/N confirmation prompt.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/kassist/kassist/internal/core"
)

// ErrInterrupted is returned by ReadLine when the user presses Ctrl-C.
var ErrInterrupted = errors.New("input interrupted")

// Interactive is the console surface the REPL drives.
type Interactive interface {
	core.Asker
	// ReadLine shows prompt and returns one line without the newline.
	// io.EOF means the input is closed.
	ReadLine(ctx context.Context, prompt string) (string, error)
	// Writer is where replies are printed.
	Writer() io.Writer
	Close() error
}

// Options configures a readline console.
type Options struct {
	HistoryFile string
	Stdin       io.ReadCloser
	Stdout      io.Writer
	Stderr      io.Writer
	// NoTerminal stubs out raw-mode handling for piped input and tests.
	NoTerminal bool
}

// Console is a readline-backed Interactive with history and Ctrl-C handling.
type Console struct {
	mu sync.Mutex
	rl *readline.Instance
}

// New creates a readline console.
func New(opts Options) (*Console, error) {
	cfg := &readline.Config{
		HistoryFile:       opts.HistoryFile,
		HistoryLimit:      500,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             opts.Stdin,
		Stdout:            opts.Stdout,
		Stderr:            opts.Stderr,
	}
	if opts.NoTerminal {
		cfg.FuncIsTerminal = func() bool { return false }
		cfg.FuncGetWidth = func() int { return 80 }
		cfg.FuncMakeRaw = func() error { return nil }
		cfg.FuncExitRaw = func() error { return nil }
		cfg.FuncOnWidthChanged = func(func()) {}
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating console: %w", err)
	}
	return &Console{rl: rl}, nil
}

// ReadLine reads one conversation line.
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readLocked(ctx, prompt)
}

// Ask shows prompt and returns the answer. Ctrl-C cancels with
// core.ErrPromptCancelled; the conversation is left untouched by the caller.
func (c *Console) Ask(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	answer, err := c.readLocked(ctx, prompt)
	if errors.Is(err, ErrInterrupted) {
		return "", core.ErrPromptCancelled
	}
	return answer, err
}

// readLocked prints all but the last prompt line, then reads with the last
// line as the readline prompt.
func (c *Console) readLocked(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if i := strings.LastIndex(prompt, "\n"); i >= 0 {
		fmt.Fprintln(c.rl.Stdout(), prompt[:i])
		prompt = prompt[i+1:]
	}
	c.rl.SetPrompt(prompt)

	line, err := c.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", ErrInterrupted
	}
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return line, nil
}

// Writer returns a writer that does not corrupt the input line.
func (c *Console) Writer() io.Writer {
	return c.rl.Stdout()
}

// Close restores the terminal.
func (c *Console) Close() error {
	return c.rl.Close()
}

// Open picks a readline console when stdin is a terminal and a plain line
// console otherwise.
func Open(historyFile string) (Interactive, error) {
	if !IsTerminal(os.Stdin) {
		return NewLineConsole(os.Stdin, os.Stdout), nil
	}
	return New(Options{HistoryFile: historyFile})
}
