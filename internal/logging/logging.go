// Package logging sets up the kassist log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options configures New.
type Options struct {
	// Path is the log file, opened in append mode. Empty logs to Fallback.
	Path string
	// Level is one of debug, info, warn, error, fatal (default info).
	Level string
	// Fallback receives log lines when Path cannot be opened (default stderr).
	Fallback io.Writer
}

// New returns a logfmt logger writing to opts.Path and a closer for the file.
//
// If the file cannot be opened the logger writes to the fallback writer at
// warn level and the open error is returned alongside it, so callers can
// report the problem and continue.
func New(opts Options) (*log.Logger, io.Closer, error) {
	level, err := log.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil || opts.Level == "" {
		level = log.InfoLevel
	}

	fallback := opts.Fallback
	if fallback == nil {
		fallback = os.Stderr
	}

	if opts.Path == "" {
		return newLogger(fallback, level), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return newLogger(fallback, log.WarnLevel), nopCloser{}, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return newLogger(fallback, log.WarnLevel), nopCloser{}, fmt.Errorf("open log file: %w", err)
	}
	return newLogger(f, level), f, nil
}

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       log.LogfmtFormatter,
	})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
