package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewAppendsLogfmt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kassist.log")

	logger, closer, err := New(Options{Path: path, Level: "info"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("session started", "user", "alice")
	logger.Debug("hidden")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	logger, closer, err = New(Options{Path: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("command executed", "command", "echo hi", "exit", 0)
	_ = closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(data)
	for _, want := range []string{`msg="session started"`, "user=alice", `command="echo hi"`, "exit=0", "level=info"} {
		if !strings.Contains(text, want) {
			t.Errorf("log missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "hidden") {
		t.Errorf("debug line written at info level:\n%s", text)
	}
	if n := strings.Count(text, "\n"); n != 2 {
		t.Errorf("log has %d lines, want 2 (append mode):\n%s", n, text)
	}
}

func TestNewFallsBackWhenUnwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger, closer, err := New(Options{Path: filepath.Join(blocker, "kassist.log"), Fallback: &buf})
	if err == nil {
		t.Fatal("expected an error for a path under a regular file")
	}
	defer closer.Close()

	logger.Info("dropped at warn level")
	logger.Warn("kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("fallback output = %q", buf.String())
	}
}

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Level: "DEBUG", Fallback: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug level not honoured: %q", buf.String())
	}

	buf.Reset()
	logger, _, _ = New(Options{Level: "nonsense", Fallback: &buf})
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unknown level should default to info: %q", buf.String())
	}
}
