package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Harness is an isolated home and project directory for end-to-end tests.
//
// HOME points at a temp directory for the duration of the test, so config
// files, the log file and the history database never touch the real user.
type Harness struct {
	T          *testing.T
	HomeDir    string
	ProjectDir string
	DBPath     string
	LogPath    string
}

// NewHarness creates the directories and points HOME at the temp home.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	home := t.TempDir()
	project := t.TempDir()
	if err := os.MkdirAll(filepath.Join(home, ".kassist"), 0o750); err != nil {
		t.Fatalf("NewHarness: mkdir .kassist: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	return &Harness{
		T:          t,
		HomeDir:    home,
		ProjectDir: project,
		DBPath:     filepath.Join(home, ".kassist", "history.db"),
		LogPath:    filepath.Join(home, "kassist.log"),
	}
}

// WriteFile writes a file relative to the project directory.
func (h *Harness) WriteFile(rel string, data []byte, perm os.FileMode) string {
	h.T.Helper()
	if strings.TrimSpace(rel) == "" {
		h.T.Fatalf("Harness.WriteFile: rel path is required")
	}
	abs := filepath.Join(h.ProjectDir, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		h.T.Fatalf("Harness.WriteFile: mkdir: %v", err)
	}
	if err := os.WriteFile(abs, data, perm); err != nil {
		h.T.Fatalf("Harness.WriteFile: write: %v", err)
	}
	return abs
}

// WriteUserConfig writes ~/.kassist/config.toml.
func (h *Harness) WriteUserConfig(content string) string {
	h.T.Helper()
	path := filepath.Join(h.HomeDir, ".kassist", "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		h.T.Fatalf("Harness.WriteUserConfig: %v", err)
	}
	return path
}

func (h *Harness) String() string {
	if h == nil {
		return "Harness<nil>"
	}
	return fmt.Sprintf("Harness(home=%s, project=%s)", h.HomeDir, h.ProjectDir)
}
