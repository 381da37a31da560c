package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/kassist/kassist/internal/core"
)

func TestPatternsListCommand_TextOutput(t *testing.T) {
	newEnv(t)
	stdout, _, err := executeCommand(t, "patterns", "list")
	if err != nil {
		t.Fatalf("patterns list: %v", err)
	}
	for _, want := range []string{"CLASS", "PATTERN", string(core.ClassRecursiveDelete), string(core.ClassForkBomb), "builtin"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}
}

func TestPatternsListCommand_JSONIncludesExtraPatterns(t *testing.T) {
	h := newEnv(t)
	h.WriteUserConfig("[security]\nextra_patterns = ['curl\\s.*\\|\\s*sh', '(unclosed']\n")

	stdout, stderr, err := executeCommand(t, "patterns", "list", "-j")
	if err != nil {
		t.Fatalf("patterns list: %v", err)
	}

	var export core.RuleExport
	if err := json.Unmarshal([]byte(stdout), &export); err != nil {
		t.Fatalf("parse JSON: %v\n%s", err, stdout)
	}
	if export.RuleCount != len(export.Rules) || export.RuleCount == 0 {
		t.Fatalf("rule_count = %d, rules = %d", export.RuleCount, len(export.Rules))
	}
	var custom int
	for _, r := range export.Rules {
		if r.Class == core.ClassCustom {
			custom++
			if r.Source != "config" {
				t.Errorf("custom rule source = %q", r.Source)
			}
		}
	}
	if custom != 1 {
		t.Errorf("custom rules = %d, want 1 (invalid pattern skipped)", custom)
	}
	if !strings.Contains(stderr, "(unclosed") {
		t.Errorf("expected warning about the invalid pattern, stderr = %q", stderr)
	}
}

func TestPatternsExportCommand(t *testing.T) {
	newEnv(t)

	t.Run("json to stdout", func(t *testing.T) {
		stdout, _, err := executeCommand(t, "patterns", "export")
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		var export core.RuleExport
		if err := json.Unmarshal([]byte(stdout), &export); err != nil {
			t.Fatalf("parse JSON: %v", err)
		}
		if export.SHA256 != core.NewMatcher().ComputeHash() {
			t.Errorf("sha256 = %s, want the built-in catalog hash", export.SHA256)
		}
	})

	t.Run("yaml to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "patterns.yaml")
		_, stderr, err := executeCommand(t, "patterns", "export", "-f", "yaml", "--file", path)
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		if !strings.Contains(stderr, "exported") {
			t.Errorf("stderr = %q", stderr)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read export: %v", err)
		}
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			t.Fatalf("parse YAML: %v", err)
		}
		if _, ok := doc["rules"]; !ok {
			t.Errorf("yaml export missing rules: %v", doc)
		}
	})

	t.Run("text rejected", func(t *testing.T) {
		if _, _, err := executeCommand(t, "patterns", "export", "-f", "text"); err == nil {
			t.Fatal("expected error for text export")
		}
	})
}

func TestCheckCommand(t *testing.T) {
	newEnv(t)

	tests := []struct {
		name        string
		args        []string
		wantErrCode int
		wantOutput  []string
	}{
		{
			name:       "blocked",
			args:       []string{"check", "rm -rf /"},
			wantOutput: []string{"Verdict:    BLOCKED", string(core.ClassRecursiveDelete)},
		},
		{
			name:        "blocked with exit code",
			args:        []string{"check", "--exit-code", ":(){ :|:& };:"},
			wantErrCode: 1,
			wantOutput:  []string{"BLOCKED", string(core.ClassForkBomb)},
		},
		{
			name:       "needs confirmation by default",
			args:       []string{"check", "--exit-code", "ls -la"},
			wantOutput: []string{"allowed after confirmation"},
		},
		{
			name:       "no-confirm allows outright",
			args:       []string{"check", "--no-confirm", "ls -la"},
			wantOutput: []string{"Verdict:    allowed\n"},
		},
		{
			name:       "quoting is normalized",
			args:       []string{"check", `rm "-rf" /`},
			wantOutput: []string{"Normalized: rm -rf /", "BLOCKED"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := executeCommand(t, tt.args...)
			if tt.wantErrCode != 0 {
				var exitErr *ExitError
				if !errors.As(err, &exitErr) || exitErr.Code != tt.wantErrCode {
					t.Fatalf("err = %v, want exit code %d", err, tt.wantErrCode)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.wantOutput {
				if !strings.Contains(stdout, want) {
					t.Errorf("expected %q in output:\n%s", want, stdout)
				}
			}
		})
	}
}

func TestCheckCommand_JSON(t *testing.T) {
	newEnv(t)
	stdout, _, err := executeCommand(t, "check", "-j", "dd if=/dev/zero of=/dev/sda")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	var res checkResult
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("parse JSON: %v\n%s", err, stdout)
	}
	if !res.Blocked || res.RequiresConfirmation {
		t.Errorf("blocked = %v, requires_confirmation = %v", res.Blocked, res.RequiresConfirmation)
	}
	if res.Class == "" || res.Pattern == "" {
		t.Errorf("expected the matching rule, got %+v", res)
	}
}

func TestCheckCommand_RequiresCommand(t *testing.T) {
	newEnv(t)
	if _, _, err := executeCommand(t, "check"); err == nil {
		t.Fatal("expected error without a command")
	}
}

func TestBuildMatcher(t *testing.T) {
	var warned []string
	m := buildMatcher([]string{`^nc\s+-l`, "[bad"}, func(pattern string, err error) {
		warned = append(warned, pattern)
	})
	if !m.Classify("nc -lvp 4444") {
		t.Error("extra pattern should block")
	}
	if len(warned) != 1 || warned[0] != "[bad" {
		t.Errorf("warned = %v", warned)
	}
	if buildMatcher(nil, nil).Classify("nc -lvp 4444") {
		t.Error("built-in catalog should not include the extra pattern")
	}
}
