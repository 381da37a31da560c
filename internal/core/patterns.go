// Package core implements the command-safety gate and the command executor.
package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-shellwords"
)

// RuleClass names a family of destructive shell idioms.
type RuleClass string

const (
	ClassRecursiveDelete RuleClass = "recursive_delete"
	ClassBlockDevice     RuleClass = "block_device_write"
	ClassDeviceRedirect  RuleClass = "device_redirect"
	ClassWorldWritable   RuleClass = "world_writable"
	ClassForkBomb        RuleClass = "fork_bomb"
	ClassRootMove        RuleClass = "root_move"
	ClassPartitionTable  RuleClass = "partition_table"
	ClassLowLevelFormat  RuleClass = "low_level_format"
	ClassCustom          RuleClass = "custom"
)

// Rule is one entry of the danger catalog.
type Rule struct {
	// Class groups the rule with related idioms.
	Class RuleClass
	// Pattern is the regex source (matched case-insensitively).
	Pattern string
	// Compiled is the compiled regex.
	Compiled *regexp.Regexp
	// Description says what the rule guards against.
	Description string
	// Source indicates where the rule came from: "builtin" or "config".
	Source string
}

// ruleSpec is the uncompiled form of a Rule.
type ruleSpec struct {
	class       RuleClass
	pattern     string
	description string
}

// builtinRules is the default catalog. It is best-effort and NOT exhaustive:
// encoded, obfuscated or indirect commands (eval, base64 | sh, scripts on disk)
// are not caught here.
var builtinRules = []ruleSpec{
	{ClassRecursiveDelete, `\brm\s+-rf\s+`, "recursive forced delete"},
	{ClassRecursiveDelete, `\brm\s+(-[a-z]*r[a-z]*f[a-z]*|-[a-z]*f[a-z]*r[a-z]*)(\s|$)`, "recursive forced delete (combined flags)"},
	{ClassRecursiveDelete, `\brm\s+(-\w+\s+)*(-r|-R|--recursive)\s+(-\w+\s+)*(-f|--force)\b`, "recursive forced delete (split flags)"},
	{ClassRecursiveDelete, `\brm\s+(-\w+\s+)*(-f|--force)\s+(-\w+\s+)*(-r|-R|--recursive)\b`, "recursive forced delete (split flags)"},
	{ClassBlockDevice, `\bdd\s+if=`, "raw block copy with dd"},
	{ClassBlockDevice, `\bdd\b.*\bof=/dev/`, "dd writing to a device file"},
	{ClassDeviceRedirect, `>\s*/dev/(sd|hd|vd|xvd|nvme|mmcblk|disk)`, "shell redirection onto a disk device"},
	{ClassWorldWritable, `\bchmod\s+(-\w+\s+)*0?777\s+`, "world-writable permission grant"},
	{ClassWorldWritable, `\bchmod\s+(-\w+\s+)*(a|o)\+w\b`, "world-writable permission grant (symbolic)"},
	{ClassForkBomb, `:\(\)\s*\{[^}]*\}\s*;\s*:`, "bash fork bomb"},
	{ClassForkBomb, `:\(\)\s*\{.*;\s*\}\s*;`, "bash fork bomb (variant)"},
	{ClassRootMove, `\bmv\s+(-\w+\s+)*/(\*|\s|$)`, "moving the root filesystem"},
	{ClassPartitionTable, `\bfdisk\s+/dev/`, "partition table edit with fdisk"},
	{ClassPartitionTable, `\b(sfdisk|gdisk|cfdisk|parted|wipefs)\b.*\s/dev/`, "partition table edit"},
	{ClassLowLevelFormat, `\bmkfs(\.\w+)?\b`, "filesystem creation (format)"},
	{ClassLowLevelFormat, `(^|[;&|]\s*)format\s+`, "low-level format invocation"},
}

// Matcher classifies commands against the danger catalog.
type Matcher struct {
	mu    sync.RWMutex
	rules []*Rule
}

// NewMatcher creates a matcher loaded with the built-in catalog.
func NewMatcher() *Matcher {
	m := &Matcher{}
	m.rules = compileRules(builtinRules, "builtin")
	return m
}

// DefaultRules returns a copy of the built-in catalog.
func DefaultRules() []Rule {
	compiled := compileRules(builtinRules, "builtin")
	out := make([]Rule, 0, len(compiled))
	for _, r := range compiled {
		out = append(out, *r)
	}
	return out
}

func compileRules(specs []ruleSpec, source string) []*Rule {
	result := make([]*Rule, 0, len(specs))
	for _, s := range specs {
		compiled, err := regexp.Compile("(?i)" + s.pattern)
		if err != nil {
			// Built-in patterns must always be valid.
			panic(fmt.Sprintf("invalid builtin pattern %q: %v", s.pattern, err))
		}
		result = append(result, &Rule{
			Class:       s.class,
			Pattern:     s.pattern,
			Compiled:    compiled,
			Description: s.description,
			Source:      source,
		})
	}
	return result
}

// AddRule appends a rule to the catalog.
func (m *Matcher) AddRule(class RuleClass, pattern, description, source string) error {
	compiled, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}
	if class == "" {
		class = ClassCustom
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules = append(m.rules, &Rule{
		Class:       class,
		Pattern:     pattern,
		Compiled:    compiled,
		Description: description,
		Source:      source,
	})
	return nil
}

// Rules returns the current catalog in match order.
func (m *Matcher) Rules() []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Rule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, *r)
	}
	return out
}

// Classify reports whether the command matches a danger rule.
func (m *Matcher) Classify(command string) bool {
	return m.Match(command) != nil
}

// Match returns the first rule matching the command, or nil.
// The command is checked as written and again after shell normalization,
// so quoting tricks like r"m" -rf / do not slip through.
func (m *Matcher) Match(command string) *Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if r := m.matchRules(command); r != nil {
		return r
	}
	if normalized, ok := NormalizeCommand(command); ok && normalized != command {
		return m.matchRules(normalized)
	}
	return nil
}

func (m *Matcher) matchRules(cmd string) *Rule {
	for _, r := range m.rules {
		if r.Compiled.MatchString(cmd) {
			matched := *r
			return &matched
		}
	}
	return nil
}

// NormalizeCommand re-renders a command with shell quoting and escapes
// resolved. Control operators (; & | < >) are kept as separate tokens.
// It returns false when the command cannot be tokenized (e.g. an unclosed quote).
func NormalizeCommand(command string) (string, bool) {
	var parts []string
	rest := []rune(command)
	for strings.TrimSpace(string(rest)) != "" {
		p := shellwords.NewParser()
		args, err := p.Parse(string(rest))
		if err != nil {
			return "", false
		}
		if len(args) > 0 {
			parts = append(parts, strings.Join(args, " "))
		}
		// Position is the offset of the operator that stopped the parser.
		if p.Position < 0 || p.Position >= len(rest) {
			break
		}
		parts = append(parts, string(rest[p.Position]))
		rest = rest[p.Position+1:]
	}
	return strings.Join(parts, " "), true
}

// RuleExport represents the exported catalog for external tools.
type RuleExport struct {
	Version     string        `json:"version"`
	GeneratedAt time.Time     `json:"generated_at"`
	SHA256      string        `json:"sha256"`
	RuleCount   int           `json:"rule_count"`
	Rules       []RuleDetails `json:"rules"`
}

// RuleDetails represents a single rule for export.
type RuleDetails struct {
	Class       RuleClass `json:"class"`
	Pattern     string    `json:"pattern"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source"`
}

// Export returns the catalog in a structured, hashable form.
func (m *Matcher) Export() *RuleExport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rules := make([]RuleDetails, 0, len(m.rules))
	for _, r := range m.rules {
		rules = append(rules, RuleDetails{
			Class:       r.Class,
			Pattern:     r.Pattern,
			Description: r.Description,
			Source:      r.Source,
		})
	}

	return &RuleExport{
		Version:     "1.0.0",
		GeneratedAt: time.Now().UTC(),
		SHA256:      m.computeHashLocked(),
		RuleCount:   len(rules),
		Rules:       rules,
	}
}

// ComputeHash returns a deterministic hash of the catalog for version tracking.
func (m *Matcher) ComputeHash() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.computeHashLocked()
}

// computeHashLocked computes hash without acquiring lock (caller must hold lock).
func (m *Matcher) computeHashLocked() string {
	all := make([]string, 0, len(m.rules))
	for _, r := range m.rules {
		all = append(all, fmt.Sprintf("%s:%s", r.Class, r.Pattern))
	}
	sort.Strings(all)

	h := sha256.New()
	for _, p := range all {
		h.Write([]byte(p))
		h.Write([]byte{0}) // Separator
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ExportJSON returns the catalog as a JSON string.
func (m *Matcher) ExportJSON() (string, error) {
	data, err := json.MarshalIndent(m.Export(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
