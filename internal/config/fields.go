package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"
)

type valueKind int

const (
	kindString valueKind = iota
	kindBool
	kindInt
	kindFloat
	kindStringSlice
)

// field describes one leaf key: how to read it, where env overrides come
// from, and what range is acceptable.
type field struct {
	key   string
	kind  valueKind
	env   []string
	get   func(*Config) any
	set   func(*Config, any)
	check func(any) error
}

var validLevels = []string{"debug", "info", "warn", "error", "fatal"}

var fields = []field{
	{
		key:   "api.provider",
		kind:  kindString,
		env:   []string{"KASSIST_PROVIDER"},
		get:   func(c *Config) any { return c.API.Provider },
		set:   func(c *Config, v any) { c.API.Provider = v.(string) },
		check: oneOf("ollama", "openai"),
	},
	{
		key:   "api.ollama_endpoint",
		kind:  kindString,
		env:   []string{"KASSIST_ENDPOINT"},
		get:   func(c *Config) any { return c.API.OllamaEndpoint },
		set:   func(c *Config, v any) { c.API.OllamaEndpoint = v.(string) },
		check: httpURL,
	},
	{
		key:   "api.base_url",
		kind:  kindString,
		env:   []string{"KASSIST_BASE_URL", "OPENAI_BASE_URL"},
		get:   func(c *Config) any { return c.API.BaseURL },
		set:   func(c *Config, v any) { c.API.BaseURL = v.(string) },
		check: httpURL,
	},
	{
		key:  "api.api_key",
		kind: kindString,
		env:  []string{"KASSIST_API_KEY", "OPENAI_API_KEY"},
		get:  func(c *Config) any { return c.API.APIKey },
		set:  func(c *Config, v any) { c.API.APIKey = v.(string) },
	},
	{
		key:   "api.model",
		kind:  kindString,
		env:   []string{"KASSIST_MODEL"},
		get:   func(c *Config) any { return c.API.Model },
		set:   func(c *Config, v any) { c.API.Model = v.(string) },
		check: nonEmpty,
	},
	{
		key:   "api.temperature",
		kind:  kindFloat,
		env:   []string{"KASSIST_TEMPERATURE"},
		get:   func(c *Config) any { return c.API.Temperature },
		set:   func(c *Config, v any) { c.API.Temperature = v.(float64) },
		check: func(v any) error {
			if t := v.(float64); t < 0 || t > 2 {
				return fmt.Errorf("must be between 0 and 2, got %v", t)
			}
			return nil
		},
	},
	{
		key:   "api.timeout",
		kind:  kindInt,
		env:   []string{"KASSIST_API_TIMEOUT"},
		get:   func(c *Config) any { return c.API.TimeoutSecs },
		set:   func(c *Config, v any) { c.API.TimeoutSecs = v.(int) },
		check: positive,
	},
	{
		key:  "personality.name",
		kind: kindString,
		get:  func(c *Config) any { return c.Personality.Name },
		set:  func(c *Config, v any) { c.Personality.Name = v.(string) },
	},
	{
		key:  "personality.tone",
		kind: kindString,
		get:  func(c *Config) any { return c.Personality.Tone },
		set:  func(c *Config, v any) { c.Personality.Tone = v.(string) },
	},
	{
		key:  "personality.verbosity",
		kind: kindString,
		get:  func(c *Config) any { return c.Personality.Verbosity },
		set:  func(c *Config, v any) { c.Personality.Verbosity = v.(string) },
	},
	{
		key:  "security.require_confirmation",
		kind: kindBool,
		env:  []string{"KASSIST_REQUIRE_CONFIRMATION"},
		get:  func(c *Config) any { return c.Security.RequireConfirmation },
		set:  func(c *Config, v any) { c.Security.RequireConfirmation = v.(bool) },
	},
	{
		key:   "security.max_output",
		kind:  kindInt,
		env:   []string{"KASSIST_MAX_OUTPUT"},
		get:   func(c *Config) any { return c.Security.MaxOutput },
		set:   func(c *Config, v any) { c.Security.MaxOutput = v.(int) },
		check: positive,
	},
	{
		key:   "security.timeout",
		kind:  kindInt,
		env:   []string{"KASSIST_COMMAND_TIMEOUT"},
		get:   func(c *Config) any { return c.Security.TimeoutSecs },
		set:   func(c *Config, v any) { c.Security.TimeoutSecs = v.(int) },
		check: positive,
	},
	{
		key:  "security.shell",
		kind: kindString,
		env:  []string{"KASSIST_SHELL"},
		get:  func(c *Config) any { return c.Security.Shell },
		set:  func(c *Config, v any) { c.Security.Shell = v.(string) },
	},
	{
		key:  "security.extra_patterns",
		kind: kindStringSlice,
		get:  func(c *Config) any { return c.Security.ExtraPatterns },
		set:  func(c *Config, v any) { c.Security.ExtraPatterns = v.([]string) },
	},
	{
		key:   "context.memory_size",
		kind:  kindInt,
		env:   []string{"KASSIST_MEMORY_SIZE"},
		get:   func(c *Config) any { return c.Context.MemorySize },
		set:   func(c *Config, v any) { c.Context.MemorySize = v.(int) },
		check: func(v any) error {
			if n := v.(int); n < 0 {
				return fmt.Errorf("must be >= 0, got %d", n)
			}
			return nil
		},
	},
	{
		key:  "logging.path",
		kind: kindString,
		env:  []string{"KASSIST_LOG_PATH"},
		get:  func(c *Config) any { return c.Logging.Path },
		set:  func(c *Config, v any) { c.Logging.Path = v.(string) },
	},
	{
		key:   "logging.level",
		kind:  kindString,
		env:   []string{"KASSIST_LOG_LEVEL"},
		get:   func(c *Config) any { return c.Logging.Level },
		set:   func(c *Config, v any) { c.Logging.Level = strings.ToLower(v.(string)) },
		check: func(v any) error { return oneOf(validLevels...)(strings.ToLower(v.(string))) },
	},
	{
		key:  "history.enabled",
		kind: kindBool,
		env:  []string{"KASSIST_HISTORY"},
		get:  func(c *Config) any { return c.History.Enabled },
		set:  func(c *Config, v any) { c.History.Enabled = v.(bool) },
	},
	{
		key:   "history.database_path",
		kind:  kindString,
		env:   []string{"KASSIST_HISTORY_DB"},
		get:   func(c *Config) any { return c.History.DatabasePath },
		set:   func(c *Config, v any) { c.History.DatabasePath = v.(string) },
		check: nonEmpty,
	},
}

func lookupField(key string) (field, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, f := range fields {
		if f.key == key {
			return f, true
		}
	}
	return field{}, false
}

// Keys lists every leaf configuration key in table order.
func Keys() []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.key)
	}
	return out
}

func oneOf(allowed ...string) func(any) error {
	return func(v any) error {
		s := v.(string)
		for _, a := range allowed {
			if s == a {
				return nil
			}
		}
		return fmt.Errorf("must be one of %s, got %q", strings.Join(allowed, ", "), s)
	}
}

func positive(v any) error {
	if n := v.(int); n <= 0 {
		return fmt.Errorf("must be > 0, got %d", n)
	}
	return nil
}

func nonEmpty(v any) error {
	if strings.TrimSpace(v.(string)) == "" {
		return errors.New("must not be empty")
	}
	return nil
}

func httpURL(v any) error {
	u, err := url.Parse(v.(string))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http(s) URL, got %q", v)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", v)
	}
	return nil
}

// convert coerces a raw viper value (file, env string or flag) to kind.
func convert(kind valueKind, raw any) (any, error) {
	switch kind {
	case kindString:
		return cast.ToStringE(raw)
	case kindBool:
		return cast.ToBoolE(raw)
	case kindInt:
		return cast.ToIntE(raw)
	case kindFloat:
		return cast.ToFloat64E(raw)
	case kindStringSlice:
		if s, ok := raw.(string); ok {
			return splitList(s), nil
		}
		return cast.ToStringSliceE(raw)
	default:
		return nil, fmt.Errorf("unsupported value kind %d", kind)
	}
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetValue returns the value at key ("security.timeout") or a whole
// section ("security").
func GetValue(cfg Config, key string) (any, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	switch key {
	case "":
		return nil, false
	case "api":
		return cfg.API, true
	case "personality":
		return cfg.Personality, true
	case "security":
		return cfg.Security, true
	case "context":
		return cfg.Context, true
	case "logging":
		return cfg.Logging, true
	case "history":
		return cfg.History, true
	}
	f, ok := lookupField(key)
	if !ok {
		return nil, false
	}
	return f.get(&cfg), true
}

// ParseValue parses raw (a CLI argument) into the type key expects.
func ParseValue(key, raw string) (any, error) {
	f, ok := lookupField(key)
	if !ok {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	value, err := parseValueByKind(raw, f.kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if f.check != nil {
		if err := f.check(value); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}
	return value, nil
}

func parseValueByKind(raw string, kind valueKind) (any, error) {
	raw = strings.TrimSpace(raw)
	if kind == kindStringSlice {
		return splitList(raw), nil
	}
	return convert(kind, raw)
}

// WriteValue sets key in the TOML file at path, creating the file and any
// intermediate tables. Other keys in the file are preserved.
func WriteValue(path, key string, value any) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	segments := strings.Split(strings.ToLower(strings.TrimSpace(key)), ".")
	for _, s := range segments {
		if s == "" {
			return fmt.Errorf("invalid config key %q", key)
		}
	}

	doc := map[string]any{}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &doc); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config %s: %w", path, err)
	}

	table := doc
	for _, seg := range segments[:len(segments)-1] {
		next, exists := table[seg]
		if !exists {
			child := map[string]any{}
			table[seg] = child
			table = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("config key %q: %s is not a table", key, seg)
		}
		table = child
	}
	table[segments[len(segments)-1]] = value

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(doc); err != nil {
		return fmt.Errorf("encode config %s: %w", path, err)
	}
	return nil
}
