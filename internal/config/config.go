// Package config loads the typed kassist configuration.
//
// Sources are layered (lowest to highest): built-in defaults, the user file
// ~/.kassist/config.toml, the legacy ~/.kali_assistant.json, the project file
// .kassist/config.toml (or --config), KASSIST_* environment variables, and CLI
// flag overrides. Files are merged key by key, so a file that sets only
// api.model leaves the rest of [api] at its lower-layer values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ErrConfigInvalid wraps every problem Load recovered from.
var ErrConfigInvalid = errors.New("invalid configuration")

const (
	configDirName    = ".kassist"
	configFileName   = "config.toml"
	legacyFileName   = ".kali_assistant.json"
	defaultLogName   = "kassist.log"
	defaultHistoryDB = "history.db"
)

// Config is the full kassist configuration.
type Config struct {
	API         APIConfig         `toml:"api" mapstructure:"api" json:"api" yaml:"api"`
	Personality PersonalityConfig `toml:"personality" mapstructure:"personality" json:"personality" yaml:"personality"`
	Security    SecurityConfig    `toml:"security" mapstructure:"security" json:"security" yaml:"security"`
	Context     ContextConfig     `toml:"context" mapstructure:"context" json:"context" yaml:"context"`
	Logging     LoggingConfig     `toml:"logging" mapstructure:"logging" json:"logging" yaml:"logging"`
	History     HistoryConfig     `toml:"history" mapstructure:"history" json:"history" yaml:"history"`
}

// APIConfig configures the model collaborator.
type APIConfig struct {
	Provider       string  `toml:"provider" mapstructure:"provider" json:"provider" yaml:"provider"`
	OllamaEndpoint string  `toml:"ollama_endpoint" mapstructure:"ollama_endpoint" json:"ollama_endpoint" yaml:"ollama_endpoint"`
	BaseURL        string  `toml:"base_url" mapstructure:"base_url" json:"base_url" yaml:"base_url"`
	APIKey         string  `toml:"api_key" mapstructure:"api_key" json:"api_key" yaml:"api_key"`
	Model          string  `toml:"model" mapstructure:"model" json:"model" yaml:"model"`
	Temperature    float64 `toml:"temperature" mapstructure:"temperature" json:"temperature" yaml:"temperature"`
	TimeoutSecs    int     `toml:"timeout" mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// PersonalityConfig shapes the system prompt.
type PersonalityConfig struct {
	Name      string `toml:"name" mapstructure:"name" json:"name" yaml:"name"`
	Tone      string `toml:"tone" mapstructure:"tone" json:"tone" yaml:"tone"`
	Verbosity string `toml:"verbosity" mapstructure:"verbosity" json:"verbosity" yaml:"verbosity"`
}

// SecurityConfig configures the gate and the executor.
type SecurityConfig struct {
	RequireConfirmation bool     `toml:"require_confirmation" mapstructure:"require_confirmation" json:"require_confirmation" yaml:"require_confirmation"`
	MaxOutput           int      `toml:"max_output" mapstructure:"max_output" json:"max_output" yaml:"max_output"`
	TimeoutSecs         int      `toml:"timeout" mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	Shell               string   `toml:"shell" mapstructure:"shell" json:"shell" yaml:"shell"`
	ExtraPatterns       []string `toml:"extra_patterns" mapstructure:"extra_patterns" json:"extra_patterns" yaml:"extra_patterns"`
}

// ContextConfig bounds the conversation store.
type ContextConfig struct {
	MemorySize int `toml:"memory_size" mapstructure:"memory_size" json:"memory_size" yaml:"memory_size"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Path  string `toml:"path" mapstructure:"path" json:"path" yaml:"path"`
	Level string `toml:"level" mapstructure:"level" json:"level" yaml:"level"`
}

// HistoryConfig configures the SQLite command history.
type HistoryConfig struct {
	Enabled      bool   `toml:"enabled" mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	DatabasePath string `toml:"database_path" mapstructure:"database_path" json:"database_path" yaml:"database_path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434/api/chat",
			BaseURL:        "https://api.openai.com/v1",
			Model:          "deepseek-coder",
			Temperature:    0.7,
			TimeoutSecs:    30,
		},
		Personality: PersonalityConfig{
			Name:      "Kali-Assist",
			Tone:      "professional",
			Verbosity: "detailed",
		},
		Security: SecurityConfig{
			RequireConfirmation: true,
			MaxOutput:           5000,
			TimeoutSecs:         45,
			ExtraPatterns:       []string{},
		},
		Context: ContextConfig{
			MemorySize: 10,
		},
		Logging: LoggingConfig{
			Path:  "~/" + defaultLogName,
			Level: "info",
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "~/" + configDirName + "/" + defaultHistoryDB,
		},
	}
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// ProjectDir is searched for .kassist/config.toml; empty means the CWD.
	ProjectDir string
	// ConfigPath replaces the project file when set.
	ConfigPath string
	// FlagOverrides are applied last, keyed like "security.timeout".
	FlagOverrides map[string]any
}

// Load builds the configuration. It always returns a usable Config: any
// file, env or flag value that cannot be read or is out of range is replaced
// by its default, and the returned error (wrapping ErrConfigInvalid) lists
// what was replaced. Callers should log the error and carry on.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	setDefaults(v)

	var problems []error

	userPath, projectPath := ConfigPaths(opts.ProjectDir, opts.ConfigPath)
	for _, path := range []string{userPath, LegacyConfigPath(), projectPath} {
		if err := mergeConfigFile(v, path); err != nil {
			problems = append(problems, err)
		}
	}

	bindEnv(v)

	for key, value := range opts.FlagOverrides {
		v.Set(key, value)
	}

	cfg, decodeProblems := decode(v)
	problems = append(problems, decodeProblems...)

	if len(problems) > 0 {
		return cfg, fmt.Errorf("%w: %w", ErrConfigInvalid, errors.Join(problems...))
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	for _, f := range fields {
		v.SetDefault(f.key, f.get(&def))
	}
}

func bindEnv(v *viper.Viper) {
	for _, f := range fields {
		if len(f.env) == 0 {
			continue
		}
		_ = v.BindEnv(append([]string{f.key}, f.env...)...)
	}
}

// decode reads every field from v, keeping the default for any that fail.
func decode(v *viper.Viper) (Config, []error) {
	cfg := DefaultConfig()
	var problems []error
	for _, f := range fields {
		value, err := convert(f.kind, v.Get(f.key))
		if err == nil && f.check != nil {
			err = f.check(value)
		}
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w (using default %v)", f.key, err, f.get(&cfg)))
			continue
		}
		f.set(&cfg, value)
	}
	return cfg, problems
}

// mergeConfigFile merges one file into v. A blank path or a missing file is
// not an error. The format follows the extension (TOML when unknown).
func mergeConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	v.SetConfigType(configType(path))
	if err := v.MergeConfig(f); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "toml"
	}
}

// ConfigPaths returns the user and project config file paths.
func ConfigPaths(projectDir, configPath string) (userPath, projectPath string) {
	if home, err := os.UserHomeDir(); err == nil {
		userPath = filepath.Join(home, configDirName, configFileName)
	}
	return userPath, projectConfigPath(projectDir, configPath)
}

func projectConfigPath(projectDir, override string) string {
	if override != "" {
		return override
	}
	return filepath.Join(projectDir, configDirName, configFileName)
}

// LegacyConfigPath is the JSON file earlier releases read, still honoured.
func LegacyConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, legacyFileName)
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate checks cfg and returns every violation in one error.
func Validate(cfg Config) error {
	var problems []string
	for _, f := range fields {
		if f.check == nil {
			continue
		}
		if err := f.check(f.get(&cfg)); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", f.key, err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: config validation failed: %s", ErrConfigInvalid, strings.Join(problems, "; "))
	}
	return nil
}
