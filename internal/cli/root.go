// Package cli implements the Cobra command-line interface for kassist.
package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kassist/kassist/internal/config"
	"github.com/kassist/kassist/internal/output"
)

// Version information set by goreleaser
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flag values
var (
	flagConfig    string
	flagOutput    string
	flagJSON      bool
	flagVerbose   bool
	flagDB        string
	flagModel     string
	flagEndpoint  string
	flagNoConfirm bool
)

var rootCmd = &cobra.Command{
	Use:   "kassist",
	Short: "Conversational shell assistant backed by a local language model",
	Long: `kassist answers questions in plain language and, when the model proposes a
shell command, runs it through a safety gate before executing it locally.

Every proposed command is checked against a catalog of destructive idioms
(recursive forced delete, raw device writes, fork bombs, ...). A match is
blocked outright. Anything else is shown for a y/N confirmation unless
confirmation is switched off with --no-confirm or "toggle safety".

The pattern catalog is best-effort defense in depth, not a sandbox.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive conversation (default)",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		goVersion := runtime.Version()
		project, _ := projectPath()
		userPath, projectConfig := config.ConfigPaths(project, flagConfig)
		cfg, _ := config.Load(config.LoadOptions{
			ProjectDir:    project,
			ConfigPath:    flagConfig,
			FlagOverrides: flagOverrides(),
		})
		dbPath := config.ExpandPath(cfg.History.DatabasePath)

		out, err := newWriter(cmd)
		if err != nil {
			return err
		}
		if out.IsStructured() {
			return out.Write(map[string]any{
				"version":        version,
				"commit":         commit,
				"build_date":     date,
				"go_version":     goVersion,
				"user_config":    userPath,
				"project_config": projectConfig,
				"db_path":        dbPath,
				"model":          cfg.API.Model,
			})
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "kassist %s\n", version)
		fmt.Fprintf(w, "  commit:  %s\n", commit)
		fmt.Fprintf(w, "  built:   %s\n", date)
		fmt.Fprintf(w, "  go:      %s\n", goVersion)
		fmt.Fprintf(w, "  config:  %s\n", userPath)
		fmt.Fprintf(w, "  project: %s\n", projectConfig)
		fmt.Fprintf(w, "  db:      %s\n", dbPath)
		fmt.Fprintf(w, "  model:   %s\n", cfg.API.Model)
		return nil
	},
}

// ExitError carries a process exit code without printing anything.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	format, ferr := output.ParseFormat(GetOutput())
	if ferr != nil {
		format = output.FormatText
	}
	output.New(format,
		output.WithOutput(rootCmd.OutOrStdout()),
		output.WithErrorOutput(rootCmd.ErrOrStderr()),
	).Error(err)
	return 1
}

// GetOutput returns the configured output format.
// Precedence: --json > --output > KASSIST_OUTPUT_FORMAT env > text.
func GetOutput() string {
	if flagJSON {
		return "json"
	}
	if flagOutput != "" && flagOutput != "text" {
		return flagOutput
	}
	if envFormat := strings.ToLower(os.Getenv("KASSIST_OUTPUT_FORMAT")); envFormat != "" {
		switch envFormat {
		case "json", "yaml", "text":
			return envFormat
		}
	}
	return "text"
}

// newWriter returns an output writer bound to the command's streams.
func newWriter(cmd *cobra.Command) (*output.Writer, error) {
	format, err := output.ParseFormat(GetOutput())
	if err != nil {
		return nil, err
	}
	return output.New(format,
		output.WithOutput(cmd.OutOrStdout()),
		output.WithErrorOutput(cmd.ErrOrStderr()),
	), nil
}

// projectPath is the directory searched for .kassist/config.toml.
func projectPath() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return wd, nil
}

// flagOverrides maps global flags onto config keys. Only flags that were
// given are included, so they do not mask config files.
func flagOverrides() map[string]any {
	overrides := map[string]any{}
	if flagModel != "" {
		overrides["api.model"] = flagModel
	}
	if flagEndpoint != "" {
		overrides["api.ollama_endpoint"] = flagEndpoint
	}
	if flagNoConfirm {
		overrides["security.require_confirmation"] = false
	}
	if flagDB != "" {
		overrides["history.database_path"] = flagDB
	}
	if flagVerbose {
		overrides["logging.level"] = "debug"
	}
	return overrides
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "project config file path (default .kassist/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "output format: text, json, yaml (env: KASSIST_OUTPUT_FORMAT)")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "shorthand for --output=json")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "history database path")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "model name")
	rootCmd.PersistentFlags().StringVar(&flagEndpoint, "endpoint", "", "Ollama chat endpoint")
	rootCmd.PersistentFlags().BoolVar(&flagNoConfirm, "no-confirm", false, "run commands without the y/N prompt (dangerous patterns stay blocked)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(versionCmd)
}
