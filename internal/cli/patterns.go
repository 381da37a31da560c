package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kassist/kassist/internal/config"
	"github.com/kassist/kassist/internal/core"
	"github.com/kassist/kassist/internal/output"
)

var (
	flagCheckExitCode     bool
	flagPatternFormat     string
	flagPatternOutputFile string
)

func init() {
	checkCmd.Flags().BoolVar(&flagCheckExitCode, "exit-code", false, "return exit code 1 if the command would be blocked")

	patternsExportCmd.Flags().StringVarP(&flagPatternFormat, "format", "f", "json", "export format: json, yaml")
	patternsExportCmd.Flags().StringVar(&flagPatternOutputFile, "file", "", "output file (default: stdout)")

	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsExportCmd)

	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(checkCmd)
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect the danger-pattern catalog",
	Long: `Inspect the catalog of destructive shell idioms that block a command outright.

Patterns are case-insensitive regular expressions matched against the raw
command and its shell-normalized form. Extra patterns can be added with
security.extra_patterns in the config; built-in patterns cannot be removed.

The catalog is not exhaustive: obfuscated or encoded commands can slip past.`,
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all danger patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := newWriter(cmd)
		if err != nil {
			return err
		}
		matcher, _ := loadMatcher(cmd)
		if out.IsStructured() {
			return out.Write(matcher.Export())
		}

		table := output.Table{Headers: []string{"CLASS", "SOURCE", "PATTERN", "DESCRIPTION"}}
		for _, r := range matcher.Rules() {
			table.Rows = append(table.Rows, []string{string(r.Class), r.Source, r.Pattern, r.Description})
		}
		return out.Write(table)
	},
}

var patternsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog with its hash for external tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(flagPatternFormat)
		if err != nil {
			return err
		}
		if format == output.FormatText {
			return fmt.Errorf("unsupported export format: %s (want json or yaml)", flagPatternFormat)
		}

		dest := cmd.OutOrStdout()
		if flagPatternOutputFile != "" {
			f, err := os.Create(flagPatternOutputFile)
			if err != nil {
				return fmt.Errorf("creating %s: %w", flagPatternOutputFile, err)
			}
			defer f.Close()
			dest = f
		}

		matcher, _ := loadMatcher(cmd)
		if err := output.New(format, output.WithOutput(dest)).Write(matcher.Export()); err != nil {
			return err
		}
		if flagPatternOutputFile != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d patterns to %s\n", len(matcher.Rules()), flagPatternOutputFile)
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <command>",
	Short: "Check whether a command would be blocked",
	Long: `Check a command against the danger-pattern catalog without running it.

Use --exit-code to return exit code 1 when the command would be blocked,
which makes the check usable from shell scripts and hooks.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		command := args[0]
		out, err := newWriter(cmd)
		if err != nil {
			return err
		}
		matcher, cfg := loadMatcher(cmd)
		normalized, parsed := core.NormalizeCommand(command)
		rule := matcher.Match(command)

		result := checkResult{
			Command:              command,
			Normalized:           normalized,
			ParseError:           !parsed,
			Blocked:              rule != nil,
			RequiresConfirmation: rule == nil && cfg.Security.RequireConfirmation,
		}
		if rule != nil {
			result.Class = string(rule.Class)
			result.Pattern = rule.Pattern
			result.Description = rule.Description
		}

		if out.IsStructured() {
			if err := out.Write(result); err != nil {
				return err
			}
		} else {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Command:    %s\n", command)
			if parsed && normalized != command {
				fmt.Fprintf(w, "Normalized: %s\n", normalized)
			}
			if rule != nil {
				fmt.Fprintf(w, "Verdict:    BLOCKED\n")
				fmt.Fprintf(w, "Class:      %s\n", rule.Class)
				fmt.Fprintf(w, "Pattern:    %s\n", rule.Pattern)
				if rule.Description != "" {
					fmt.Fprintf(w, "Reason:     %s\n", rule.Description)
				}
			} else if result.RequiresConfirmation {
				fmt.Fprintf(w, "Verdict:    allowed after confirmation\n")
			} else {
				fmt.Fprintf(w, "Verdict:    allowed\n")
			}
		}

		if flagCheckExitCode && rule != nil {
			return &ExitError{Code: 1}
		}
		return nil
	},
}

type checkResult struct {
	Command              string `json:"command"`
	Normalized           string `json:"normalized"`
	ParseError           bool   `json:"parse_error,omitempty"`
	Blocked              bool   `json:"blocked"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	Class                string `json:"class,omitempty"`
	Pattern              string `json:"pattern,omitempty"`
	Description          string `json:"description,omitempty"`
}

// loadMatcher builds the catalog the chat would use: built-in rules plus
// security.extra_patterns. Bad extra patterns are reported on stderr.
func loadMatcher(cmd *cobra.Command) (*core.Matcher, config.Config) {
	project, _ := projectPath()
	cfg, _ := config.Load(config.LoadOptions{
		ProjectDir:    project,
		ConfigPath:    flagConfig,
		FlagOverrides: flagOverrides(),
	})
	matcher := buildMatcher(cfg.Security.ExtraPatterns, func(pattern string, err error) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: ignoring extra pattern %q: %v\n", pattern, err)
	})
	return matcher, cfg
}

// buildMatcher adds each extra pattern as a custom rule. warn is called for
// patterns that do not compile.
func buildMatcher(extra []string, warn func(pattern string, err error)) *core.Matcher {
	matcher := core.NewMatcher()
	for _, pattern := range extra {
		if err := matcher.AddRule(core.ClassCustom, pattern, "user pattern", "config"); err != nil && warn != nil {
			warn(pattern, err)
		}
	}
	return matcher
}
