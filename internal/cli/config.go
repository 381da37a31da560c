package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	"github.com/kassist/kassist/internal/config"
)

var (
	flagConfigGlobal bool
)

const maskedSecret = "********"

func init() {
	configCmd.PersistentFlags().BoolVar(&flagConfigGlobal, "global", false, "operate on user config (~/.kassist/config.toml)")

	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)

	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or modify kassist configuration",
	Long: `Show the effective configuration after layering defaults, config files,
KASSIST_* environment variables and flags.

Values that cannot be used are replaced by their defaults and listed as
warnings on stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out, err := newWriter(cmd)
		if err != nil {
			return err
		}
		if out.IsStructured() {
			if cfg.API.APIKey != "" {
				cfg.API.APIKey = maskedSecret
			}
			return out.Write(cfg)
		}
		w := cmd.OutOrStdout()
		for _, key := range config.Keys() {
			val, _ := config.GetValue(cfg, key)
			fmt.Fprintf(w, "%s = %s\n", key, formatValue(key, val))
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:               "get <key>",
	Short:             "Get a specific configuration value",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeConfigKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		val, ok := config.GetValue(cfg, args[0])
		if !ok {
			return fmt.Errorf("unknown key %q", args[0])
		}
		out, err := newWriter(cmd)
		if err != nil {
			return err
		}
		if out.IsStructured() {
			return out.Write(map[string]any{
				"key":   args[0],
				"value": val,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatValue(args[0], val))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:               "set <key> <value>",
	Short:             "Set a configuration value in the project (or --global) config file",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeConfigKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := configTarget()
		if err != nil {
			return err
		}
		value, err := config.ParseValue(args[0], args[1])
		if err != nil {
			return err
		}
		if err := config.WriteValue(target, args[0], value); err != nil {
			return err
		}

		out, err := newWriter(cmd)
		if err != nil {
			return err
		}
		if out.IsStructured() {
			return out.Write(map[string]any{
				"path":  target,
				"key":   args[0],
				"value": value,
			})
		}
		out.Success(fmt.Sprintf("%s = %s (%s)", args[0], formatValue(args[0], value), target))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config files that are read",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := projectPath()
		if err != nil {
			return err
		}
		userPath, projectConfig := config.ConfigPaths(project, flagConfig)
		paths := []configFile{
			{Scope: "user", Path: userPath},
			{Scope: "legacy", Path: config.LegacyConfigPath()},
			{Scope: "project", Path: projectConfig},
		}
		for i := range paths {
			if paths[i].Path == "" {
				continue
			}
			_, err := os.Stat(paths[i].Path)
			paths[i].Exists = err == nil
		}

		out, err := newWriter(cmd)
		if err != nil {
			return err
		}
		if out.IsStructured() {
			return out.Write(paths)
		}
		w := cmd.OutOrStdout()
		for _, p := range paths {
			state := "missing"
			if p.Exists {
				state = "found"
			}
			fmt.Fprintf(w, "%-8s %s (%s)\n", p.Scope, p.Path, state)
		}
		return nil
	},
}

type configFile struct {
	Scope  string `json:"scope"`
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $EDITOR (default: vi)",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := configTarget()
		if err != nil {
			return err
		}

		// Ensure the file exists with at least one key for convenience.
		if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
			if err := config.WriteValue(target, "api.model", config.DefaultConfig().API.Model); err != nil {
				return err
			}
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", target, err)
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}
		// $EDITOR may carry arguments, e.g. "code --wait".
		argv, err := shellwords.Parse(editor)
		if err != nil || len(argv) == 0 {
			return fmt.Errorf("invalid EDITOR %q", editor)
		}
		editCmd := exec.Command(argv[0], append(argv[1:], target)...)
		editCmd.Stdin = os.Stdin
		editCmd.Stdout = os.Stdout
		editCmd.Stderr = os.Stderr
		return editCmd.Run()
	},
}

// loadConfig loads the effective config and reports recovered problems on
// stderr.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	project, err := projectPath()
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(config.LoadOptions{
		ProjectDir:    project,
		ConfigPath:    flagConfig,
		FlagOverrides: flagOverrides(),
	})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	return cfg, nil
}

// configTarget is the file config set and edit write to.
func configTarget() (string, error) {
	project, err := projectPath()
	if err != nil {
		return "", err
	}
	userPath, projectConfig := config.ConfigPaths(project, flagConfig)
	if flagConfigGlobal {
		if userPath == "" {
			return "", errors.New("cannot determine home directory for --global")
		}
		return userPath, nil
	}
	return projectConfig, nil
}

// formatValue renders a value for text output, masking the API key.
func formatValue(key string, val any) string {
	if strings.EqualFold(key, "api.api_key") {
		if s, ok := val.(string); ok && s != "" {
			return maskedSecret
		}
	}
	if list, ok := val.([]string); ok {
		return "[" + strings.Join(list, ", ") + "]"
	}
	return fmt.Sprintf("%v", val)
}

func completeConfigKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, key := range config.Keys() {
		if strings.HasPrefix(key, toComplete) {
			out = append(out, key)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
