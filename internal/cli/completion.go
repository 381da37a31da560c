package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kassist/kassist/internal/config"
	"github.com/kassist/kassist/internal/db"
)

var completionCmd = &cobra.Command{
	Use:       "completion [bash|zsh|fish|powershell]",
	Short:     "Generate shell completion scripts",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(w, true)
		case "zsh":
			return rootCmd.GenZshCompletion(w)
		case "fish":
			return rootCmd.GenFishCompletion(w, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(w)
		default:
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// completeSessionIDs offers recorded session IDs, newest first. It never
// creates the history database.
func completeSessionIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	project, _ := projectPath()
	cfg, _ := config.Load(config.LoadOptions{
		ProjectDir:    project,
		ConfigPath:    flagConfig,
		FlagOverrides: flagOverrides(),
	})
	path := config.ExpandPath(cfg.History.DatabasePath)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	conn, err := db.Open(path)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer conn.Close()

	sessions, err := conn.ListSessions(0)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		if s == nil || s.ID == "" {
			continue
		}
		if toComplete != "" && !strings.HasPrefix(s.ID, toComplete) {
			continue
		}
		desc := s.User
		if s.Model != "" {
			desc += " (" + s.Model + ")"
		}
		desc += " " + s.StartedAt.Local().Format("2006-01-02 15:04")
		out = append(out, s.ID+"\t"+desc)
	}

	return out, cobra.ShellCompDirectiveNoFileComp
}
