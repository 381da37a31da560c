package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kassist/kassist/internal/config"
	"github.com/kassist/kassist/internal/db"
	"github.com/kassist/kassist/internal/output"
	"github.com/kassist/kassist/internal/utils"
)

var (
	flagHistoryQuery   string
	flagHistorySession string
	flagHistoryLimit   int
)

func init() {
	historyCmd.Flags().StringVarP(&flagHistoryQuery, "query", "q", "", "only commands or queries containing this text")
	historyCmd.Flags().StringVar(&flagHistorySession, "session", "", "only commands from this session")
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 50, "max results to return (0 for all)")
	_ = historyCmd.RegisterFlagCompletionFunc("session", completeSessionIDs)

	historySessionsCmd.Flags().IntVar(&flagHistoryLimit, "limit", 50, "max sessions to return (0 for all)")

	historyCmd.AddCommand(historySessionsCmd)
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse commands the assistant ran or blocked",
	Long: `Browse the command history recorded by chat and ask sessions, newest first.

Examples:
  kassist history                      # Show recent commands
  kassist history -q nmap              # Commands or queries mentioning nmap
  kassist history --session <id>       # One session
  kassist history sessions             # List recorded sessions`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := newWriter(cmd)
		if err != nil {
			return err
		}
		conn, err := openHistoryDB(cmd)
		if err != nil {
			return err
		}
		if conn == nil {
			return writeEmptyHistory(out, cmd)
		}
		defer conn.Close()

		executions, err := conn.ListExecutions(db.ListOptions{
			SessionID: flagHistorySession,
			Query:     flagHistoryQuery,
			Limit:     flagHistoryLimit,
		})
		if err != nil {
			return fmt.Errorf("listing history: %w", err)
		}

		if out.IsStructured() {
			return out.Write(executions)
		}
		table := output.Table{Headers: []string{"ID", "WHEN", "STATUS", "COMMAND", "QUERY"}}
		for _, e := range executions {
			table.Rows = append(table.Rows, []string{
				strconv.FormatInt(e.ID, 10),
				e.CreatedAt.Local().Format(time.DateTime),
				executionStatus(e),
				utils.Ellipsize(e.Command, 60),
				utils.Ellipsize(e.Query, 40),
			})
		}
		return out.Write(table)
	},
}

var historySessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := newWriter(cmd)
		if err != nil {
			return err
		}
		conn, err := openHistoryDB(cmd)
		if err != nil {
			return err
		}
		if conn == nil {
			return writeEmptyHistory(out, cmd)
		}
		defer conn.Close()

		sessions, err := conn.ListSessions(flagHistoryLimit)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		if out.IsStructured() {
			return out.Write(sessions)
		}
		table := output.Table{Headers: []string{"ID", "STARTED", "USER", "MODEL", "PLATFORM"}}
		for _, s := range sessions {
			table.Rows = append(table.Rows, []string{
				s.ID,
				s.StartedAt.Local().Format(time.DateTime),
				s.User,
				s.Model,
				s.Platform,
			})
		}
		return out.Write(table)
	},
}

// openHistoryDB opens the configured history database. It returns nil when
// no database has been created yet.
func openHistoryDB(cmd *cobra.Command) (*db.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	path := config.ExpandPath(cfg.History.DatabasePath)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	conn, err := db.OpenAndMigrate(path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	return conn, nil
}

func writeEmptyHistory(out *output.Writer, cmd *cobra.Command) error {
	if out.IsStructured() {
		return out.Write([]any{})
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "No history recorded yet.")
	return nil
}

func executionStatus(e *db.Execution) string {
	switch {
	case e.Blocked && e.Confirmed != nil && !*e.Confirmed:
		return "declined"
	case e.Blocked:
		return "blocked"
	case e.TimedOut:
		return "timeout"
	default:
		return "exit " + strconv.Itoa(e.ExitCode)
	}
}
