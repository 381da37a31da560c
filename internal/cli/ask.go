package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kassist/kassist/internal/assistant"
	"github.com/kassist/kassist/internal/console"
)

func init() {
	rootCmd.AddCommand(askCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask <text>...",
	Short: "Ask one question and exit",
	Long: `Send a single query through the same pipeline as the interactive chat.

A proposed command still goes through the safety gate; the y/N confirmation
is read from stdin and written to stderr so structured output stays clean.

Examples:
  kassist ask "what is my ip address"
  kassist ask --no-confirm "list listening ports" -j`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return fmt.Errorf("query is empty")
		}
		out, err := newWriter(cmd)
		if err != nil {
			return err
		}

		asker := console.NewLineConsole(cmd.InOrStdin(), cmd.ErrOrStderr())
		a, err := newApp(cmd, asker)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		reply := a.assistant.HandleQuery(ctx, query)

		if out.IsStructured() {
			return out.Write(newAskResult(a.assistant.Session().Meta.ID, query, reply))
		}
		if reply.Text != "" {
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
		}
		return nil
	},
}

// askResult is the structured form of one answered query.
type askResult struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	Reply     string `json:"reply"`
	Intent    string `json:"intent,omitempty"`
	Command   string `json:"command,omitempty"`
	Allowed   *bool  `json:"allowed,omitempty"`
	Blocked   bool   `json:"blocked,omitempty"`
	Declined  bool   `json:"declined,omitempty"`
	Rule      string `json:"rule,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
	ExitCode  *int   `json:"exit_code,omitempty"`
	TimedOut  bool   `json:"timed_out,omitempty"`
	Output    string `json:"output,omitempty"`
}

func newAskResult(sessionID, query string, reply assistant.Reply) askResult {
	res := askResult{
		SessionID: sessionID,
		Query:     query,
		Reply:     reply.Text,
		Command:   reply.Command,
		Cancelled: reply.Cancelled,
	}
	if reply.Intent != assistant.IntentNone {
		res.Intent = reply.Intent.String()
	}
	if d := reply.Decision; d != nil {
		allowed := d.Allowed
		res.Allowed = &allowed
		if d.Rule != nil {
			res.Rule = d.Rule.Description
		}
	}
	if r := reply.Result; r != nil {
		res.Blocked = r.Blocked
		res.Declined = r.Declined
		res.TimedOut = r.TimedOut
		res.Output = r.Output
		// A blocked command never ran, so it has no exit status.
		if !r.Blocked {
			code := r.ExitCode
			res.ExitCode = &code
		}
	}
	return res
}
