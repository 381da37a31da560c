package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kassist/kassist/internal/assistant"
	"github.com/kassist/kassist/internal/config"
	"github.com/kassist/kassist/internal/console"
	"github.com/kassist/kassist/internal/core"
)

const (
	goodbyeMessage = "Goodbye! Have a great day."
	interruptHint  = "Type 'exit' to quit"
	inputHistory   = "~/.kassist/input_history"
)

func runChat(cmd *cobra.Command, args []string) error {
	con, color, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer con.Close()

	styles := console.NewStyles(color)
	a, err := newApp(cmd, safetyAsker(con, styles))
	if err != nil {
		return err
	}
	defer a.Close()

	w := con.Writer()
	fmt.Fprintln(w, styles.Banner())
	fmt.Fprintln(w, styles.Greeting(a.assistant.Session().Meta.User))

	err = chatLoop(cmd.Context(), con, a.assistant, styles)
	a.logger.Info("session ended", "session", a.assistant.Session().Meta.ID)
	return err
}

// chatLoop reads turns until exit, EOF or a console failure. Each turn gets
// its own interrupt-cancelled context so Ctrl-C stops the running model call
// or command without ending the session.
func chatLoop(ctx context.Context, con console.Interactive, a *assistant.Assistant, styles *console.Styles) error {
	w := con.Writer()
	for {
		line, err := con.ReadLine(ctx, "\n"+styles.Prompt())
		switch {
		case errors.Is(err, console.ErrInterrupted):
			fmt.Fprintln(w, styles.Muted(interruptHint))
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(w, "\n"+goodbyeMessage)
			return nil
		case err != nil:
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		start := time.Now()
		reply := a.HandleQuery(turnCtx, line)
		stop()

		if reply.Exit {
			fmt.Fprintln(w, "\n"+goodbyeMessage)
			return nil
		}
		fmt.Fprintln(w, "\n"+styles.AssistantHeader(time.Since(start)))
		fmt.Fprintln(w, styles.Reply(reply.Text))
	}
}

// openConsole uses readline on a real terminal. Injected input (tests, or a
// caller-provided reader) gets a plain line console on the command streams.
func openConsole(cmd *cobra.Command) (console.Interactive, bool, error) {
	in := cmd.InOrStdin()
	if in != os.Stdin {
		return console.NewLineConsole(in, cmd.OutOrStdout()), false, nil
	}

	history := config.ExpandPath(inputHistory)
	if err := os.MkdirAll(filepath.Dir(history), 0o755); err != nil {
		history = ""
	}
	con, err := console.Open(history)
	if err != nil {
		return nil, false, err
	}
	return con, console.ColorEnabled(os.Stdout), nil
}

// safetyAsker styles the confirmation prompt line by line before handing it
// to the console.
func safetyAsker(con console.Interactive, styles *console.Styles) core.Asker {
	return core.AskFunc(func(ctx context.Context, prompt string) (string, error) {
		lines := strings.Split(prompt, "\n")
		for i, line := range lines {
			if line != "" {
				lines[i] = styles.Safety(line)
			}
		}
		return con.Ask(ctx, strings.Join(lines, "\n"))
	})
}
