package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kassist/kassist/internal/console"
)

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Show the quick reference card",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		color := cmd.OutOrStdout() == os.Stdout && console.ColorEnabled(os.Stdout)
		renderGuide(cmd.OutOrStdout(), guideOptions{
			Width:   guideWidth(terminalColumns()),
			Unicode: localeIsUTF8(),
			Styles:  console.NewStyles(color),
		})
	},
}

func init() {
	rootCmd.AddCommand(guideCmd)
}

type guideEntry struct {
	usage string
	desc  string
}

type guideSection struct {
	icon    string
	title   string
	entries []guideEntry
}

var guideSections = []guideSection{
	{"💬", "TALK", []guideEntry{
		{"kassist", "interactive chat (same as kassist chat)"},
		{`kassist ask "which ports are listening"`, "one question, then exit"},
		{`kassist ask -j --no-confirm "disk usage of /var"`, "structured reply, no y/N prompt"},
	}},
	{"⌨️", "IN THE CHAT", []guideEntry{
		{"show system information", "platform, user, root, session start"},
		{"toggle safety", "switch the y/N confirmation on or off"},
		{"conversation history", "recent turns, truncated"},
		{"exit | quit", "end the session (Ctrl-D works too)"},
		{"Ctrl-C", "cancel a confirmation or a running command"},
	}},
	{"🛡️", "SAFETY", []guideEntry{
		{`kassist check "rm -rf /" --exit-code`, "would this be blocked?"},
		{"kassist patterns list", "the danger catalog"},
		{`kassist config set security.extra_patterns 'curl.*\|\s*sh'`, "add your own patterns"},
	}},
	{"🔎", "INSPECT", []guideEntry{
		{"kassist history -q nmap", "commands run or blocked"},
		{"kassist config", "effective configuration"},
		{"kassist config path", "where config is read from"},
	}},
	{"🚩", "GLOBAL FLAGS", []guideEntry{
		{"-j, --json", "structured output"},
		{"--model <name>", "model to ask"},
		{"--endpoint <url>", "Ollama chat endpoint"},
		{"--no-confirm", "skip the y/N prompt"},
		{"--db <path>", "history database"},
	}},
}

type guideOptions struct {
	Width   int
	Unicode bool
	Styles  *console.Styles
}

// renderGuide writes the quick reference card. Without Unicode the card is
// plain indented text with no icons or box.
func renderGuide(w io.Writer, opts guideOptions) {
	s := opts.Styles
	if s == nil {
		s = console.NewStyles(false)
	}

	var b strings.Builder
	b.WriteString(s.Heading("KASSIST QUICK REFERENCE - Conversational Shell Assistant"))
	b.WriteString("\n")
	for _, sec := range guideSections {
		title := sec.title
		if opts.Unicode {
			title = sec.icon + " " + title
		}
		b.WriteString("\n" + s.Heading(title) + "\n")
		for _, e := range sec.entries {
			fmt.Fprintf(&b, "  %s  %s\n", s.Highlight(e.usage), s.Muted(e.desc))
		}
	}
	b.WriteString("\n" + s.Heading("VERDICTS") + "\n")
	fmt.Fprintf(&b, "  %s\n", s.Error(verdictLine(opts.Unicode, "⛔", "BLOCKED: matches a danger pattern, never runs")))
	fmt.Fprintf(&b, "  %s\n", s.Safety(verdictLine(opts.Unicode, "❓", "CONFIRM: shown for y/N unless safety is toggled off")))
	b.WriteString("\n" + s.Muted("HELP: ") + s.Highlight("kassist <command> --help"))

	card := b.String()
	if opts.Unicode {
		card = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2).
			Width(opts.Width).
			Render(card)
	}
	fmt.Fprintln(w, card)
}

func verdictLine(unicode bool, icon, text string) string {
	if unicode {
		return icon + " " + text
	}
	return text
}

// guideWidth keeps the card readable on very narrow or very wide terminals.
func guideWidth(columns int) int {
	return min(max(columns, 72), 100)
}

func terminalColumns() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return 80
}

func localeIsUTF8() bool {
	if strings.EqualFold(os.Getenv("TERM"), "dumb") {
		return false
	}
	for _, name := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		if v := strings.ToLower(os.Getenv(name)); v != "" {
			return strings.Contains(v, "utf-8") || strings.Contains(v, "utf8")
		}
	}
	return false
}
