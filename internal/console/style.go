package console

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Catppuccin Mocha color palette
var (
	colorMauve   = lipgloss.Color("#cba6f7") // Banner
	colorBlue    = lipgloss.Color("#89b4fa") // Assistant header
	colorGreen   = lipgloss.Color("#a6e3a1") // Success
	colorYellow  = lipgloss.Color("#f9e2af") // Safety prompt
	colorRed     = lipgloss.Color("#f38ba8") // Blocked / failed
	colorOverlay = lipgloss.Color("#6c7086") // Muted text
)

const bannerWidth = 50

// Styles renders console text. The zero value renders plain text.
type Styles struct {
	color bool

	banner    lipgloss.Style
	header    lipgloss.Style
	safety    lipgloss.Style
	success   lipgloss.Style
	failure   lipgloss.Style
	muted     lipgloss.Style
	userLabel lipgloss.Style
}

// NewStyles returns styles that add color only when color is true.
func NewStyles(color bool) *Styles {
	return &Styles{
		color:     color,
		banner:    lipgloss.NewStyle().Bold(true).Foreground(colorMauve),
		header:    lipgloss.NewStyle().Bold(true).Foreground(colorBlue),
		safety:    lipgloss.NewStyle().Bold(true).Foreground(colorYellow),
		success:   lipgloss.NewStyle().Foreground(colorGreen),
		failure:   lipgloss.NewStyle().Bold(true).Foreground(colorRed),
		muted:     lipgloss.NewStyle().Foreground(colorOverlay),
		userLabel: lipgloss.NewStyle().Bold(true),
	}
}

func (s *Styles) render(style lipgloss.Style, text string) string {
	if !s.color {
		return text
	}
	return style.Render(text)
}

// Banner is printed once when the REPL starts.
func (s *Styles) Banner() string {
	rule := strings.Repeat("=", bannerWidth)
	lines := []string{
		rule,
		s.render(s.banner, "KALI LINUX CONVERSATIONAL ASSISTANT"),
		rule,
		"Type naturally - I can help with security, Linux, coding, or general questions",
		s.render(s.muted, "Special requests: 'show system information', 'toggle safety', 'conversation history', 'exit'"),
		rule,
	}
	return strings.Join(lines, "\n") + "\n"
}

// Greeting welcomes user by name.
func (s *Styles) Greeting(user string) string {
	return fmt.Sprintf("Hello %s! How can I help you today?", user)
}

// Prompt is the input prompt for a conversation turn.
func (s *Styles) Prompt() string {
	return s.render(s.userLabel, "You: ")
}

// AssistantHeader precedes every reply with the response time.
func (s *Styles) AssistantHeader(elapsed time.Duration) string {
	return s.render(s.header, fmt.Sprintf("Assistant (%.2fs):", elapsed.Seconds()))
}

// Reply colors the command status lines of a reply and leaves the rest alone.
func (s *Styles) Reply(text string) string {
	if !s.color {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "Command executed successfully:"):
			lines[i] = s.success.Render(line)
		case strings.HasPrefix(line, "Command failed"), strings.HasPrefix(line, "Command blocked"),
			strings.HasPrefix(line, "Command not confirmed"):
			lines[i] = s.failure.Render(line)
		case strings.HasPrefix(line, "[Safety]"):
			lines[i] = s.safety.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// Safety renders the confirmation prompt.
func (s *Styles) Safety(prompt string) string {
	return s.render(s.safety, prompt)
}

// Heading renders a section title.
func (s *Styles) Heading(text string) string {
	return s.render(s.header, text)
}

// Highlight renders something the user can type, such as a command or flag.
func (s *Styles) Highlight(text string) string {
	return s.render(s.success, text)
}

// Muted renders secondary text such as hints.
func (s *Styles) Muted(text string) string {
	return s.render(s.muted, text)
}

// Error renders an error line.
func (s *Styles) Error(text string) string {
	return s.render(s.failure, text)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// ColorEnabled decides whether to style output written to f.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" || strings.EqualFold(os.Getenv("TERM"), "dumb") {
		return false
	}
	return IsTerminal(f)
}
