package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Gate errors.
var (
	ErrCommandBlocked  = errors.New("command blocked by safety system")
	ErrPromptCancelled = errors.New("confirmation prompt cancelled")
)

// AffirmativeAnswer is the only answer that approves a command.
const AffirmativeAnswer = "y"

// Asker asks the human operator a question and returns the raw answer.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// AskFunc adapts a function to the Asker interface.
type AskFunc func(ctx context.Context, prompt string) (string, error)

// Ask calls f.
func (f AskFunc) Ask(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// SafetyDecision records how the gate ruled on one command.
type SafetyDecision struct {
	Command string
	// BlockedByPattern is set when a danger rule vetoed the command.
	BlockedByPattern bool
	// Rule is the matching danger rule, if any.
	Rule *Rule
	// Confirmed is nil when no prompt was shown.
	Confirmed *bool
	Allowed   bool
}

// Reason returns a short human-readable explanation of the decision.
func (d SafetyDecision) Reason() string {
	switch {
	case d.BlockedByPattern && d.Rule != nil:
		return fmt.Sprintf("matches danger rule: %s", d.Rule.Description)
	case d.BlockedByPattern:
		return "matches danger rule"
	case d.Confirmed != nil && !*d.Confirmed:
		return "not confirmed by user"
	case d.Allowed:
		return "allowed"
	default:
		return "denied"
	}
}

// Gate combines the danger veto with the confirmation policy.
type Gate struct {
	matcher *Matcher
}

// NewGate creates a gate over the given matcher (the built-in catalog when nil).
func NewGate(matcher *Matcher) *Gate {
	if matcher == nil {
		matcher = NewMatcher()
	}
	return &Gate{matcher: matcher}
}

// Matcher returns the gate's danger matcher.
func (g *Gate) Matcher() *Matcher {
	return g.matcher
}

// ConfirmationPrompt is the text shown to the operator before running command.
func ConfirmationPrompt(command string) string {
	return fmt.Sprintf("\n[Safety] Command to execute: %s\n[Safety] Execute command? (y/N): ", command)
}

// Authorize decides whether command may run.
//
// A danger match rejects without prompting and cannot be overridden. Otherwise
// the command is allowed outright when requireConfirmation is false, or only
// after the operator answers "y" (trimmed, case-insensitive).
//
// The returned error is non-nil only when the prompt was cancelled
// (ErrPromptCancelled or a done context); the decision is then a denial.
func (g *Gate) Authorize(ctx context.Context, command string, requireConfirmation bool, ask Asker) (SafetyDecision, error) {
	decision := SafetyDecision{Command: command}

	if rule := g.matcher.Match(command); rule != nil {
		decision.BlockedByPattern = true
		decision.Rule = rule
		return decision, nil
	}

	if !requireConfirmation {
		decision.Allowed = true
		return decision, nil
	}

	if ask == nil {
		confirmed := false
		decision.Confirmed = &confirmed
		return decision, nil
	}

	answer, err := ask.Ask(ctx, ConfirmationPrompt(command))
	if err != nil {
		confirmed := false
		decision.Confirmed = &confirmed
		if errors.Is(err, ErrPromptCancelled) {
			return decision, err
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return decision, fmt.Errorf("%w: %v", ErrPromptCancelled, err)
		}
		// Any other prompt failure (EOF, closed input) denies.
		return decision, nil
	}

	confirmed := strings.ToLower(strings.TrimSpace(answer)) == AffirmativeAnswer
	decision.Confirmed = &confirmed
	decision.Allowed = confirmed
	return decision, nil
}
