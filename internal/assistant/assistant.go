// Package assistant runs one user turn: intent check, model query, command
// extraction, the safety gate, execution and fold-back into the conversation.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kassist/kassist/internal/conversation"
	"github.com/kassist/kassist/internal/core"
	"github.com/kassist/kassist/internal/db"
	"github.com/kassist/kassist/internal/llm"
	"github.com/kassist/kassist/internal/session"
	"github.com/kassist/kassist/internal/utils"
)

// FallbackMessage replaces the model reply when the model call fails.
const FallbackMessage = "I encountered an error processing your request. Please try again."

// foldBackLimit is how much command output, in characters, is folded back.
const foldBackLimit = 500

// Recorder persists executed commands. *db.DB implements it.
type Recorder interface {
	RecordExecution(e *db.Execution) error
}

// Deps are the collaborators injected into an Assistant.
type Deps struct {
	Model  llm.Provider
	Runner core.Runner
	Asker  core.Asker
	// Gate defaults to the built-in danger catalog.
	Gate *core.Gate
	// Recorder is optional.
	Recorder Recorder
	// Logger defaults to a discarding logger.
	Logger *log.Logger
}

// Reply is the outcome of one user turn.
type Reply struct {
	Text string
	// Exit asks the caller to end the session; Text is empty.
	Exit   bool
	Intent Intent
	// Cancelled is set when the confirmation prompt was interrupted; no
	// result was folded back.
	Cancelled bool
	Command   string
	Decision  *core.SafetyDecision
	Result    *core.ExecutionResult
}

// Assistant is the per-session query orchestrator.
type Assistant struct {
	sess     *session.Session
	model    llm.Provider
	runner   core.Runner
	asker    core.Asker
	gate     *core.Gate
	recorder Recorder
	logger   *log.Logger
}

// New wires an assistant for sess.
func New(sess *session.Session, deps Deps) *Assistant {
	gate := deps.Gate
	if gate == nil {
		gate = core.NewGate(nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Assistant{
		sess:     sess,
		model:    deps.Model,
		runner:   deps.Runner,
		asker:    deps.Asker,
		gate:     gate,
		recorder: deps.Recorder,
		logger:   logger.WithPrefix("assistant"),
	}
}

// Session returns the session this assistant serves.
func (a *Assistant) Session() *session.Session {
	return a.sess
}

// HandleQuery processes one user turn. It never returns an error and never
// panics: every collaborator failure becomes reply text.
func (a *Assistant) HandleQuery(ctx context.Context, input string) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("query panicked", "panic", r)
			reply = Reply{Text: FallbackMessage}
		}
	}()

	a.sess.Context.Append(conversation.RoleUser, input)

	if intent := DetectIntent(input); intent != IntentNone {
		return a.handleIntent(intent)
	}

	text, err := a.queryModel(ctx)
	if err != nil {
		a.logger.Error("API error", "err", err)
		text = FallbackMessage
	}
	a.sess.Context.Append(conversation.RoleAssistant, text)
	reply.Text = text
	if err != nil {
		return reply
	}

	command, ok := ExtractCommand(text)
	if !ok {
		return reply
	}
	reply.Command = command

	decision, err := a.gate.Authorize(ctx, command, a.sess.RequireConfirmation(), a.asker)
	reply.Decision = &decision
	if err != nil {
		a.logger.Info("command cancelled", "session", a.sess.Meta.ID, "command", command)
		reply.Cancelled = true
		reply.Text += "\n\nCommand cancelled:\n" + fence(command)
		return reply
	}

	var result *core.ExecutionResult
	if decision.Allowed {
		result = a.run(ctx, command)
	} else if decision.BlockedByPattern {
		result = core.BlockedResult(command)
	} else {
		result = core.DeclinedResult(command)
	}
	reply.Result = result

	a.sess.Context.Append(conversation.RoleSystemNote, foldBackNote(result))
	a.logExecution(result)
	a.record(input, decision, result)

	reply.Text += summary(result)
	return reply
}

func (a *Assistant) handleIntent(intent Intent) Reply {
	reply := Reply{Intent: intent}
	switch intent {
	case IntentExit:
		reply.Exit = true
	case IntentToggleSafety:
		state := "DISABLED"
		if a.sess.ToggleSafety() {
			state = "ENABLED"
		}
		a.logger.Info("safety confirmation toggled", "session", a.sess.Meta.ID, "state", state)
		reply.Text = fmt.Sprintf("Safety checks have been %s. Dangerous commands are always blocked.", state)
	case IntentSystemInfo:
		var b strings.Builder
		b.WriteString("System Information:")
		for _, item := range a.sess.SystemInfo() {
			fmt.Fprintf(&b, "\n%s: %s", item.Key, item.Value)
		}
		reply.Text = b.String()
	case IntentHistory:
		var b strings.Builder
		b.WriteString("Recent Conversation History:")
		for i, turn := range a.sess.Context.History() {
			fmt.Fprintf(&b, "\n%d. %s: %s", i+1, turn.Role, utils.Ellipsize(turn.Content, 60))
		}
		reply.Text = b.String()
	}
	return reply
}

func (a *Assistant) queryModel(ctx context.Context) (string, error) {
	if a.model == nil {
		return "", llm.ErrModelUnavailable
	}
	snapshot := a.sess.Context.Snapshot()
	messages := make([]llm.Message, 0, len(snapshot))
	for _, turn := range snapshot {
		role := string(turn.Role)
		// Providers only know system/user/assistant.
		if turn.Role == conversation.RoleSystemNote {
			role = string(conversation.RoleSystem)
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}

	resp, err := a.model.Chat(ctx, &llm.ChatRequest{Messages: messages})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", llm.ErrEmptyResponse
	}
	text := strings.TrimSpace(llm.StripThinkBlocks(resp.Content))
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func (a *Assistant) run(ctx context.Context, command string) *core.ExecutionResult {
	if a.runner == nil {
		return &core.ExecutionResult{
			Command:  command,
			Output:   "Execution error: no command runner",
			ExitCode: 1,
			Error:    "Execution error: no command runner",
		}
	}
	start := time.Now()
	result := a.runner.Run(ctx, command)
	if result == nil {
		return &core.ExecutionResult{
			Command:  command,
			Output:   "Execution error: runner returned no result",
			ExitCode: 1,
			Error:    "Execution error: runner returned no result",
			Duration: time.Since(start),
		}
	}
	return result
}

func (a *Assistant) logExecution(result *core.ExecutionResult) {
	a.logger.Info("command executed",
		"session", a.sess.Meta.ID,
		"command", result.Command,
		"exit", result.ExitCode,
		"timed_out", result.TimedOut,
		"blocked", result.Blocked,
		"declined", result.Declined,
		"output", utils.Ellipsize(utils.SanitizeOutput(result.Output), foldBackLimit),
	)
	if err := result.Err(); err != nil && !errors.Is(err, core.ErrCommandBlocked) {
		a.logger.Debug("command did not succeed", "err", err)
	}
}

func (a *Assistant) record(query string, decision core.SafetyDecision, result *core.ExecutionResult) {
	if a.recorder == nil {
		return
	}
	err := a.recorder.RecordExecution(&db.Execution{
		SessionID: a.sess.Meta.ID,
		Query:     query,
		Command:   result.Command,
		Output:    result.Output,
		ExitCode:  result.ExitCode,
		TimedOut:  result.TimedOut,
		Blocked:   result.Blocked,
		Confirmed: decision.Confirmed,
		Duration:  result.Duration,
	})
	if err != nil {
		a.logger.Warn("recording command history failed", "err", err)
	}
}

func fence(command string) string {
	return "```bash\n" + command + "\n```"
}

// foldBackNote is the system-note turn the model sees on its next call.
func foldBackNote(result *core.ExecutionResult) string {
	if result.Declined {
		return "Command not confirmed by user:\n" + fence(result.Command)
	}
	if result.Blocked {
		return "Command blocked by safety system:\n" + fence(result.Command)
	}
	output := utils.Ellipsize(utils.SanitizeOutput(result.Output), foldBackLimit)
	return fmt.Sprintf("Command executed:\n%s\nExit code: %d\nOutput:\n%s",
		fence(result.Command), result.ExitCode, output)
}

// summary is appended to the model's reply.
func summary(result *core.ExecutionResult) string {
	var b strings.Builder
	switch {
	case result.Declined:
		b.WriteString("\n\nCommand not confirmed:\n")
	case result.Blocked:
		b.WriteString("\n\nCommand blocked by safety system:\n")
	case result.Success():
		b.WriteString("\n\nCommand executed successfully:\n")
	default:
		fmt.Fprintf(&b, "\n\nCommand failed (exit %d):\n", result.ExitCode)
	}
	b.WriteString(fence(result.Command))
	if !result.Blocked {
		if out := strings.TrimRight(utils.SanitizeOutput(result.Output), "\n"); out != "" {
			b.WriteString("\nOutput:\n")
			b.WriteString(out)
		}
	}
	return b.String()
}
