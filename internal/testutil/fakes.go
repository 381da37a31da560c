package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/kassist/kassist/internal/core"
	"github.com/kassist/kassist/internal/llm"
)

// FakeProvider is an llm.Provider that replays scripted replies.
type FakeProvider struct {
	mu sync.Mutex

	// Replies are returned in order; the last one repeats.
	Replies []string
	// Err, when set, is returned by every Chat call instead of a reply.
	Err error
	// Requests records a copy of every request received.
	Requests []llm.ChatRequest
}

// NewFakeProvider returns a provider that answers with replies in order.
func NewFakeProvider(replies ...string) *FakeProvider {
	return &FakeProvider{Replies: replies}
}

// Chat records req and returns the next reply.
func (p *FakeProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cp := *req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	p.Requests = append(p.Requests, cp)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Replies) == 0 {
		return nil, llm.ErrEmptyResponse
	}
	i := len(p.Requests) - 1
	if i >= len(p.Replies) {
		i = len(p.Replies) - 1
	}
	return &llm.ChatResponse{Content: p.Replies[i], Model: "fake"}, nil
}

// Name returns "fake".
func (p *FakeProvider) Name() string { return "fake" }

// Calls returns how many Chat calls were made.
func (p *FakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}

// LastRequest returns the most recent request, or nil.
func (p *FakeProvider) LastRequest() *llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Requests) == 0 {
		return nil
	}
	req := p.Requests[len(p.Requests)-1]
	return &req
}

// FakeRunner is a core.Runner that records commands instead of running them.
type FakeRunner struct {
	mu sync.Mutex

	// Result is returned (with Command filled in) for every call.
	Result *core.ExecutionResult
	// ResultFunc, when set, replaces Result.
	ResultFunc func(command string) *core.ExecutionResult
	// Commands lists every command received.
	Commands []string
}

// NewFakeRunner returns a runner that always reports result.
func NewFakeRunner(result *core.ExecutionResult) *FakeRunner {
	return &FakeRunner{Result: result}
}

// Run records command and returns the configured result.
func (r *FakeRunner) Run(_ context.Context, command string) *core.ExecutionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Commands = append(r.Commands, command)

	var res core.ExecutionResult
	switch {
	case r.ResultFunc != nil:
		res = *r.ResultFunc(command)
	case r.Result != nil:
		res = *r.Result
	}
	res.Command = command
	return &res
}

// Calls returns how many commands were run.
func (r *FakeRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Commands)
}

// ScriptedAsker is a core.Asker answering from a fixed script. Once the
// script is exhausted it returns io.EOF, like a closed stdin.
type ScriptedAsker struct {
	mu sync.Mutex

	Answers []string
	// Err, when set, is returned by every Ask call.
	Err error
	// Prompts lists every prompt shown.
	Prompts []string
}

// NewScriptedAsker returns an asker that gives answers in order.
func NewScriptedAsker(answers ...string) *ScriptedAsker {
	return &ScriptedAsker{Answers: answers}
}

// Ask records prompt and returns the next scripted answer.
func (a *ScriptedAsker) Ask(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Prompts = append(a.Prompts, prompt)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if a.Err != nil {
		return "", a.Err
	}
	if len(a.Answers) == 0 {
		return "", io.EOF
	}
	answer := a.Answers[0]
	a.Answers = a.Answers[1:]
	return answer, nil
}

// Asked returns how many prompts were shown.
func (a *ScriptedAsker) Asked() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Prompts)
}

var (
	_ llm.Provider = (*FakeProvider)(nil)
	_ core.Runner  = (*FakeRunner)(nil)
	_ core.Asker   = (*ScriptedAsker)(nil)
)
