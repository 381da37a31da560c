// Package llm talks to the language-model backend over HTTP.
// Supports Ollama (local, the default) and OpenAI-compatible APIs.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Model errors.
var (
	// ErrModelUnavailable covers transport failures, timeouts, non-200
	// statuses and undecodable responses.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrEmptyResponse is returned when the model replied with no text.
	ErrEmptyResponse = errors.New("empty model response")
	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown provider")
)

const (
	// maxErrorBodySize limits how much of an error response body is read.
	maxErrorBodySize = 64 * 1024
	// maxResponseSize limits a successful response body.
	maxResponseSize = 8 * 1024 * 1024

	DefaultTimeout     = 30 * time.Second
	DefaultModel       = "deepseek-coder"
	DefaultTemperature = 0.7
	DefaultOllamaURL   = "http://localhost:11434/api/chat"
	DefaultOpenAIURL   = "https://api.openai.com/v1"
)

// Provider is the model collaborator.
type Provider interface {
	// Chat sends the conversation and returns the assistant's reply.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name returns the provider identifier.
	Name() string
}

// Message is one conversation message on the wire.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	// Messages in conversation order, system prompt first.
	Messages []Message `json:"messages"`
	// Model overrides the provider's configured model when set.
	Model string `json:"model,omitempty"`
	// Temperature overrides the configured temperature when non-nil.
	Temperature *float64 `json:"temperature,omitempty"`
}

// ChatResponse is the model's reply.
type ChatResponse struct {
	Content  string        `json:"content"`
	Model    string        `json:"model"`
	Duration time.Duration `json:"duration"`
}

// ProviderConfig configures a provider.
type ProviderConfig struct {
	// Endpoint is the Ollama chat URL.
	Endpoint string
	// BaseURL is the OpenAI-compatible API root.
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	// Timeout bounds one Chat call, including reading the body.
	Timeout time.Duration
}

// DefaultConfig returns the provider defaults.
func DefaultConfig() ProviderConfig {
	return ProviderConfig{
		Endpoint:    DefaultOllamaURL,
		BaseURL:     DefaultOpenAIURL,
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		Timeout:     DefaultTimeout,
	}
}

func (c ProviderConfig) withDefaults() ProviderConfig {
	d := DefaultConfig()
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// New creates the provider named by provider ("ollama" or "openai").
func New(provider string, cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "ollama":
		return NewOllamaProvider(cfg), nil
	case "openai", "openai-compatible":
		return NewOpenAIProvider(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

// unavailable wraps err as ErrModelUnavailable.
func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrModelUnavailable, fmt.Sprintf(format, args...))
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, max))
}

// StripThinkBlocks removes <think>...</think> reasoning blocks. An unclosed
// block is stripped to the end of the string.
func StripThinkBlocks(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "</think>")
		if end == -1 {
			s = s[:start]
			break
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}
	return strings.TrimSpace(s)
}
