package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOllamaChat(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s, want /api/chat", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"deepseek-coder","message":{"role":"assistant","content":"<think>hmm</think>Hello there"},"done":true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(ProviderConfig{Endpoint: srv.URL, Model: "deepseek-coder", Temperature: 0.3})
	resp, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hi"},
	}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Hello there" {
		t.Errorf("Content = %q, want think block stripped", resp.Content)
	}
	if got.Stream {
		t.Error("request should not stream")
	}
	if got.Model != "deepseek-coder" || got.Options.Temperature != 0.3 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestOllamaChatRequestOverrides(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"message":{"content":"ok"}}`))
	}))
	defer srv.Close()

	temp := 0.0
	p := NewOllamaProvider(ProviderConfig{Endpoint: srv.URL + "/api/chat", Model: "a", Temperature: 0.9})
	if _, err := p.Chat(context.Background(), &ChatRequest{Model: "b", Temperature: &temp}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got.Model != "b" || got.Options.Temperature != 0 {
		t.Errorf("request = %+v, want overrides applied", got)
	}
}

func TestOllamaChatFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not found", http.StatusNotFound)
			},
			wantErr: ErrModelUnavailable,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"message":`))
			},
			wantErr: ErrModelUnavailable,
		},
		{
			name: "error field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"error":"out of memory"}`))
			},
			wantErr: ErrModelUnavailable,
		},
		{
			name: "empty content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"message":{"content":"   "}}`))
			},
			wantErr: ErrEmptyResponse,
		},
		{
			name: "only reasoning",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"message":{"content":"<think>nothing to say"}}`))
			},
			wantErr: ErrEmptyResponse,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			p := NewOllamaProvider(ProviderConfig{Endpoint: srv.URL})
			_, err := p.Chat(context.Background(), &ChatRequest{})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestOllamaChatTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := NewOllamaProvider(ProviderConfig{Endpoint: srv.URL, Timeout: 100 * time.Millisecond})
	start := time.Now()
	_, err := p.Chat(context.Background(), &ChatRequest{})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("Chat did not honour its timeout")
	}
}

func TestOllamaUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewOllamaProvider(ProviderConfig{Endpoint: url, Timeout: time.Second})
	if _, err := p.Chat(context.Background(), &ChatRequest{}); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestNormalizeOllamaEndpoint(t *testing.T) {
	tests := map[string]string{
		"http://localhost:11434":           "http://localhost:11434/api/chat",
		"http://localhost:11434/":          "http://localhost:11434/api/chat",
		"http://localhost:11434/api":       "http://localhost:11434/api/chat",
		"http://localhost:11434/api/chat":  "http://localhost:11434/api/chat",
		"http://localhost:11434/api/chat/": "http://localhost:11434/api/chat",
	}
	for in, want := range tests {
		if got := normalizeOllamaEndpoint(in); got != want {
			t.Errorf("normalizeOllamaEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenAIChat(t *testing.T) {
	var got openAIChatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"model":"gpt","choices":[{"message":{"content":"use ` + "```bash\\nls\\n```" + `"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(ProviderConfig{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "gpt"})
	resp, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "list"}}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", auth)
	}
	if !strings.Contains(resp.Content, "```bash\nls\n```") {
		t.Errorf("Content = %q", resp.Content)
	}
	if got.Model != "gpt" || len(got.Messages) != 1 {
		t.Errorf("request = %+v", got)
	}
}

func TestOpenAIChatFailures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		wantErr error
	}{
		{"no choices", `{"choices":[]}`, http.StatusOK, ErrEmptyResponse},
		{"api error", `{"error":{"message":"bad key"}}`, http.StatusOK, ErrModelUnavailable},
		{"unauthorized", `{"error":{"message":"bad key"}}`, http.StatusUnauthorized, ErrModelUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			p := NewOpenAIProvider(ProviderConfig{BaseURL: srv.URL})
			if _, err := p.Chat(context.Background(), &ChatRequest{}); !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"", "ollama", "OLLAMA"} {
		p, err := New(name, ProviderConfig{})
		if err != nil || p.Name() != "ollama" {
			t.Errorf("New(%q) = %v, %v", name, p, err)
		}
	}
	p, err := New("openai", ProviderConfig{})
	if err != nil || p.Name() != "openai" {
		t.Errorf("New(openai) = %v, %v", p, err)
	}
	if _, err := New("bard", ProviderConfig{}); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("New(bard) err = %v, want ErrUnknownProvider", err)
	}
}

func TestStripThinkBlocks(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"<think>a</think>answer", "answer"},
		{"x<think>a</think>y<think>b</think>z", "xyz"},
		{"answer<think>unclosed", "answer"},
		{"  padded  ", "padded"},
	}
	for _, tc := range tests {
		if got := StripThinkBlocks(tc.in); got != tc.want {
			t.Errorf("StripThinkBlocks(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
