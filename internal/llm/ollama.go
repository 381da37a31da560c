package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider implements Provider for a local or remote Ollama server.
type OllamaProvider struct {
	config ProviderConfig
	client *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(cfg ProviderConfig) *OllamaProvider {
	cfg = cfg.withDefaults()
	cfg.Endpoint = normalizeOllamaEndpoint(cfg.Endpoint)
	return &OllamaProvider{
		config: cfg,
		// No Client.Timeout: the per-call context carries the deadline.
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// normalizeOllamaEndpoint accepts either the server root or the full chat URL.
func normalizeOllamaEndpoint(raw string) string {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	if strings.HasSuffix(s, "/api/chat") {
		return s
	}
	s = strings.TrimSuffix(s, "/api")
	return s + "/api/chat"
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Endpoint returns the chat URL requests are sent to.
func (p *OllamaProvider) Endpoint() string {
	return p.config.Endpoint
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Chat sends a non-streaming chat request to Ollama.
func (p *OllamaProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	ollamaReq := ollamaChatRequest{
		Model:    p.config.Model,
		Messages: req.Messages,
		Stream:   false,
		Options:  ollamaOptions{Temperature: p.config.Temperature},
	}
	if req.Model != "" {
		ollamaReq.Model = req.Model
	}
	if req.Temperature != nil {
		ollamaReq.Options.Temperature = *req.Temperature
	}

	body, err := json.Marshal(ollamaReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, unavailable("ollama request timed out after %v", p.config.Timeout)
		}
		return nil, unavailable("execute request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := readLimited(resp.Body, maxErrorBodySize)
		return nil, unavailable("ollama error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	respBody, err := readLimited(resp.Body, maxResponseSize)
	if err != nil {
		return nil, unavailable("read response: %v", err)
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, unavailable("decode response: %v", err)
	}
	if chatResp.Error != "" {
		return nil, unavailable("ollama error: %s", chatResp.Error)
	}

	content := StripThinkBlocks(chatResp.Message.Content)
	if content == "" {
		return nil, ErrEmptyResponse
	}

	return &ChatResponse{
		Content:  content,
		Model:    chatResp.Model,
		Duration: time.Since(start),
	}, nil
}
