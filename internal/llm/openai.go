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

// OpenAIProvider implements Provider for OpenAI-compatible chat completion APIs.
type OpenAIProvider struct {
	config ProviderConfig
	client *http.Client
}

// NewOpenAIProvider creates a new OpenAI-compatible provider.
func NewOpenAIProvider(cfg ProviderConfig) *OpenAIProvider {
	cfg = cfg.withDefaults()
	cfg.BaseURL = normalizeBaseURL(cfg.BaseURL)
	return &OpenAIProvider{
		config: cfg,
		client: &http.Client{},
	}
}

// normalizeBaseURL strips trailing slashes and a "/chat/completions" suffix so
// the path is never doubled.
func normalizeBaseURL(raw string) string {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	return strings.TrimSuffix(s, "/chat/completions")
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

type openAIChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat sends a chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	payload := openAIChatRequest{
		Model:       p.config.Model,
		Messages:    req.Messages,
		Temperature: p.config.Temperature,
	}
	if req.Model != "" {
		payload.Model = req.Model
	}
	if req.Temperature != nil {
		payload.Temperature = *req.Temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, unavailable("request timed out after %v", p.config.Timeout)
		}
		return nil, unavailable("http request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := readLimited(resp.Body, maxErrorBodySize)
		return nil, unavailable("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	respBody, err := readLimited(resp.Body, maxResponseSize)
	if err != nil {
		return nil, unavailable("read response: %v", err)
	}

	var chatResp openAIChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, unavailable("unmarshal response: %v", err)
	}
	if chatResp.Error != nil {
		return nil, unavailable("API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	content := StripThinkBlocks(chatResp.Choices[0].Message.Content)
	if content == "" {
		return nil, ErrEmptyResponse
	}

	return &ChatResponse{
		Content:  content,
		Model:    chatResp.Model,
		Duration: time.Since(start),
	}, nil
}
