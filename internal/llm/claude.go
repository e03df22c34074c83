package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"

// ClaudeClient calls the Anthropic Messages API.
type ClaudeClient struct {
	apiKey     string
	settings   Settings
	endpoint   string
	httpClient *http.Client
	log        *slog.Logger
	Stats      *LLMStats
}

func NewClaudeClient(apiKey string, settings Settings, timeout time.Duration, log *slog.Logger) *ClaudeClient {
	if settings.Model == "" {
		settings.Model = "claude-sonnet-4-5-20250929"
	}
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = 512
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &ClaudeClient{
		apiKey:     apiKey,
		settings:   settings,
		endpoint:   anthropicURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
		Stats:      NewLLMStats(time.Hour),
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ClaudeClient) Model() string { return c.settings.Model }

// Answer sends the legal prompt and returns the text of the reply.
func (c *ClaudeClient) Answer(ctx context.Context, req Request) (string, error) {
	return withRetry(ctx, c.log, c.Stats, c.settings.Model, func(ctx context.Context) (string, error) {
		return c.call(ctx, BuildUserPrompt(req))
	})
}

func (c *ClaudeClient) call(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:       c.settings.Model,
		MaxTokens:   c.settings.MaxTokens,
		Temperature: c.settings.Temperature,
		System:      SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("claude api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("claude api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("claude error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	var sb strings.Builder
	for _, part := range apiResp.Content {
		if part.Type == "text" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from claude")
	}
	return sb.String(), nil
}

// Close releases resources.
func (c *ClaudeClient) Close() {
	c.httpClient.CloseIdleConnections()
}
