// Package ollama provides an adapter for the Ollama LLM service.
// It sends chat conversations to a local Ollama instance in JSON mode and
// returns the raw assistant reply; parsing belongs to the callers.
package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ewilliams-labs/moodmix/backend/internal/core/domain"
	"github.com/ewilliams-labs/moodmix/backend/internal/core/ports"
)

const (
	defaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.1:8b"
	defaultTimeout = 60 * time.Second
)

// compile-time interface assertion
var _ ports.ChatModel = (*Client)(nil)

type Client struct {
	http        *resty.Client
	model       string
	temperature float64
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
	Format   string               `json:"format,omitempty"`
	Options  chatOptions          `json:"options"`
}

type chatResponse struct {
	Message domain.ChatMessage `json:"message"`
	Error   string             `json:"error,omitempty"`
}

// Config configures the client. Zero values fall back to local defaults.
type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		model:       model,
		temperature: cfg.Temperature,
	}
}

// Model is the model name requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// Chat sends the conversation and returns the assistant's reply text.
func (c *Client) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	payload := chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Format:   "json",
		Options:  chatOptions{Temperature: c.temperature},
	}

	var parsed chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&parsed).
		SetError(&parsed).
		Post("/api/chat")
	if err != nil {
		return "", fmt.Errorf("ollama: request failed: %w", err)
	}

	if resp.IsError() {
		if parsed.Error != "" {
			return "", fmt.Errorf("ollama: unexpected status %d: %s", resp.StatusCode(), parsed.Error)
		}
		return "", fmt.Errorf("ollama: unexpected status %d", resp.StatusCode())
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama: %s", parsed.Error)
	}

	content := strings.TrimSpace(parsed.Message.Content)
	if content == "" {
		return "", fmt.Errorf("ollama: empty response")
	}
	return content, nil
}
