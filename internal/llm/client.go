// Package llm talks to an OpenAI-compatible chat-completion endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"quranrag/internal/domain"
	"quranrag/internal/observability"
)

// Client implements domain.Generator. Calls are not retried.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature *float64
	client      *http.Client
	logger      *slog.Logger
}

type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature *float64
	// Timeout bounds one completion. Zero leaves it to the request context.
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "AIML_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.aimlapi.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4-turbo"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      key,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      cfg.Logger,
	}, nil
}

func (c *Client) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message and returns the reply text.
// Every failure wraps domain.ErrUpstream.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := observability.StartLLMSpan(ctx, c.model)
	defer span.End()

	out, err := c.complete(ctx, prompt)
	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}
	return out, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrUpstream, ctx.Err())
		}
		return "", fmt.Errorf("%w: chat completion: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrUpstream, err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: chat completion failed: %s: %s", domain.ErrUpstream, resp.Status, truncate(payload, 200))
	}
	var out chatResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrUpstream, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstream, errNoChoices)
	}
	c.logger.Debug("chat completion", "model", c.model, "duration", time.Since(start))
	return out.Choices[0].Message.Content, nil
}

var errNoChoices = errors.New("no choices returned")

// truncate shortens b to at most n runes.
func truncate(b []byte, n int) string {
	r := []rune(strings.TrimSpace(string(b)))
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return string(r)
}
