package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

// Client is an OpenAI-compatible embeddings client implementing the Embedder interface.
// It embeds queries for stores whose vectors were produced by the same model.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  atomic.Int64
	client     *http.Client
	maxRetries int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		client:     &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Model returns the embedding model the client requests.
func (c *Client) Model() string { return c.model }

// Prepare is not required for remote embedding. Dimension is set on first embed.
func (c *Client) Prepare(corpus []string) error { return nil }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

// Embed returns an embedding vector for the given text, retrying on 429 and 5xx.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(struct {
		Input string `json:"input"`
		Model string `json:"model"`
	}{Input: text, Model: c.model})
	if err != nil {
		return nil, err
	}
	url := c.baseURL + "/embeddings"
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, lastDelay(lastErr, attempt-1)); err != nil {
				return nil, err
			}
		}
		vec, err := c.embedOnce(ctx, url, body)
		if err == nil {
			c.dimension.CompareAndSwap(0, int64(len(vec)))
			return vec, nil
		}
		lastErr = err
		var re *retryableError
		if !errors.As(err, &re) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("openai embeddings: max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

func (c *Client) embedOnce(ctx context.Context, url string, body []byte) ([]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &retryableError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		re := &retryableError{err: fmt.Errorf("openai embeddings failed: %s", resp.Status)}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			re.after = time.Duration(secs) * time.Second
		}
		return nil, re
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai embeddings failed: %s", resp.Status)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{err: err}
	}
	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
		// Ollama-native shape.
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}
	if len(out.Data) > 0 && len(out.Data[0].Embedding) > 0 {
		return out.Data[0].Embedding, nil
	}
	if len(out.Embedding) > 0 {
		return out.Embedding, nil
	}
	return nil, errors.New("no embedding returned")
}

type retryableError struct {
	err   error
	after time.Duration
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func lastDelay(err error, attempt int) time.Duration {
	var re *retryableError
	if errors.As(err, &re) && re.after > 0 {
		return re.after
	}
	return retryDelay(attempt)
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// exponential backoff capped at 5s
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
