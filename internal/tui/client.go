package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quranrag/internal/domain"
)

// Answer is the decoded body of a successful POST /query.
type Answer struct {
	Answer       string   `json:"answer"`
	ResponseTime float64  `json:"response_time"`
	Context      []string `json:"context"`
}

// Client calls the question-answering HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Ask posts a question. Conversation history is kept by the server.
func (c *Client) Ask(ctx context.Context, question string) (*Answer, error) {
	body, err := json.Marshal(domain.QueryRequest{Question: question})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(payload, &e) == nil && e.Detail != "" {
			return nil, fmt.Errorf("%d: %s", resp.StatusCode, e.Detail)
		}
		return nil, fmt.Errorf("%d", resp.StatusCode)
	}
	var out Answer
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	return &out, nil
}
