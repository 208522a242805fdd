package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	t.Setenv("TEST_EMBED_KEY", "secret")
	c, err := NewClient(Config{BaseURL: url, APIKeyEnv: "TEST_EMBED_KEY", Model: "m", MaxRetries: 2})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNewClient_MissingKey(t *testing.T) {
	if _, err := NewClient(Config{APIKeyEnv: "QURANRAG_UNSET_KEY_FOR_TEST"}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestEmbed_OpenAIShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header: %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.6, 0.8}}},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	vec, err := c.Embed(context.Background(), "mercy")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 2 || c.Dimension() != 2 {
		t.Errorf("unexpected vector %v dim %d", vec, c.Dimension())
	}
}

func TestEmbed_OllamaShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{1, 0, 0}})
	}))
	defer server.Close()

	vec, err := newTestClient(t, server.URL).Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("expected 3 dims, got %d", len(vec))
	}
}

func TestEmbed_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{1}})
	}))
	defer server.Close()

	if _, err := newTestClient(t, server.URL).Embed(context.Background(), "x"); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestEmbed_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	if _, err := newTestClient(t, server.URL).Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error on 401")
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single call, got %d", calls.Load())
	}
}

func TestRetryDelay_Capped(t *testing.T) {
	if d := retryDelay(0); d != 200*time.Millisecond {
		t.Errorf("unexpected first delay %v", d)
	}
	if d := retryDelay(10); d != 5*time.Second {
		t.Errorf("expected cap at 5s, got %v", d)
	}
}

func TestEmbed_ConcurrentCallers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.6, 0.8}}},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Embed(context.Background(), "patience"); err != nil {
				t.Error(err)
			}
			_ = c.Dimension()
		}()
	}
	wg.Wait()
	if c.Dimension() != 2 {
		t.Errorf("expected dimension 2, got %d", c.Dimension())
	}
}
