package tui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestClient_Ask(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/query" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"answer":"Seek help through patience.","response_time":0.5,"context":["2:153"]}`))
	}))
	defer srv.Close()

	a, err := NewClient(srv.URL+"/", time.Second).Ask(context.Background(), "patience?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if a.Answer != "Seek help through patience." || a.ResponseTime != 0.5 || len(a.Context) != 1 {
		t.Errorf("unexpected answer %+v", a)
	}
	if got["question"] != "patience?" || len(got) != 1 {
		t.Errorf("unexpected request body %+v", got)
	}
}

func TestClient_ErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail":"Embeddings not loaded."}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Ask(context.Background(), "q")
	if err == nil || !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "Embeddings not loaded.") {
		t.Fatalf("expected status and detail in error, got %v", err)
	}
}

type fakeAsker struct {
	answer    *Answer
	err       error
	questions []string
}

func (f *fakeAsker) Ask(ctx context.Context, q string) (*Answer, error) {
	f.questions = append(f.questions, q)
	return f.answer, f.err
}

func submit(t *testing.T, m Model, q string) Model {
	t.Helper()
	m.input.SetValue(q)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command for the question")
	}
	next, _ = next.Update(cmd())
	return next.(Model)
}

func TestModel_AnswerAndPassages(t *testing.T) {
	asker := &fakeAsker{answer: &Answer{
		Answer:       "Patience and prayer.",
		ResponseTime: 1.25,
		Context:      []string{"Seek help through patience and prayer.", "Indeed, with hardship comes ease."},
	}}
	var tm tea.Model = New(asker)
	tm, _ = tm.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m := submit(t, tm.(Model), "what is patience")

	if !strings.Contains(m.status, "1.25s") {
		t.Errorf("status should report response time, got %q", m.status)
	}
	if m.answer == nil || m.answer.Answer != "Patience and prayer." {
		t.Errorf("unexpected answer %+v", m.answer)
	}
	if strings.Contains(m.renderContent(), passageRule) {
		t.Error("passages should start hidden")
	}

	tm, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	out := tm.(Model).renderContent()
	if !strings.Contains(out, "Document Similarity Search") || strings.Count(out, passageRule) != 2 {
		t.Errorf("expected both passages separated by rules:\n%s", out)
	}

	submit(t, tm.(Model), "and gratitude")
	if len(asker.questions) != 2 || asker.questions[1] != "and gratitude" {
		t.Errorf("unexpected questions sent: %v", asker.questions)
	}
}

func TestModel_Error(t *testing.T) {
	var tm tea.Model = New(&fakeAsker{err: errors.New("503: Embeddings not loaded.")})
	tm, _ = tm.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m := submit(t, tm.(Model), "q")
	if !strings.HasPrefix(m.status, "Error: ") || m.answer != nil {
		t.Errorf("unexpected state after error: status=%q", m.status)
	}
}

func TestHighlightBestSentence(t *testing.T) {
	text := "Indeed, with hardship comes ease. Seek help through patience and prayer."
	out := highlightBestSentence(text, "patience")
	if !strings.Contains(out, "Seek help through patience and prayer.") || !strings.Contains(out, "Indeed, with hardship comes ease.") {
		t.Errorf("sentences lost: %q", out)
	}
	if got := highlightBestSentence("   ", "x"); got != "   " {
		t.Errorf("blank text should pass through, got %q", got)
	}
}
