package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Asker is the TUI-facing subset of the API client.
type Asker interface {
	Ask(ctx context.Context, question string) (*Answer, error)
}

const passageRule = "--------------------------------"

// Model is the Bubble Tea model for the chat UI.
type Model struct {
	asker        Asker
	input        textinput.Model
	viewport     viewport.Model
	answer       *Answer
	showPassages bool
	pending      bool
	status       string
	lastQuery    string
	ready        bool
}

type answerMsg struct {
	question string
	answer   *Answer
	err      error
}

func New(asker Asker) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Enter your question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{asker: asker, input: ti, viewport: vp, status: "Ask a question. Tab toggles passages."}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		a, err := m.asker.Ask(context.Background(), question)
		return answerMsg{question: question, answer: a, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case answerMsg:
		m.pending = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.answer = msg.answer
		m.lastQuery = msg.question
		m.status = fmt.Sprintf("Answered in %.2fs, %d passages", msg.answer.ResponseTime, len(msg.answer.Context))
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.pending = true
			m.status = fmt.Sprintf("Asking %q...", q)
			m.input.SetValue("")
			return m, m.ask(q)
		case "tab":
			m.showPassages = !m.showPassages
			m.viewport.SetContent(m.renderContent())
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Quran Chatbot")
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderContent() string {
	if m.answer == nil {
		return "No answer yet."
	}
	var b strings.Builder
	b.WriteString(labelStyle.Render("Answer:"))
	b.WriteString("\n")
	b.WriteString(m.answer.Answer)
	if !m.showPassages {
		fmt.Fprintf(&b, "\n\n(tab: show %d passages)", len(m.answer.Context))
		return b.String()
	}
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Document Similarity Search"))
	b.WriteString("\n")
	for _, p := range m.answer.Context {
		b.WriteString(highlightBestSentence(p, m.lastQuery))
		b.WriteString("\n")
		b.WriteString(passageRule)
		b.WriteString("\n")
	}
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	labelStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasizes the sentence of text sharing the most words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	for t := range toTokenSet(sentence) {
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
