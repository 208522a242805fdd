// Package history keeps the process-wide conversation log.
package history

import (
	"fmt"
	"strings"
	"sync"

	"quranrag/internal/domain"
)

// History is an append-ordered list of answered turns. Safe for concurrent use.
type History struct {
	mu       sync.RWMutex
	maxTurns int
	turns    []domain.Turn
}

// New returns an empty history. maxTurns > 0 keeps only the newest maxTurns turns.
func New(maxTurns int) *History {
	if maxTurns < 0 {
		maxTurns = 0
	}
	return &History{maxTurns: maxTurns}
}

func (h *History) Append(t domain.Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, t)
	if h.maxTurns > 0 && len(h.turns) > h.maxTurns {
		drop := len(h.turns) - h.maxTurns
		h.turns = append(h.turns[:0:0], h.turns[drop:]...)
	}
}

// Snapshot returns a copy of the turns recorded so far.
func (h *History) Snapshot() []domain.Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Render formats turns as the prompt's history block.
func Render(turns []domain.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "Question: %s\nAnswer: %s\n\n", t.Question, t.Answer)
	}
	return b.String()
}
