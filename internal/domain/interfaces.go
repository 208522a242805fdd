package domain

import (
	"context"
	"time"
)

// Document is a passage of source text held by an embedding store.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchResult represents a matching document with a relevance score.
type SearchResult struct {
	Document Document
	Score    float64
}

// Turn is one answered question in the conversation.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QueryRequest is the input of a single question.
type QueryRequest struct {
	Question string `json:"question"`
}

// QueryResponse is the combined answer across every loaded store.
type QueryResponse struct {
	Answer        string
	Elapsed       time.Duration
	CitedPassages []string
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Retriever returns the documents of one store most similar to a query.
type Retriever interface {
	Name() string
	Search(ctx context.Context, query string, topK int) ([]SearchResult, error)
}

// Generator completes a rendered prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// QAService defines the operations exposed by the application core.
type QAService interface {
	Ready() bool
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)
}
