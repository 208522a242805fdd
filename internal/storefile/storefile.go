// Package storefile decodes prebuilt embedding stores from disk.
//
// A store is a pair of an index structure and the documents it covers. Two encodings
// are supported: a JSON document and a read-only SQLite database. Both decode into a
// Blob, which the loader turns into a searchable index.
package storefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"quranrag/internal/domain"
)

// Embedder names recorded in store files.
const (
	EmbedderTFIDF  = "tfidf"
	EmbedderOpenAI = "openai"
)

// Blob is the decoded contents of a store.
type Blob struct {
	Name      string            `json:"name"`
	Embedder  string            `json:"embedder"`
	Model     string            `json:"model,omitempty"`
	Dimension int               `json:"dimension,omitempty"`
	Documents []domain.Document `json:"documents"`
	// Vectors[i] embeds Documents[i]. Optional for tfidf stores.
	Vectors [][]float64 `json:"vectors,omitempty"`
}

// Validate checks the structural invariants of a decoded blob.
func (b *Blob) Validate() error {
	switch b.Embedder {
	case EmbedderTFIDF:
		if len(b.Vectors) > 0 {
			return fmt.Errorf("%w: tfidf stores are indexed at load and must not carry vectors", domain.ErrCorruptStore)
		}
		if len(b.Documents) == 0 {
			return fmt.Errorf("%w: tfidf store has no documents", domain.ErrCorruptStore)
		}
	case EmbedderOpenAI:
		if len(b.Vectors) != len(b.Documents) {
			return fmt.Errorf("%w: %d documents but %d vectors", domain.ErrCorruptStore, len(b.Documents), len(b.Vectors))
		}
		for i, v := range b.Vectors {
			if len(v) == 0 || (b.Dimension > 0 && len(v) != b.Dimension) {
				return fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrCorruptStore, i, len(v), b.Dimension)
			}
		}
	default:
		return fmt.Errorf("%w: unknown embedder %q", domain.ErrCorruptStore, b.Embedder)
	}
	return nil
}

// ReadFile decodes a JSON store file.
func ReadFile(path string) (*Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("embeddings file %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var b Blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptStore, path, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &b, nil
}

// WriteFile encodes b as a JSON store file.
func WriteFile(path string, b *Blob) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
