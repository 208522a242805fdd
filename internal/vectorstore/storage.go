package vectorstore

import "quranrag/internal/domain"

// Store is a loaded, read-only embedding store.
type Store interface {
	domain.Retriever
	// Documents returns the documents the store contributes to the flattened prompt context.
	Documents() []domain.Document
	Close() error
}
