package domain

import "errors"

var (
	// ErrNotFound is returned when a configured store file or collection does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCorruptStore is returned when a store exists but cannot be decoded.
	ErrCorruptStore = errors.New("corrupt store")
	// ErrServiceUnavailable is returned for queries issued before the stores are loaded.
	ErrServiceUnavailable = errors.New("service unavailable: embeddings not loaded")
	// ErrUpstream wraps failures of the LLM provider.
	ErrUpstream = errors.New("upstream failure")
)
