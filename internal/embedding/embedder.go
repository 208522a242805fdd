package embedding

import (
	"time"

	"quranrag/internal/config"
	"quranrag/internal/domain"
	"quranrag/internal/embedding/openai"
)

// Embedder converts free text into a numeric vector representation.
type Embedder = domain.Embedder

// NewRemote builds the shared remote embedder from config. It returns nil when no
// remote embedder is configured; stores that need one fail at load time.
func NewRemote(cfg config.EmbedderConfig) (Embedder, error) {
	if cfg.OpenAI == nil {
		return nil, nil
	}
	client, err := openai.NewClient(openai.Config{
		BaseURL:   cfg.OpenAI.BaseURL,
		APIKeyEnv: cfg.OpenAI.APIKeyEnv,
		Model:     cfg.OpenAI.Model,
		Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
