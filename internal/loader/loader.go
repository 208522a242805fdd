// Package loader opens every configured embedding store at startup.
package loader

import (
	"context"
	"fmt"
	"log/slog"

	"quranrag/internal/config"
	"quranrag/internal/domain"
	"quranrag/internal/embedding/tfidf"
	"quranrag/internal/storefile"
	"quranrag/internal/vectorstore"
	"quranrag/internal/vectorstore/memory"
	"quranrag/internal/vectorstore/qdrant"
)

// Result holds the loaded stores in configuration order and the flattened list of
// every document they contribute.
type Result struct {
	Stores    []vectorstore.Store
	Documents []domain.Document
}

// Close releases every store.
func (r *Result) Close() error {
	var first error
	for _, s := range r.Stores {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type Config struct {
	// Remote embeds queries for stores built with remote embeddings. May be nil.
	Remote domain.Embedder
	Logger *slog.Logger
}

// Load opens stores in order. Any missing or unreadable store aborts the whole load
// and releases the stores opened so far.
func Load(ctx context.Context, stores []config.StoreConfig, cfg Config) (*Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(stores) == 0 {
		return nil, fmt.Errorf("no embedding stores configured")
	}
	res := &Result{}
	for _, sc := range stores {
		st, err := open(ctx, sc, cfg.Remote, logger)
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("load store %q: %w", sc.Name, err)
		}
		docs := st.Documents()
		res.Stores = append(res.Stores, st)
		res.Documents = append(res.Documents, docs...)
		logger.Info("embedding store loaded", "store", sc.Name, "type", sc.Type, "documents", len(docs))
	}
	return res, nil
}

func open(ctx context.Context, sc config.StoreConfig, remote domain.Embedder, logger *slog.Logger) (vectorstore.Store, error) {
	switch sc.Type {
	case config.StoreTypeFile, "":
		b, err := storefile.ReadFile(sc.Path)
		if err != nil {
			return nil, err
		}
		return fromBlob(ctx, sc.Name, b, remote, logger)
	case config.StoreTypeSQLite:
		b, err := storefile.ReadSQLite(ctx, sc.Path)
		if err != nil {
			return nil, err
		}
		return fromBlob(ctx, sc.Name, b, remote, logger)
	case config.StoreTypeQdrant:
		if sc.Qdrant == nil {
			return nil, fmt.Errorf("qdrant settings missing")
		}
		st, err := qdrant.Open(ctx, qdrant.Config{
			Name:       sc.Name,
			Host:       sc.Qdrant.Host,
			Port:       sc.Qdrant.Port,
			APIKey:     sc.Qdrant.APIKey,
			Collection: sc.Qdrant.Collection,
			Embedder:   remote,
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store type %q", sc.Type)
	}
}

func fromBlob(ctx context.Context, name string, b *storefile.Blob, remote domain.Embedder, logger *slog.Logger) (vectorstore.Store, error) {
	st, err := buildIndex(ctx, name, b, remote, logger)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func buildIndex(ctx context.Context, name string, b *storefile.Blob, remote domain.Embedder, logger *slog.Logger) (*memory.Storage, error) {
	var (
		emb     domain.Embedder
		vectors = b.Vectors
	)
	switch b.Embedder {
	case storefile.EmbedderTFIDF:
		t := tfidf.NewEmbedder()
		corpus := make([]string, len(b.Documents))
		for i, d := range b.Documents {
			corpus[i] = d.Content
		}
		if err := t.Prepare(corpus); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCorruptStore, err)
		}
		vectors = make([][]float64, len(corpus))
		for i, text := range corpus {
			v, err := t.Embed(ctx, text)
			if err != nil {
				return nil, err
			}
			vectors[i] = v
		}
		emb = t
	case storefile.EmbedderOpenAI:
		if remote == nil {
			return nil, fmt.Errorf("store was built with %s embeddings but no remote embedder is configured", b.Embedder)
		}
		if m, ok := remote.(interface{ Model() string }); ok && b.Model != "" && m.Model() != b.Model {
			logger.Warn("store embedding model differs from configured embedder",
				"store", name, "store_model", b.Model, "embedder_model", m.Model())
		}
		emb = remote
	}
	st := memory.NewStorage(memory.Config{Name: name, Embedder: emb, Logger: logger})
	if err := st.Load(b.Documents, vectors); err != nil {
		return nil, err
	}
	return st, nil
}
