// Package service implements the question-answering pipeline over every loaded store.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"quranrag/internal/config"
	"quranrag/internal/domain"
	"quranrag/internal/history"
	"quranrag/internal/llm"
	"quranrag/internal/observability"
	"quranrag/internal/vectorstore"
)

// LoadFunc opens the configured stores, returning them in load order along with the
// flattened list of documents they contribute.
type LoadFunc func(ctx context.Context) ([]vectorstore.Store, []domain.Document, error)

type Config struct {
	Load        LoadFunc
	Generator   domain.Generator
	History     *history.History
	TopK        int
	ContextMode string
	Logger      *slog.Logger
}

// RAGService answers questions by querying each store in turn and combining the answers.
// It starts uninitialized and becomes ready after a successful Load.
type RAGService struct {
	load        LoadFunc
	generator   domain.Generator
	history     *history.History
	topK        int
	contextMode string
	logger      *slog.Logger

	loadMu sync.Mutex
	ready  atomic.Bool
	stores []vectorstore.Store
	docs   []domain.Document
}

type storeAnswer struct {
	answer string
	cited  []domain.Document
}

func NewRAGService(cfg Config) *RAGService {
	if cfg.History == nil {
		cfg.History = history.New(0)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.ContextMode == "" {
		cfg.ContextMode = config.ContextModeRetrieved
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RAGService{
		load:        cfg.Load,
		generator:   cfg.Generator,
		history:     cfg.History,
		topK:        cfg.TopK,
		contextMode: cfg.ContextMode,
		logger:      cfg.Logger,
	}
}

// Load opens all stores. A failure leaves the service uninitialized.
// Calling Load on a ready service does nothing.
func (s *RAGService) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.ready.Load() {
		return nil
	}
	if s.load == nil {
		return fmt.Errorf("no store loader configured")
	}
	stores, docs, err := s.load(ctx)
	if err != nil {
		return err
	}
	if len(stores) == 0 {
		return fmt.Errorf("no embedding stores loaded")
	}
	s.stores = stores
	s.docs = docs
	s.ready.Store(true)
	s.logger.Info("service ready", "stores", len(stores), "documents", len(docs))
	return nil
}

func (s *RAGService) Ready() bool { return s.ready.Load() }

// Close releases the loaded stores.
func (s *RAGService) Close() error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	var first error
	for _, st := range s.stores {
		if err := st.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// History exposes the conversation log.
func (s *RAGService) History() *history.History { return s.history }

// Query answers req against every store in load order. Any store failure fails the
// whole query and leaves the history unchanged.
func (s *RAGService) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	if !s.ready.Load() {
		return nil, domain.ErrServiceUnavailable
	}
	ctx, span := observability.StartQuerySpan(ctx, len(s.stores))
	defer span.End()

	historyText := history.Render(s.history.Snapshot())

	start := time.Now()
	answers := make([]storeAnswer, 0, len(s.stores))
	for _, st := range s.stores {
		ans, err := s.askStore(ctx, st, req.Question, historyText)
		if err != nil {
			observability.RecordError(span, err)
			return nil, fmt.Errorf("store %s: %w", st.Name(), err)
		}
		answers = append(answers, ans)
	}
	elapsed := time.Since(start)

	texts := make([]string, len(answers))
	var cited []string
	for i, a := range answers {
		texts[i] = a.answer
		for _, d := range a.cited {
			cited = append(cited, d.Content)
		}
	}
	combined := strings.Join(texts, "\n")
	s.history.Append(domain.Turn{Question: req.Question, Answer: combined})

	return &domain.QueryResponse{Answer: combined, Elapsed: elapsed, CitedPassages: cited}, nil
}

func (s *RAGService) askStore(ctx context.Context, st vectorstore.Store, question, historyText string) (storeAnswer, error) {
	ctx, span := observability.StartStoreSpan(ctx, st.Name())
	defer span.End()

	results, err := st.Search(ctx, question, s.topK)
	if err != nil {
		observability.RecordError(span, err)
		return storeAnswer{}, fmt.Errorf("retrieve: %w", err)
	}
	observability.RecordRetrieved(span, len(results))

	cited := make([]domain.Document, len(results))
	for i, r := range results {
		cited[i] = r.Document
	}
	grounding := cited
	if s.contextMode == config.ContextModeAll {
		grounding = s.docs
	}

	prompt, err := llm.RenderPrompt(llm.PromptInput{
		Context: joinContents(grounding),
		History: historyText,
		Input:   question,
	})
	if err != nil {
		return storeAnswer{}, err
	}
	answer, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		observability.RecordError(span, err)
		return storeAnswer{}, err
	}
	return storeAnswer{answer: answer, cited: cited}, nil
}

func joinContents(docs []domain.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}
