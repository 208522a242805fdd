package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"quranrag/internal/domain"
)

// Storage is an in-memory vector index using brute-force cosine similarity.
// It is filled once by Load and only read afterwards.
type Storage struct {
	name     string
	embedder domain.Embedder
	logger   *slog.Logger

	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	docs      []domain.Document
}

// Config configures an in-memory store.
type Config struct {
	Name     string
	Embedder domain.Embedder
	Logger   *slog.Logger
}

func NewStorage(cfg Config) *Storage {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{name: cfg.Name, embedder: cfg.Embedder, logger: logger}
}

func (s *Storage) Name() string { return s.name }

// Load replaces the index contents. Vectors must share one dimension; they are stored
// L2-normalized so scores are cosine similarities.
func (s *Storage) Load(docs []domain.Document, vectors [][]float64) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("%w: %d documents but %d vectors", domain.ErrCorruptStore, len(docs), len(vectors))
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrCorruptStore, i, len(v), dim)
		}
	}
	normalized := make([][]float64, len(vectors))
	for i, v := range vectors {
		normalized[i] = normalize(v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dim
	s.docs = docs
	s.vectors = normalized
	return nil
}

func (s *Storage) Documents() []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs
}

func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Search embeds query and returns the topK most similar documents. When the query
// shares no vocabulary with the index it falls back to lexical overlap ranking.
func (s *Storage) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	if s.embedder == nil {
		return nil, errors.New("memory store: no embedder configured")
	}
	if topK <= 0 {
		topK = 4
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vec = normalize(vec)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.docs) == 0 {
		return nil, nil
	}
	if len(vec) != s.dimension && !isZero(vec) {
		return nil, fmt.Errorf("query dimension %d does not match store %q dimension %d", len(vec), s.name, s.dimension)
	}
	scores := make([]float64, len(s.vectors))
	if !isZero(vec) {
		for i := range s.vectors {
			scores[i] = dot(s.vectors[i], vec)
		}
	}
	if allBelow(scores, 1e-9) {
		s.logger.Warn("vector search found nothing, using lexical ranking", "store", s.name)
		qset := toTokenSet(query)
		for i, d := range s.docs {
			scores[i] = overlapOchiai(qset, d.Content)
		}
	}
	return s.top(scores, topK), nil
}

func (s *Storage) Close() error { return nil }

func (s *Storage) top(scores []float64, topK int) []domain.SearchResult {
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	// stable so ties keep index order and repeated queries cite the same documents
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.SearchResult{Document: s.docs[j], Score: scores[j]})
	}
	return results
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// normalize returns a unit-length copy of v. The zero vector is returned as is.
func normalize(v []float64) []float64 {
	norm := math.Sqrt(dot(v, v))
	if norm == 0 {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func allBelow(vals []float64, eps float64) bool {
	for _, v := range vals {
		if v > eps {
			return false
		}
	}
	return true
}

var unicodeWordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapOchiai returns |A∩B| / sqrt(|A||B|) over the token sets of query and text.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	seen := toTokenSet(text)
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	inter := 0
	for t := range seen {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}
