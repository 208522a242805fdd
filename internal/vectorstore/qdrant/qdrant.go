package qdrant

import (
	"context"
	"fmt"
	"strconv"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"quranrag/internal/domain"
)

// contentKey is the payload field holding the passage text.
const contentKey = "content"

// Storage searches an externally built Qdrant collection over gRPC.
type Storage struct {
	name        string
	collection  string
	apiKey      string
	embedder    domain.Embedder
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
}

type Config struct {
	Name       string
	Host       string
	Port       int
	APIKey     string
	Collection string
	// Embedder must produce vectors in the collection's embedding space.
	Embedder domain.Embedder
}

// Open dials Qdrant and verifies the collection exists.
func Open(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("qdrant store %q: a remote embedder is required", cfg.Name)
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect %s: %w", addr, err)
	}
	s := &Storage{
		name:        cfg.Name,
		collection:  cfg.Collection,
		apiKey:      cfg.APIKey,
		embedder:    cfg.Embedder,
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}
	if err := s.checkCollection(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) Name() string { return s.name }

// Documents returns nil: collections are not enumerated into the prompt context.
func (s *Storage) Documents() []domain.Document { return nil }

func (s *Storage) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 4
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	resp, err := s.points.Search(s.withAuth(ctx), &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         toFloat32(vec),
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search %s: %w", s.collection, err)
	}
	results := make([]domain.SearchResult, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		results = append(results, domain.SearchResult{
			Document: toDocument(pt.GetId(), pt.GetPayload()),
			Score:    float64(pt.GetScore()),
		})
	}
	return results, nil
}

func (s *Storage) Close() error {
	return s.conn.Close()
}

func (s *Storage) checkCollection(ctx context.Context) error {
	_, err := s.collections.Get(s.withAuth(ctx), &pb.GetCollectionInfoRequest{CollectionName: s.collection})
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("qdrant collection %s: %w", s.collection, domain.ErrNotFound)
	}
	return fmt.Errorf("qdrant collection %s: %w", s.collection, err)
}

func (s *Storage) withAuth(ctx context.Context) context.Context {
	if s.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", s.apiKey)
}

func toDocument(id *pb.PointId, payload map[string]*pb.Value) domain.Document {
	doc := domain.Document{ID: pointID(id)}
	for k, v := range payload {
		if k == contentKey {
			doc.Content = v.GetStringValue()
			continue
		}
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]string)
		}
		doc.Metadata[k] = valueString(v)
	}
	return doc
}

func pointID(id *pb.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func valueString(v *pb.Value) string {
	switch k := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return k.StringValue
	case *pb.Value_IntegerValue:
		return strconv.FormatInt(k.IntegerValue, 10)
	case *pb.Value_DoubleValue:
		return strconv.FormatFloat(k.DoubleValue, 'f', -1, 64)
	case *pb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue)
	default:
		return ""
	}
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
