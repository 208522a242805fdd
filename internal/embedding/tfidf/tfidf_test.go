package tfidf

import (
	"context"
	"math"
	"testing"
)

func TestEmbed_RequiresPrepare(t *testing.T) {
	if _, err := NewEmbedder().Embed(context.Background(), "patience"); err == nil {
		t.Fatal("expected error before Prepare")
	}
}

func TestPrepare_EmptyCorpus(t *testing.T) {
	if err := NewEmbedder().Prepare(nil); err == nil {
		t.Fatal("expected error for empty corpus")
	}
	if err := NewEmbedder().Prepare([]string{"the and of"}); err == nil {
		t.Fatal("expected error for stopword-only corpus")
	}
}

func TestEmbed_Normalized(t *testing.T) {
	e := NewEmbedder()
	corpus := []string{
		"Seek help through patience and prayer.",
		"Indeed, with hardship comes ease.",
		"Allah is with the patient.",
	}
	if err := e.Prepare(corpus); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if e.Dimension() == 0 {
		t.Fatal("expected non-zero dimension")
	}
	vec, err := e.Embed(context.Background(), "patience and prayer")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != e.Dimension() {
		t.Fatalf("expected %d dims, got %d", e.Dimension(), len(vec))
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if math.Abs(norm-1) > 1e-9 {
		t.Errorf("expected unit vector, got norm^2 %f", norm)
	}
}

func TestEmbed_UnknownTermsYieldZeroVector(t *testing.T) {
	e := NewEmbedder()
	if err := e.Prepare([]string{"hardship ease"}); err != nil {
		t.Fatal(err)
	}
	vec, err := e.Embed(context.Background(), "zakat")
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range vec {
		if v != 0 {
			t.Fatalf("expected zero vector, got %v", vec)
		}
	}
}
