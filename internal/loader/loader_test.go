package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quranrag/internal/config"
	"quranrag/internal/domain"
	"quranrag/internal/storefile"
)

func writeTFIDF(t *testing.T, dir, name string, contents ...string) string {
	t.Helper()
	b := &storefile.Blob{Name: name, Embedder: storefile.EmbedderTFIDF}
	for i, c := range contents {
		b.Documents = append(b.Documents, domain.Document{ID: name + string(rune('a'+i)), Content: c})
	}
	path := filepath.Join(dir, name+".json")
	if err := storefile.WriteFile(path, b); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_OrderAndFlatten(t *testing.T) {
	dir := t.TempDir()
	tafsir := writeTFIDF(t, dir, "tafsir", "Patience is half of faith.", "Gratitude brings increase.")
	quranDB := filepath.Join(dir, "quran.db")
	if err := storefile.WriteSQLite(context.Background(), quranDB, &storefile.Blob{
		Name:      "quran",
		Embedder:  storefile.EmbedderTFIDF,
		Documents: []domain.Document{{ID: "94:6", Content: "Indeed, with hardship comes ease."}},
	}); err != nil {
		t.Fatal(err)
	}

	res, err := Load(context.Background(), []config.StoreConfig{
		{Name: "tafsir", Type: config.StoreTypeFile, Path: tafsir},
		{Name: "quran", Type: config.StoreTypeSQLite, Path: quranDB},
	}, Config{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer res.Close()

	if len(res.Stores) != 2 || res.Stores[0].Name() != "tafsir" || res.Stores[1].Name() != "quran" {
		t.Fatalf("unexpected store order")
	}
	if len(res.Documents) != 3 || res.Documents[2].ID != "94:6" {
		t.Fatalf("unexpected flattened documents: %+v", res.Documents)
	}

	hits, err := res.Stores[0].Search(context.Background(), "patience", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || !strings.Contains(hits[0].Document.Content, "Patience") {
		t.Errorf("unexpected hit: %+v", hits)
	}
}

func TestLoad_MissingStore(t *testing.T) {
	dir := t.TempDir()
	ok := writeTFIDF(t, dir, "tafsir", "Patience is half of faith.")
	_, err := Load(context.Background(), []config.StoreConfig{
		{Name: "tafsir", Type: config.StoreTypeFile, Path: ok},
		{Name: "quran", Type: config.StoreTypeFile, Path: filepath.Join(dir, "quran_english_embeddings.json")},
	}, Config{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "quran_english_embeddings.json") {
		t.Errorf("error should name the missing path: %v", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"embedder":"openai","documents":[{"id":"1"}],"vectors":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(context.Background(), []config.StoreConfig{{Name: "bad", Type: config.StoreTypeFile, Path: path}}, Config{})
	if !errors.Is(err, domain.ErrCorruptStore) {
		t.Fatalf("expected ErrCorruptStore, got %v", err)
	}
}

func TestLoad_RemoteStoreNeedsEmbedder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remote.json")
	if err := storefile.WriteFile(path, &storefile.Blob{
		Name:      "remote",
		Embedder:  storefile.EmbedderOpenAI,
		Dimension: 2,
		Documents: []domain.Document{{ID: "1", Content: "x"}},
		Vectors:   [][]float64{{1, 0}},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(context.Background(), []config.StoreConfig{{Name: "remote", Type: config.StoreTypeFile, Path: path}}, Config{}); err == nil {
		t.Fatal("expected error without a remote embedder")
	}
}

func TestLoad_NoStores(t *testing.T) {
	if _, err := Load(context.Background(), nil, Config{}); err == nil {
		t.Fatal("expected error for empty store list")
	}
}
