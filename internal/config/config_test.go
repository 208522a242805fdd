package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Stores) != 2 {
		t.Fatalf("expected 2 default stores, got %d", len(cfg.Stores))
	}
	if cfg.Stores[0].Name != "tafsir" || cfg.Stores[1].Name != "quran" {
		t.Errorf("unexpected default store order: %+v", cfg.Stores)
	}
	if cfg.LLM.BaseURL != "https://api.aimlapi.com" || cfg.LLM.Model != "gpt-4-turbo" {
		t.Errorf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if cfg.LLM.APIKeyEnv != "AIML_API_KEY" {
		t.Errorf("unexpected api key env: %s", cfg.LLM.APIKeyEnv)
	}
	if cfg.Retrieval.TopK != 4 || cfg.Retrieval.ContextMode != ContextModeRetrieved {
		t.Errorf("unexpected retrieval defaults: %+v", cfg.Retrieval)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
stores:
  - name: remote
    type: qdrant
    qdrant:
      collection: tafsir
  - name: local
    path: local.json
embedder:
  openai: {}
history:
  max_turns: 10
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Stores[0].Qdrant.Port != 6334 || cfg.Stores[0].Qdrant.Host != "localhost" {
		t.Errorf("qdrant defaults not applied: %+v", cfg.Stores[0].Qdrant)
	}
	if cfg.Stores[1].Type != StoreTypeFile {
		t.Errorf("expected file type default, got %q", cfg.Stores[1].Type)
	}
	if cfg.Embedder.OpenAI.Model != "text-embedding-3-small" {
		t.Errorf("embedder defaults not applied: %+v", cfg.Embedder.OpenAI)
	}
	if cfg.History.MaxTurns != 10 {
		t.Errorf("expected max_turns 10, got %d", cfg.History.MaxTurns)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"no stores":    "stores: []\n",
		"missing path": "stores:\n  - name: a\n    type: file\n",
		"unknown type": "stores:\n  - name: a\n    type: faiss\n    path: x\n",
		"duplicate":    "stores:\n  - name: a\n    path: x\n  - name: a\n    path: y\n",
		"bad mode":     "stores:\n  - name: a\n    path: x\nretrieval:\n  context_mode: some\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := Save(path, defaultConfig()); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "tafsir_english_embeddings.json") {
		t.Errorf("saved config missing store path:\n%s", data)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:8000" {
		t.Errorf("unexpected addr: %s", cfg.Server.Addr)
	}
}
