package engram

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	fc, err := LoadConfig("/nonexistent/path/does-not-exist.yaml")
	if err == nil {
		t.Fatal("expected an error for an explicit missing config file")
	}

	fc, err = LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if fc.Storage.DBPath != "./data/engram.db" {
		t.Errorf("DBPath = %q, want default", fc.Storage.DBPath)
	}
	if fc.Embedding.Provider != "gemini" {
		t.Errorf("Provider = %q, want gemini default", fc.Embedding.Provider)
	}
	if fc.Consolidation.DecayRate != 0.95 {
		t.Errorf("DecayRate = %v, want 0.95", fc.Consolidation.DecayRate)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("ENGRAM_STORAGE_DB_PATH", "/tmp/override.db")
	t.Setenv("ENGRAM_EMBEDDING_PROVIDER", "ollama")

	fc, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if fc.Storage.DBPath != "/tmp/override.db" {
		t.Errorf("DBPath = %q, want env override", fc.Storage.DBPath)
	}
	if fc.Embedding.Provider != "ollama" {
		t.Errorf("Provider = %q, want ollama", fc.Embedding.Provider)
	}
}

func TestToEngramConfigGeminiDefaultLeavesEmbedderNil(t *testing.T) {
	fc := &FileConfig{}
	fc.Embedding.Provider = "gemini"
	cfg, err := fc.ToEngramConfig()
	if err != nil {
		t.Fatalf("ToEngramConfig: %v", err)
	}
	if cfg.Embedder != nil {
		t.Fatal("expected nil Embedder for gemini default, Init should build it lazily")
	}
}

func TestToEngramConfigOllamaBuildsEmbedder(t *testing.T) {
	fc := &FileConfig{}
	fc.Embedding.Provider = "ollama"
	fc.Embedding.Host = "http://ollama.internal:11434"
	cfg, err := fc.ToEngramConfig()
	if err != nil {
		t.Fatalf("ToEngramConfig: %v", err)
	}
	if _, ok := cfg.Embedder.(*OllamaEmbedder); !ok {
		t.Fatalf("Embedder type = %T, want *OllamaEmbedder", cfg.Embedder)
	}
}

func TestToEngramConfigOpenAIBuildsEmbedder(t *testing.T) {
	fc := &FileConfig{}
	fc.Embedding.Provider = "openai"
	fc.Embedding.APIKey = "sk-test"
	cfg, err := fc.ToEngramConfig()
	if err != nil {
		t.Fatalf("ToEngramConfig: %v", err)
	}
	if _, ok := cfg.Embedder.(*OpenAIEmbedder); !ok {
		t.Fatalf("Embedder type = %T, want *OpenAIEmbedder", cfg.Embedder)
	}
}

func TestToEngramConfigUnknownProviderErrors(t *testing.T) {
	fc := &FileConfig{}
	fc.Embedding.Provider = "carrier-pigeon"
	if _, err := fc.ToEngramConfig(); err == nil {
		t.Fatal("expected an error for an unknown embedding provider")
	}
}
