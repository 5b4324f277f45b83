package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Vocabulary.Phrases) != 25 {
		t.Errorf("expected 25 default phrases, got %d", len(cfg.Vocabulary.Phrases))
	}
	if cfg.Detection.WindowSize != 8 {
		t.Errorf("expected window size 8, got %d", cfg.Detection.WindowSize)
	}
	if cfg.Detection.FuzzyThreshold != 95 {
		t.Errorf("expected fuzzy threshold 95, got %v", cfg.Detection.FuzzyThreshold)
	}
	if cfg.Aggregation.Normalization != 10000 {
		t.Errorf("expected normalization 10000, got %d", cfg.Aggregation.Normalization)
	}
	if cfg.Embeddings.Provider != "none" {
		t.Errorf("expected provider 'none', got %q", cfg.Embeddings.Provider)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
vocabulary:
  phrases: [over the moon]
detection:
  window_size: 6
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Detection.WindowSize != 6 {
		t.Errorf("expected window size 6, got %d", cfg.Detection.WindowSize)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Detection.Proximity != 10 {
		t.Errorf("expected default proximity 10, got %d", cfg.Detection.Proximity)
	}
	if cfg.Detection.Scorer != "partial_ratio" {
		t.Errorf("expected default scorer, got %q", cfg.Detection.Scorer)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("minimal config should be valid: %v", err)
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	data := []byte(`
vocabulary:
  phrases: [over the moon]
detection:
  strategies: [exact, telepathy]
  window_size: 0
  fuzzy_threshold: 120
  scorer: soundex
  proximity: 0
  semantic_threshold: -0.5
aggregation:
  normalization: 100
  bucket: fortnight
logging:
  level: CHATTY
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"telepathy", "window_size", "fuzzy_threshold", "soundex", "proximity",
		"semantic_threshold", "normalization", "fortnight", "CHATTY",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got:\n%v", want, err)
		}
	}
}

func TestValidateSemanticNeedsProvider(t *testing.T) {
	cfg, err := parse([]byte(`
vocabulary:
  phrases: [over the moon]
detection:
  strategies: [semantic]
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for semantic matching without provider")
	}

	cfg.Embeddings.Provider = "ollama"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !cfg.SemanticEnabled() {
		t.Error("expected semantic to be enabled")
	}
}

func TestValidateRequiresVocabulary(t *testing.T) {
	cfg, err := parse([]byte(`server: {port: 1}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "vocabulary") {
		t.Errorf("expected vocabulary error, got %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Tenures.Blacklist) == 0 {
		t.Error("expected tenure blacklist to be populated from file")
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("detection:\n  window_size: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit path")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}

	cfg.Embeddings.Cache = "embeddings.db"
	if got := cfg.CachePath(); got != filepath.Join("/custom/path", "embeddings.db") {
		t.Errorf("unexpected cache path %q", got)
	}
	cfg.Embeddings.Cache = ""
	if cfg.CachePath() != "" {
		t.Error("expected empty cache path")
	}
}
