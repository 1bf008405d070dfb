package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.LLM.Provider != "openrouter" {
		t.Errorf("expected provider 'openrouter', got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "anthropic/claude-3.5-sonnet" {
		t.Errorf("unexpected model %q", cfg.LLM.Model)
	}
	if cfg.Generator.MaxRetries != 2 {
		t.Errorf("expected max_retries 2, got %d", cfg.Generator.MaxRetries)
	}
	if cfg.Generator.ScoreThreshold != 0.6 {
		t.Errorf("expected score_threshold 0.6, got %v", cfg.Generator.ScoreThreshold)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
llm:
  provider: ollama
  ollama_model: llama3
generator:
  max_retries: 5
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.LLM.Provider != "ollama" || cfg.LLM.OllamaModel != "llama3" {
		t.Errorf("unexpected llm config %+v", cfg.LLM)
	}
	if cfg.Generator.MaxRetries != 5 {
		t.Errorf("expected max_retries 5, got %d", cfg.Generator.MaxRetries)
	}
	// Defaults should still be set for unspecified fields
	if cfg.LLM.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.LLM.OllamaURL)
	}
	if cfg.Generator.OutputDir != "scrapers" {
		t.Errorf("expected default output_dir, got %q", cfg.Generator.OutputDir)
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
	if cfg.Generator.SampleCount == 0 {
		t.Error("expected sample_count to be populated from file")
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	if cfg.RequestTimeout() != 15*time.Second {
		t.Errorf("expected 15s timeout, got %v", cfg.RequestTimeout())
	}
	if cfg.PolitenessDelay() != time.Second {
		t.Errorf("expected 1s delay, got %v", cfg.PolitenessDelay())
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}
