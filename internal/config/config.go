package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	LLM       LLM       `yaml:"llm"`
	Generator Generator `yaml:"generator"`
	Logging   Logging   `yaml:"logging"`
}

type LLM struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	OllamaURL   string  `yaml:"ollama_url"`
	OllamaModel string  `yaml:"ollama_model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type Generator struct {
	OutputDir             string  `yaml:"output_dir"`
	MaxRetries            int     `yaml:"max_retries"`
	ScoreThreshold        float64 `yaml:"score_threshold"`
	SampleCount           int     `yaml:"sample_count"`
	OracleSampleCount     int     `yaml:"oracle_sample_count"`
	Discovery             string  `yaml:"discovery"`    // "heuristic" or "oracle"
	MergePolicy           string  `yaml:"merge_policy"` // "replace" or "keep_previous"
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
	PolitenessDelayMs     int     `yaml:"politeness_delay_ms"`
	SPAMinIndicators      int     `yaml:"spa_min_indicators"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for scrapegen.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "scrapegen")
}

// DataDir returns the XDG data directory for scrapegen.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "scrapegen")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/scrapegen/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'scrapegen init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	cfg, _ := parse(nil)
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		LLM: LLM{
			Provider:    "openrouter",
			Model:       "anthropic/claude-3.5-sonnet",
			BaseURL:     "https://openrouter.ai/api/v1",
			APIKeyEnv:   "OPENROUTER_API_KEY",
			OllamaURL:   "http://localhost:11434",
			OllamaModel: "qwen2.5:7b",
			MaxTokens:   2000,
			Temperature: 0.3,
		},
		Generator: Generator{
			OutputDir:             "scrapers",
			MaxRetries:            2,
			ScoreThreshold:        0.6,
			SampleCount:           3,
			OracleSampleCount:     5,
			Discovery:             "heuristic",
			MergePolicy:           "replace",
			RequestTimeoutSeconds: 15,
			PolitenessDelayMs:     1000,
			SPAMinIndicators:      3,
		},
		Logging: Logging{Level: "INFO"},
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	return cfg, nil
}

// RequestTimeout returns the per-request fetch timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Generator.RequestTimeoutSeconds) * time.Second
}

// PolitenessDelay returns the minimum interval between fetches to one origin.
func (c *Config) PolitenessDelay() time.Duration {
	return time.Duration(c.Generator.PolitenessDelayMs) * time.Millisecond
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
