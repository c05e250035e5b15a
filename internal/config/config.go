// Package config provides configuration loading for the codeatlas server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Generator GeneratorConfig `yaml:"generator"`
	Query     QueryConfig     `yaml:"query"`
	Watch     WatchConfig     `yaml:"watch"`
	Debug     bool            `yaml:"debug"`
}

// WorkspaceConfig identifies the directory being indexed.
type WorkspaceConfig struct {
	Root    string   `yaml:"root"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// StorageConfig holds the index database location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // openai, ollama, local
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	CacheSize int    `yaml:"cache_size"`
}

// GeneratorConfig controls chunk description generation.
type GeneratorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// QueryConfig tunes the retrieval path.
type QueryConfig struct {
	TopK         int `yaml:"top_k"`
	ExpansionCap int `yaml:"expansion_cap"`
}

// WatchConfig controls the filesystem watcher.
type WatchConfig struct {
	Enabled    *bool         `yaml:"enabled"`
	Extensions []string      `yaml:"extensions"`
	Debounce   time.Duration `yaml:"debounce"`
}

// EnabledOrDefault reports whether watching is on; defaults to true.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
}

// Load reads the config file at path, applies defaults and environment
// overrides, and expands relative paths against the config directory.
// An empty path yields a default config rooted at the working directory.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		configDir := filepath.Dir(path)
		cfg.Workspace.Root = expandPath(cfg.Workspace.Root, configDir)
		cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	}

	applyEnv(cfg)
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers environment variables over file values. Environment
// always wins so deployments can override a checked-in config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CODEATLAS_WORKSPACE"); v != "" {
		cfg.Workspace.Root = v
	}
	if v := os.Getenv("CODEATLAS_DB_PATH"); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := os.Getenv("CODEATLAS_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("CODEATLAS_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" && cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("CODEATLAS_DESCRIPTIONS"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Generator.Enabled = enabled
		}
	}
	if v := os.Getenv("CODEATLAS_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = debug
		}
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.Workspace.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve workspace root: %w", err)
		}
		cfg.Workspace.Root = wd
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = filepath.Join(cfg.Workspace.Root, ".codeatlas", "index.db")
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "local"
	}
	if cfg.Embedding.CacheSize <= 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Query.TopK <= 0 {
		cfg.Query.TopK = 8
	}
	if cfg.Query.ExpansionCap <= 0 {
		cfg.Query.ExpansionCap = 8
	}
	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = []string{".go", ".ts", ".tsx", ".js", ".jsx", ".mjs", ".py"}
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	return nil
}

// expandPath converts a path to absolute. Relative paths resolve against
// the config file's directory.
func expandPath(path, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(configDir, path)
}
