// Package config loads the YAML application configuration, with sane
// defaults for every field so the server runs with no config file at all.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StoreConfig selects and configures the similarity store implementation.
type StoreConfig struct {
	Type   string        `yaml:"type"` // "memory" or "qdrant"
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Provider  string `yaml:"provider"` // "openai" or "local"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

// IndexConfig controls the indexing pipeline.
type IndexConfig struct {
	// Root is the directory tree to index and watch.
	Root string `yaml:"root"`
	// Workers is the worker pool size.
	Workers int `yaml:"workers"`
	// SnapshotPath is where the crash-recovery spool is mirrored.
	SnapshotPath string `yaml:"snapshot_path"`
	// Watch enables the filesystem watcher after the initial walk.
	Watch bool `yaml:"watch"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Index    IndexConfig    `yaml:"index"`
	Store    StoreConfig    `yaml:"store"`
	Embedder EmbedderConfig `yaml:"embedder"`
}

// Load reads a config from path. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./fileindex.yaml first, then
// ~/.config/fileindex/config.yaml, and falls back to defaults.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "fileindex.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	return defaultConfig(), "", nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	if c.Index.Root == "" {
		return errors.New("index.root is required")
	}
	switch c.Store.Type {
	case "memory":
	case "qdrant":
		if c.Store.Qdrant == nil || c.Store.Qdrant.URL == "" {
			return errors.New("store.qdrant.url is required for the qdrant store")
		}
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	switch c.Embedder.Provider {
	case "openai", "local":
	default:
		return fmt.Errorf("unknown embedder provider %q", c.Embedder.Provider)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "fileindex", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Index.Workers <= 0 {
		cfg.Index.Workers = 4
	}
	if cfg.Index.SnapshotPath == "" {
		cfg.Index.SnapshotPath = filepath.Join(os.TempDir(), "fileindex-pending.json")
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}
	if cfg.Store.Type == "qdrant" && cfg.Store.Qdrant != nil {
		if cfg.Store.Qdrant.APIKeyEnv == "" {
			cfg.Store.Qdrant.APIKeyEnv = "QDRANT_API_KEY"
		}
		if cfg.Store.Qdrant.TimeoutSecs == 0 {
			cfg.Store.Qdrant.TimeoutSecs = 15
		}
	}
	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = "local"
	}
	if cfg.Embedder.Provider == "openai" {
		if cfg.Embedder.Model == "" {
			cfg.Embedder.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.APIKeyEnv == "" {
			cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
}
