// Package config provides configuration loading and structs for the clausemark server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Resources ResourceConfig  `yaml:"resources"`
	Highlight HighlightConfig `yaml:"highlight"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the metadata database and the original-file store.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	FileStoreDir string `yaml:"file_store_dir"`
}

// ResourceConfig holds resource manager limits. Both thresholds are global
// configuration, not per-call parameters.
type ResourceConfig struct {
	MaxResources         int    `yaml:"max_resources"`
	TTLSeconds           int    `yaml:"ttl_seconds"`
	SweepIntervalSeconds int    `yaml:"sweep_interval_seconds"`
	URLBasePath          string `yaml:"url_base_path"`
}

// TTL returns the resource time-to-live.
func (r *ResourceConfig) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

// SweepInterval returns the eviction sweep interval.
func (r *ResourceConfig) SweepInterval() time.Duration {
	return time.Duration(r.SweepIntervalSeconds) * time.Second
}

// TimingProfile holds the settle delays for one view mode. Continuous-scroll
// views need materially longer settling time than single-page views because
// virtualization may not have rendered the matched page yet.
type TimingProfile struct {
	InitialDelayMS int `yaml:"initial_delay_ms"`
	RetryDelayMS   int `yaml:"retry_delay_ms"`
	JumpDelayMS    int `yaml:"jump_delay_ms"`
}

// InitialDelay returns the first verification settle delay.
func (p TimingProfile) InitialDelay() time.Duration {
	return time.Duration(p.InitialDelayMS) * time.Millisecond
}

// RetryDelay returns the recheck delay used when the first verification finds nothing.
func (p TimingProfile) RetryDelay() time.Duration {
	return time.Duration(p.RetryDelayMS) * time.Millisecond
}

// JumpDelay returns the delay before jumping to the first match.
func (p TimingProfile) JumpDelay() time.Duration {
	return time.Duration(p.JumpDelayMS) * time.Millisecond
}

// HighlightConfig holds highlight coordinator timing settings.
type HighlightConfig struct {
	DebounceMS       int           `yaml:"debounce_ms"`
	SinglePage       TimingProfile `yaml:"single_page"`
	ContinuousScroll TimingProfile `yaml:"continuous_scroll"`
}

// Debounce returns the clause-selection debounce delay.
func (h *HighlightConfig) Debounce() time.Duration {
	return time.Duration(h.DebounceMS) * time.Millisecond
}

// FetchConfig holds settings for the upstream document byte-fetch.
// TokenEnv names the environment variable holding the bearer token
// (loaded from .env via godotenv in main).
type FetchConfig struct {
	BaseURL        string `yaml:"base_url"`
	TokenEnv       string `yaml:"token_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the upstream request timeout.
func (f *FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// WatchConfig holds contract drop-directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.FileStoreDir = expandPath(cfg.Storage.FileStoreDir, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
