// pkg/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds devshell configuration
type Config struct {
	CacheURL       string
	Endpoint       string
	RegistryURL    string
	RegistryBranch string
	StoreRoot      string
	CachePath      string
	Platform       string
	Timeout        time.Duration
	Debug          bool
}

// rawConfig is the on-disk form. The timeout is a human-readable duration
// string ("30s", "2m"), which yaml cannot decode into time.Duration
// directly.
type rawConfig struct {
	CacheURL       string `yaml:"cache_url"`
	Endpoint       string `yaml:"endpoint"`
	RegistryURL    string `yaml:"registry_url"`
	RegistryBranch string `yaml:"registry_branch"`
	StoreRoot      string `yaml:"store_root"`
	CachePath      string `yaml:"cache_path"`
	Platform       string `yaml:"platform"`
	Timeout        string `yaml:"timeout"`
	Debug          bool   `yaml:"debug"`
}

// UnmarshalYAML decodes a config mapping. Keys absent from the yaml keep
// the values already set on the receiver, so decoding over Default()
// preserves defaults.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	raw := rawConfig{
		CacheURL:       c.CacheURL,
		Endpoint:       c.Endpoint,
		RegistryURL:    c.RegistryURL,
		RegistryBranch: c.RegistryBranch,
		StoreRoot:      c.StoreRoot,
		CachePath:      c.CachePath,
		Platform:       c.Platform,
		Debug:          c.Debug,
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	c.CacheURL = raw.CacheURL
	c.Endpoint = raw.Endpoint
	c.RegistryURL = raw.RegistryURL
	c.RegistryBranch = raw.RegistryBranch
	c.StoreRoot = raw.StoreRoot
	c.CachePath = raw.CachePath
	c.Platform = raw.Platform
	c.Debug = raw.Debug

	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// MarshalYAML renders the on-disk form
func (c Config) MarshalYAML() (any, error) {
	return rawConfig{
		CacheURL:       c.CacheURL,
		Endpoint:       c.Endpoint,
		RegistryURL:    c.RegistryURL,
		RegistryBranch: c.RegistryBranch,
		StoreRoot:      c.StoreRoot,
		CachePath:      c.CachePath,
		Platform:       c.Platform,
		Timeout:        c.Timeout.String(),
		Debug:          c.Debug,
	}, nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		CacheURL:  "", // pkg/cache default
		Endpoint:  "", // pkg/resolver default
		StoreRoot: "", // pkg/store default
		CachePath: defaultCachePath(),
		Timeout:   2 * time.Minute,
		Debug:     false,
	}
}

// Load loads configuration from file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Default(), nil
		}
		path = filepath.Join(home, ".config", "devshell", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to file
func Save(cfg *Config, path string) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, ".config", "devshell", "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func defaultCachePath() string {
	if path := os.Getenv("DEVSHELL_CACHE_PATH"); path != "" {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "devshell")
	}

	return filepath.Join(home, ".cache", "devshell")
}
