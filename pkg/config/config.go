// Package config carries every tunable the CLI and server share.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL    = "https://openrouter.ai/api/v1"
	DefaultListenAddr = ":8000"
	DefaultDBPath     = ".council/projects.db"
)

// Config is loaded from an optional YAML file and then overridden by
// environment variables. The zero value plus setDefaultValues is a working
// configuration.
type Config struct {
	BaseURL         string   `yaml:"base_url"`
	Models          []string `yaml:"models"`
	Extended        bool     `yaml:"extended"`
	ListenAddr      string   `yaml:"listen_addr"`
	DatabasePath    string   `yaml:"database_path"`
	MaxTokens       int      `yaml:"max_tokens"`
	CallTimeoutSecs int      `yaml:"call_timeout_secs"`

	// APIKey is resolved from the environment or the key store, never from
	// the config file.
	APIKey string `yaml:"-"`
}

var (
	loadOnce  sync.Once
	singleton *Config
	loadErr   error
)

// Get returns the process-wide configuration, loading it on first use.
func Get() (*Config, error) {
	loadOnce.Do(func() {
		singleton, loadErr = Load()
	})
	return singleton, loadErr
}

// Load reads the config file (when one exists), applies environment
// overrides and fills in defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	path := configFilePath()
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.setDefaultValues()
	return cfg, nil
}

// Save writes the config as YAML, creating the directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// configFilePath picks the config file: the COUNCIL_CONFIG override first,
// then .council/config.yaml in the working directory, then in the home
// directory. Returns "" when none exists and no override is set.
func configFilePath() string {
	if path := os.Getenv("COUNCIL_CONFIG"); path != "" {
		return path
	}
	if cwd, err := os.Getwd(); err == nil {
		path := filepath.Join(cwd, ".council", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".council", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (cfg *Config) applyEnv() {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("COUNCIL_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("COUNCIL_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("COUNCIL_MODELS"); v != "" {
		var models []string
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		if len(models) > 0 {
			cfg.Models = models
		}
	}
	if v := os.Getenv("COUNCIL_PORT"); v != "" {
		if strings.Contains(v, ":") {
			cfg.ListenAddr = v
		} else {
			cfg.ListenAddr = ":" + v
		}
	}
	if v := os.Getenv("COUNCIL_DB"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("COUNCIL_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTokens = n
		}
	}
	if v := os.Getenv("COUNCIL_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CallTimeoutSecs = n
		}
	}
}

func (cfg *Config) setDefaultValues() {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if len(cfg.Models) == 0 {
		cfg.Models = []string{"anthropic/claude-3.5-sonnet", "openai/gpt-4o-mini"}
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = DefaultDBPath
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.CallTimeoutSecs == 0 {
		cfg.CallTimeoutSecs = 120
	}
}

// CallTimeout returns the per-call deadline as a duration.
func (cfg *Config) CallTimeout() time.Duration {
	return time.Duration(cfg.CallTimeoutSecs) * time.Second
}
