package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvSourceURL = "PRFLOW_SOURCE_URL"
	EnvSourceDSN = "PRFLOW_SOURCE_DSN"
	EnvPort      = "PRFLOW_PORT"
)

// Load reads and parses a configuration from the given YAML file path.
// After parsing, it applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg
}

// LoadDefault searches for a config in standard locations and loads the
// first one found. Search order: ./prflow.yaml, ~/.prflow/config.yaml.
// When neither exists the built-in defaults are returned.
func LoadDefault() (*Config, error) {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

// SearchPaths lists the locations LoadDefault inspects, in order.
func SearchPaths() []string {
	candidates := []string{"prflow.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".prflow", "config.yaml"))
	}
	return candidates
}

func applyEnv(cfg *Config) {
	p := &cfg.Prflow
	if v := os.Getenv(EnvSourceURL); v != "" {
		p.Source.URL = v
	}
	if v := os.Getenv(EnvSourceDSN); v != "" {
		p.Source.DSN = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			p.Server.Port = port
		}
	}
}

// applyDefaults fills every unset field with its documented default.
func applyDefaults(cfg *Config) {
	p := &cfg.Prflow

	if p.Source.Kind == "" {
		p.Source.Kind = DefaultKind
	}
	if p.Source.Kind == KindHTTP && p.Source.URL == "" {
		p.Source.URL = DefaultURL
	}
	if p.Source.Limit == 0 {
		p.Source.Limit = DefaultLimit
	}
	if p.Source.Timeout == "" {
		p.Source.Timeout = DefaultTimeout
	}
	if p.Refresh.Interval == "" {
		p.Refresh.Interval = DefaultInterval
	}
	if p.Server.Port == 0 {
		p.Server.Port = DefaultPort
	}
	if p.Log.Level == "" {
		p.Log.Level = DefaultLevel
	}
}
