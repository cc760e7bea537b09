package config

import "time"

// Config is the top-level configuration structure parsed from prflow YAML.
type Config struct {
	Prflow Prflow `yaml:"prflow"`
}

// Prflow groups the source, refresh, server and log settings.
type Prflow struct {
	Source  Source  `yaml:"source"`
	Refresh Refresh `yaml:"refresh"`
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
}

// Source describes where fix records are fetched from.
type Source struct {
	Kind    string `yaml:"kind"`    // "http", "postgres", "sqlite", "file"
	URL     string `yaml:"url"`     // http: history endpoint
	DSN     string `yaml:"dsn"`     // postgres: connection string
	Path    string `yaml:"path"`    // sqlite database or JSON envelope file
	Status  string `yaml:"status"`  // optional upstream status filter
	Limit   int    `yaml:"limit"`   // max records per fetch
	Timeout string `yaml:"timeout"` // per-fetch timeout, Go duration
}

// Refresh controls the periodic poller.
type Refresh struct {
	Interval string `yaml:"interval"`
}

// Server configures the web UI.
type Server struct {
	Port int `yaml:"port"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Source kinds.
const (
	KindHTTP     = "http"
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
	KindFile     = "file"
)

// Defaults applied by Load to unset fields.
const (
	DefaultKind     = KindHTTP
	DefaultURL      = "http://localhost:5006/api/fixes/history"
	DefaultLimit    = 50
	DefaultTimeout  = "30s"
	DefaultInterval = "30s"
	DefaultPort     = 8080
	DefaultLevel    = "info"
)

// TimeoutDuration parses Source.Timeout, falling back to the default.
func (s Source) TimeoutDuration() time.Duration {
	return parseDurationOr(s.Timeout, DefaultTimeout)
}

// IntervalDuration parses Refresh.Interval, falling back to the default.
func (r Refresh) IntervalDuration() time.Duration {
	return parseDurationOr(r.Interval, DefaultInterval)
}

func parseDurationOr(s, def string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(def)
	return d
}
