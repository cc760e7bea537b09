package config

import (
	"fmt"
	"time"

	"github.com/lucasnoah/prflow/internal/logging"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var recognizedKinds = map[string]bool{
	KindHTTP:     true,
	KindPostgres: true,
	KindSQLite:   true,
	KindFile:     true,
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	p := cfg.Prflow

	if !recognizedKinds[p.Source.Kind] {
		errs = append(errs, ValidationError{
			Field:   "prflow.source.kind",
			Message: fmt.Sprintf("unrecognized source kind %q", p.Source.Kind),
		})
	}

	switch p.Source.Kind {
	case KindHTTP:
		if p.Source.URL == "" {
			errs = append(errs, ValidationError{Field: "prflow.source.url", Message: "is required for http sources"})
		}
	case KindPostgres:
		if p.Source.DSN == "" {
			errs = append(errs, ValidationError{Field: "prflow.source.dsn", Message: "is required for postgres sources"})
		}
	case KindSQLite, KindFile:
		if p.Source.Path == "" {
			errs = append(errs, ValidationError{
				Field:   "prflow.source.path",
				Message: fmt.Sprintf("is required for %s sources", p.Source.Kind),
			})
		}
	}

	if p.Source.Limit < 0 {
		errs = append(errs, ValidationError{Field: "prflow.source.limit", Message: "must be positive"})
	}

	if d, err := time.ParseDuration(p.Source.Timeout); err != nil || d <= 0 {
		errs = append(errs, ValidationError{
			Field:   "prflow.source.timeout",
			Message: fmt.Sprintf("invalid duration %q", p.Source.Timeout),
		})
	}

	if d, err := time.ParseDuration(p.Refresh.Interval); err != nil {
		errs = append(errs, ValidationError{
			Field:   "prflow.refresh.interval",
			Message: fmt.Sprintf("invalid duration %q", p.Refresh.Interval),
		})
	} else if d < time.Second {
		errs = append(errs, ValidationError{Field: "prflow.refresh.interval", Message: "must be at least 1s"})
	}

	if p.Server.Port < 1 || p.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "prflow.server.port",
			Message: fmt.Sprintf("port %d out of range", p.Server.Port),
		})
	}

	if _, err := logging.ParseLevel(p.Log.Level); err != nil {
		errs = append(errs, ValidationError{Field: "prflow.log.level", Message: err.Error()})
	}

	return errs
}
