// Package source fetches batches of raw fix records from the systems that
// own them. Each Fetch returns one complete batch; callers derive views from
// a batch as a unit and never mix records from two fetches.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/lucasnoah/prflow/internal/config"
	"github.com/lucasnoah/prflow/internal/workflow"
)

var (
	// ErrUnsuccessful is returned when the upstream envelope reports success=false.
	ErrUnsuccessful = errors.New("upstream reported failure")
	// ErrUnexpectedStatus is returned for non-200 HTTP responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// Source yields one batch of raw fix records per call.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]workflow.RawFixRecord, error)
}

// Closer is implemented by sources that hold connections.
type Closer interface {
	Close() error
}

// Open builds the Source described by cfg.
func Open(ctx context.Context, cfg config.Source) (Source, error) {
	switch cfg.Kind {
	case config.KindHTTP:
		return NewHTTPSource(HTTPOptions{
			URL:     cfg.URL,
			Limit:   cfg.Limit,
			Status:  cfg.Status,
			Timeout: cfg.TimeoutDuration(),
		}), nil
	case config.KindPostgres:
		return NewPostgresSource(ctx, cfg.DSN, cfg.Limit, cfg.Status)
	case config.KindSQLite:
		return OpenSQLiteSource(cfg.Path, cfg.Limit, cfg.Status)
	case config.KindFile:
		return NewFileSource(cfg.Path), nil
	}
	return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
}

// Close closes src if it holds resources.
func Close(src Source) error {
	if c, ok := src.(Closer); ok {
		return c.Close()
	}
	return nil
}
