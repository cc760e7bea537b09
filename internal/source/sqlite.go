package source

import (
	"context"
	"fmt"

	"github.com/lucasnoah/prflow/internal/db"
	"github.com/lucasnoah/prflow/internal/workflow"
)

// SQLiteSource reads a local mirror of the fix history table.
type SQLiteSource struct {
	db     *db.DB
	limit  int
	status string
	owned  bool
}

// NewSQLiteSource wraps an already-open database. The caller keeps ownership.
func NewSQLiteSource(database *db.DB, limit int, status string) *SQLiteSource {
	return &SQLiteSource{db: database, limit: limit, status: status}
}

// OpenSQLiteSource opens and migrates the database at path.
func OpenSQLiteSource(path string, limit int, status string) (*SQLiteSource, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteSource{db: database, limit: limit, status: status, owned: true}, nil
}

// Name implements Source.
func (s *SQLiteSource) Name() string {
	return "sqlite"
}

// Close closes the database if this source opened it.
func (s *SQLiteSource) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Fetch implements Source.
func (s *SQLiteSource) Fetch(ctx context.Context) ([]workflow.RawFixRecord, error) {
	return s.db.History(ctx, s.limit, s.status)
}
