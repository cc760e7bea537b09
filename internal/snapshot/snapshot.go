// Package snapshot caches the most recently derived batch on disk so it can
// be displayed without fetching. A snapshot is a display cache only; nothing
// reads workflow state back out of it.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/prflow/internal/workflow"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

// Snapshot is one derived batch plus where and when it was fetched.
type Snapshot struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
	Report    workflow.Report `json:"report"`
}

// New derives records into a fresh snapshot stamped with now.
func New(source string, records []workflow.RawFixRecord, now time.Time) Snapshot {
	return Snapshot{
		ID:        uuid.NewString(),
		Source:    source,
		FetchedAt: now.UTC(),
		Report:    workflow.Build(records),
	}
}

// Empty reports whether the snapshot carries no views.
func (s Snapshot) Empty() bool {
	return len(s.Report.Views) == 0
}

// Store persists the last snapshot as a single JSON file.
type Store struct {
	path string
}

// NewStore creates a Store writing to path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns ~/.prflow/last.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".prflow", "last.json"), nil
}

// Path returns the file the store writes.
func (s *Store) Path() string {
	return s.path
}

// Save replaces the stored snapshot.
func (s *Store) Save(snap Snapshot) error {
	if err := WriteJSON(s.path, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot, or ErrNoSnapshot.
func (s *Store) Load() (Snapshot, error) {
	var snap Snapshot
	if err := readJSON(s.path, &snap); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, ErrNoSnapshot
		}
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}
