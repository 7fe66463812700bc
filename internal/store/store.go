package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"taskmanager/internal/models"
)

// Backend kinds.
const (
	KindJSON   = "json"
	KindYAML   = "yaml"
	KindSQLite = "sqlite"
)

// ErrMalformed is wrapped by Load when the backing data exists but is not a
// sequence of well-formed task records.
var ErrMalformed = errors.New("malformed task data")

// Backend defines the persistence operations behind a TaskStore.
type Backend interface {
	// Load returns every persisted task in stored order.
	Load(ctx context.Context) ([]models.Task, error)
	// Save replaces the persisted collection with tasks.
	Save(ctx context.Context, tasks []models.Task) error
	// Path returns the location of the backing file.
	Path() string

	// Lifecycle
	Close() error
}

// KindForPath infers a backend kind from a data file extension.
func KindForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return KindYAML
	case ".db", ".sqlite", ".sqlite3":
		return KindSQLite
	default:
		return KindJSON
	}
}

// Open creates the backend of the given kind. An empty kind is inferred from
// the path.
func Open(kind, path string) (Backend, error) {
	if kind == "" {
		kind = KindForPath(path)
	}

	switch kind {
	case KindJSON, KindYAML:
		return NewFileBackend(path, kind)
	case KindSQLite:
		return NewSQLiteBackend(path)
	default:
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
}
