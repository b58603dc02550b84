// Package storage provides a small durable string-keyed store, the
// terminal-side counterpart of browser local storage.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"

	defaultFileName   = "storage.json"
	defaultSQLiteName = "marquee.db"
)

// Storage is a durable string-keyed store.
type Storage interface {
	// Get returns the value stored under key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Close releases the underlying resources.
	Close() error
}

// Open opens the backend named by backend. An empty path selects the default
// file name inside dataDir.
func Open(ctx context.Context, backend, path, dataDir string, logger *slog.Logger) (Storage, error) {
	switch backend {
	case "", BackendFile:
		if path == "" {
			path = filepath.Join(dataDir, defaultFileName)
		}
		return NewFileStorage(afero.NewOsFs(), path)
	case BackendSQLite:
		if path == "" {
			path = filepath.Join(dataDir, defaultSQLiteName)
		}
		return OpenSQLite(ctx, path, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
