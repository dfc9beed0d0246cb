package persist

import (
	"fmt"
	"log/slog"
)

// BackendType selects the snapshot storage backend.
type BackendType string

const (
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is known.
func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

// Config holds backend creation options.
type Config struct {
	Type BackendType

	// File backend
	DataFile string

	// SQLite backend
	SQLiteDBPath string
}

// New creates the configured snapshot store.
func New(cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Type {
	case FileBackend:
		logger.Info("Initialized file snapshot store", "path", cfg.DataFile)
		return NewFileStore(cfg.DataFile), nil
	case SQLiteBackend:
		store, err := NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		logger.Info("Initialized sqlite snapshot store", "db_path", cfg.SQLiteDBPath)
		return store, nil
	default:
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
	}
}
