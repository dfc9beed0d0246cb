package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MendoxIta/haos-budget/internal/core"
)

// FileStore keeps the snapshot in a single JSON file, rewritten whole on
// every save via a temp file and rename. The last-reset marker lives in a
// small sibling meta file so the snapshot file stays a pure map of
// account name to ledger.
type FileStore struct {
	path     string
	metaPath string
}

type fileMeta struct {
	LastReset time.Time `json:"last_reset"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:     path,
		metaPath: path + ".meta",
	}
}

func (s *FileStore) Load(_ context.Context) (core.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot file: %w", err)
	}
	return snap, nil
}

func (s *FileStore) Save(_ context.Context, snap core.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.writeFile(s.path, data)
}

func (s *FileStore) LoadLastReset(_ context.Context) (time.Time, error) {
	data, err := os.ReadFile(s.metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("read meta file: %w", err)
	}
	var meta fileMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return time.Time{}, fmt.Errorf("decode meta file: %w", err)
	}
	return meta.LastReset, nil
}

func (s *FileStore) SaveLastReset(_ context.Context, t time.Time) error {
	data, err := json.Marshal(fileMeta{LastReset: t})
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	return s.writeFile(s.metaPath, data)
}

func (s *FileStore) Close() error {
	return nil
}

// writeFile writes atomically so a crash mid-save never leaves a
// truncated snapshot behind.
func (s *FileStore) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}
