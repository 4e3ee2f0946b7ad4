package statestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"realestate-watch/internal/crawljob"
)

const filePermissions = 0o600

// FileStore keeps the scheduler state in a single JSON document.
type FileStore struct {
	fileLock
	path string
}

var (
	_ crawljob.StateStore = (*FileStore)(nil)
	_ crawljob.Locker     = (*FileStore)(nil)
)

func NewFileStore(path string) *FileStore {
	return &FileStore{fileLock: newFileLock(path), path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load returns the zero state when the file does not exist. A file that
// exists but cannot be decoded yields crawljob.ErrStoreCorrupt.
func (s *FileStore) Load(_ context.Context) (crawljob.State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return crawljob.State{}, nil
	}
	if err != nil {
		return crawljob.State{}, fmt.Errorf("read state file: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	var state crawljob.State
	if err := decoder.Decode(&state); err != nil {
		return crawljob.State{}, fmt.Errorf("%w: decode %s: %w", crawljob.ErrStoreCorrupt, s.path, err)
	}
	return state, nil
}

// Save writes to a temp file and renames it over the previous state.
func (s *FileStore) Save(_ context.Context, state crawljob.State) error {
	if state.Jobs == nil {
		state.Jobs = []crawljob.WorkItem{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, filePermissions); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
