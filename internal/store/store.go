// Package store persists the registry's exported state to disk so keys,
// model selections and ordering survive restarts.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/quillforge/aiengine/internal/registry"
)

// FileStore writes the state blob as JSON to a single file. Writes go
// through a temp file and rename so a crash mid-write never leaves a
// truncated state file behind.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a store rooted at path. The parent directory is
// created on first save if missing.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Save implements registry.Persister.
func (s *FileStore) Save(state registry.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}

	// The state file holds raw secrets. Owner-only before it lands at
	// its final path.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("restrict state file permissions: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Load reads a previously saved state blob. A missing file is not an
// error; it returns an empty state and false.
func (s *FileStore) Load() (registry.State, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return registry.State{}, false, nil
		}
		return registry.State{}, false, fmt.Errorf("read state file: %w", err)
	}

	var state registry.State
	if err := json.Unmarshal(data, &state); err != nil {
		return registry.State{}, false, fmt.Errorf("decode state file %s: %w", s.path, err)
	}

	s.logger.Info("state loaded", slog.String("path", s.path))
	return state, true, nil
}
