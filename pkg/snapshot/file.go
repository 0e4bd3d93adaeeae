package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	currentFile  = "current.json"
	previousFile = "previous.json"
	resultsDir   = "results"
)

// FileStore keeps snapshots as JSON files in a directory.
type FileStore struct {
	dir    string
	strict bool
	logger *zap.Logger
}

// NewFileStore creates a FileStore rooted at dir. In strict mode an unreadable or corrupt
// generation is returned as an error instead of being treated as missing.
func NewFileStore(dir string, strict bool, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{dir: dir, strict: strict, logger: logger}
}

// Ensure creates the snapshot and results directories.
func (s *FileStore) Ensure() error {
	if err := os.MkdirAll(filepath.Join(s.dir, resultsDir), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string { return s.dir }

// LoadCurrent reads the most recent generation.
func (s *FileStore) LoadCurrent() (*Snapshot, error) {
	return s.load(currentFile)
}

// LoadPrevious reads the generation the current one is compared against.
func (s *FileStore) LoadPrevious() (*Snapshot, error) {
	return s.load(previousFile)
}

// SaveCurrent overwrites the current generation.
func (s *FileStore) SaveCurrent(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return s.writeAtomic(filepath.Join(s.dir, currentFile), data)
}

// PromoteCurrentToPrevious copies the current generation over the previous one.
func (s *FileStore) PromoteCurrentToPrevious() error {
	data, err := os.ReadFile(filepath.Join(s.dir, currentFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read current snapshot: %w", err)
	}
	return s.writeAtomic(filepath.Join(s.dir, previousFile), data)
}

// WriteResult stores a run artifact as results/<name>.json.
func (s *FileStore) WriteResult(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result %s: %w", name, err)
	}
	return s.writeAtomic(filepath.Join(s.dir, resultsDir, name+".json"), data)
}

func (s *FileStore) load(name string) (*Snapshot, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, s.readFailure(path, fmt.Errorf("read: %w", err))
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, s.readFailure(path, fmt.Errorf("parse: %w", err))
	}
	return &snap, nil
}

// readFailure applies the fail-open policy: outside strict mode a broken file counts as missing.
func (s *FileStore) readFailure(path string, err error) error {
	if s.strict {
		return fmt.Errorf("snapshot %s: %w", path, err)
	}
	s.logger.Warn("Unreadable snapshot treated as missing",
		zap.String("path", path),
		zap.Error(err))
	return ErrNotFound
}

// writeAtomic writes through a temp file in the same directory so readers never see half a file.
func (s *FileStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
