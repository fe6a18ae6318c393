package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"flixd/models"
)

// FileStore keeps the history list in a single JSON document. The filesystem
// is abstracted so tests can run against an in-memory fs.
type FileStore struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

func NewFileStore(filesystem afero.Fs, path string) *FileStore {
	if filesystem == nil {
		filesystem = afero.NewOsFs()
	}
	return &FileStore{fs: filesystem, path: path}
}

// Load reads the persisted list. A missing file is an empty history; a
// corrupt one is treated the same and heals on the next Save.
func (f *FileStore) Load() ([]models.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}

	var entries []models.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("[history] discarding corrupt history file %s: %v", f.path, err)
		return nil, nil
	}
	return entries, nil
}

func (f *FileStore) Save(entries []models.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." && dir != "" {
		if err := f.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}

	tmp := f.path + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if err := f.fs.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}
