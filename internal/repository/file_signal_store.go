package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"SigPull/internal/domain/models"
	domrepo "SigPull/internal/domain/repository"
)

const (
	activeFile  = "active_signals.json"
	historyFile = "signal_history.json"
)

// FileSignalStore persists the ledger as JSON files. Writes go through a
// temp file and rename so a crash never leaves a half-written snapshot.
type FileSignalStore struct {
	mu  sync.Mutex
	dir string
}

func NewFileSignalStore(dir string) (*FileSignalStore, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileSignalStore{dir: dir}, nil
}

var _ domrepo.SignalStore = (*FileSignalStore)(nil)

func (s *FileSignalStore) LoadActive(_ context.Context) ([]*models.Signal, error) {
	var out []*models.Signal
	if err := s.read(activeFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FileSignalStore) SaveActive(_ context.Context, signals []*models.Signal) error {
	if signals == nil {
		signals = []*models.Signal{}
	}
	return s.write(activeFile, signals)
}

func (s *FileSignalStore) LoadHistory(_ context.Context) ([]*models.HistoryEntry, error) {
	var out []*models.HistoryEntry
	if err := s.read(historyFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FileSignalStore) SaveHistory(_ context.Context, entries []*models.HistoryEntry) error {
	if entries == nil {
		entries = []*models.HistoryEntry{}
	}
	return s.write(historyFile, entries)
}

func (s *FileSignalStore) read(name string, dest any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: read %s: %v", domrepo.ErrStoreFailure, name, err)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("%w: parse %s: %v", domrepo.ErrStoreFailure, name, err)
	}
	return nil
}

func (s *FileSignalStore) write(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", domrepo.ErrStoreFailure, name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", domrepo.ErrStoreFailure, name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", domrepo.ErrStoreFailure, name, err)
	}
	return nil
}
