// Package state persists per-repository ingestion positions as an
// indented JSON map keyed by repository name, kept human-diffable on
// purpose. The file is the sole source of truth for "has this
// repository changed since we last looked".
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RepoState records the last successful pass over one repository.
type RepoState struct {
	LastCommitHash  string    `json:"last_commit_hash"`
	LastProcessedAt time.Time `json:"last_processed_at"`
	TotalChunks     int       `json:"total_chunks"`
	TotalFiles      int       `json:"total_files"`
}

// Store reads and writes the state file. Writes go through a temp
// file in the same directory followed by a rename, so a crash leaves
// either the old or the new file, never a torn one.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by the given file path. The file
// need not exist yet.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns all repository states; a missing file is an empty map.
func (s *Store) Load() (map[string]RepoState, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]RepoState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var states map[string]RepoState
	if err := json.Unmarshal(b, &states); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", s.path, err)
	}
	if states == nil {
		states = map[string]RepoState{}
	}
	return states, nil
}

// Save replaces the entire state map.
func (s *Store) Save(states map[string]RepoState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(states)
}

// Get returns the state for one repository.
func (s *Store) Get(name string) (RepoState, bool, error) {
	states, err := s.Load()
	if err != nil {
		return RepoState{}, false, err
	}
	st, ok := states[name]
	return st, ok, nil
}

// Set records the state for one repository and persists the map.
func (s *Store) Set(name string, st RepoState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	states, err := s.Load()
	if err != nil {
		return err
	}
	states[name] = st
	return s.save(states)
}

// Clear removes every repository's state.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(map[string]RepoState{})
}

// Delete removes one repository's state; absent entries are a no-op.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	states, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := states[name]; !ok {
		return nil
	}
	delete(states, name)
	return s.save(states)
}

func (s *Store) save(states map[string]RepoState) error {
	b, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
