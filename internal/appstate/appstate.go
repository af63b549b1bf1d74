// Package appstate persists UI state between runs as a single JSON file.
// The state is an opaque key/value blob: the request surface merges
// partial updates into it and reads it back at startup, without the
// backend interpreting individual keys.
package appstate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Store holds the state blob in memory and mirrors every update to disk.
//
// Thread-safety: this implementation is thread-safe.
type Store struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	state map[string]json.RawMessage
}

// New creates a state store backed by the file at path. The file is not
// read until Load.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		logger: logger,
		state:  make(map[string]json.RawMessage),
	}
}

// Load reads the state file into memory. A missing file yields an empty
// state; a corrupt file is discarded with a warning rather than blocking
// startup.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.state = make(map[string]json.RawMessage)
			return nil
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var state map[string]json.RawMessage
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("discarding corrupt state file",
			slog.String("path", s.path),
			slog.Any("error", err))
		s.state = make(map[string]json.RawMessage)
		return nil
	}
	if state == nil {
		state = make(map[string]json.RawMessage)
	}
	s.state = state
	return nil
}

// Get returns a copy of the current state.
func (s *Store) Get() map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(s.state))
	for k, v := range s.state {
		out[k] = v
	}
	return out
}

// Update merges the given keys into the state and writes the whole blob
// back to disk. Keys not mentioned keep their values.
func (s *Store) Update(patch map[string]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range patch {
		s.state[k] = v
	}
	return s.flush()
}

// flush writes the state file. Caller holds s.mu.
func (s *Store) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
