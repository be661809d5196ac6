// Package settings persists the on/off help toggles shown alongside the board.
package settings

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"
)

const (
	FlipBoard          = "flip_board"
	HangingPieces      = "hanging_pieces"
	ExchangeEvaluation = "exchange_evaluation"
	Activity           = "activity"
	Development        = "development"
	PawnStructure      = "pawn_structure"
)

var ErrUnknownKey = errors.New("unknown setting")

//go:embed defaults.yaml
var defaultsYAML []byte

// Store is a fixed set of boolean toggles backed by a YAML file. Keys outside the
// embedded defaults are ignored on load and rejected on write.
type Store struct {
	mu     sync.RWMutex
	saveMu sync.Mutex
	path   string
	values map[string]bool
	logger *zap.Logger
}

// Open loads path over the defaults. A missing or unreadable file leaves the defaults in
// place; the problem is logged, not returned.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	values := make(map[string]bool)
	if err := yaml.Unmarshal(defaultsYAML, &values); err != nil {
		return nil, fmt.Errorf("parse default settings: %w", err)
	}
	s := &Store{path: path, values: values, logger: logger}
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		logger.Warn("settings_read_failed", zap.String("path", path), zap.Error(err))
		return s, nil
	}
	var saved map[string]bool
	if err := yaml.Unmarshal(raw, &saved); err != nil {
		logger.Warn("settings_corrupt", zap.String("path", path), zap.Error(err))
		return s, nil
	}
	for k, v := range saved {
		if _, known := s.values[k]; known {
			s.values[k] = v
		}
	}
	return s, nil
}

func (s *Store) Enabled(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

// Set changes key and saves. The new value stays in effect even when saving fails.
func (s *Store) Set(key string, on bool) error {
	s.mu.Lock()
	if _, known := s.values[key]; !known {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	s.values[key] = on
	s.mu.Unlock()
	return s.Save()
}

// Toggle flips key, saves, and returns the new value.
func (s *Store) Toggle(key string) (bool, error) {
	s.mu.Lock()
	cur, known := s.values[key]
	if !known {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	s.values[key] = !cur
	s.mu.Unlock()
	return !cur, s.Save()
}

// All returns a copy of every toggle.
func (s *Store) All() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *Store) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Save writes all toggles to the backing file. A Store without a path keeps them in
// memory only.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	raw, err := yaml.Marshal(s.All())
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}
	s.logger.Debug("settings_saved", zap.String("path", s.path))
	return nil
}
