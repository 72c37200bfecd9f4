// Package store persists per-(preset, layer) configuration trees as JSON
// files. A missing entry is "never saved", not an error; callers treat
// load failures as "use defaults".
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/coreman2200/luxdeck/internal/preset"
)

// FileStore keeps one JSON file per (preset, layer) pair under root:
// root/<presetID>/<layerID>.json.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore { return &FileStore{root: root} }

func (s *FileStore) path(presetID, layerID string) string {
	return filepath.Join(s.root, sanitize(presetID), sanitize(layerID)+".json")
}

// sanitize keeps ids filesystem-safe without losing the derived-family
// suffix ("text-2" stays distinct from "text").
func sanitize(id string) string {
	repl := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")
	out := repl.Replace(id)
	if out == "" {
		out = "_"
	}
	return out
}

// Load returns the saved config, or (nil, nil) when none exists.
func (s *FileStore) Load(presetID, layerID string) (preset.Config, error) {
	b, err := os.ReadFile(s.path(presetID, layerID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load config %s/%s: %w", presetID, layerID, err)
	}
	var cfg preset.Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s/%s: %w", presetID, layerID, err)
	}
	return cfg, nil
}

// Save writes the config tree, creating directories as needed.
func (s *FileStore) Save(presetID, layerID string, cfg preset.Config) error {
	p := s.path(presetID, layerID)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("save config %s/%s: %w", presetID, layerID, err)
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config %s/%s: %w", presetID, layerID, err)
	}
	return os.WriteFile(p, b, 0o644)
}

// MemStore is the in-memory store used by simulators and tests.
type MemStore struct {
	mu   sync.Mutex
	data map[string]preset.Config
}

func NewMemStore() *MemStore {
	return &MemStore{data: map[string]preset.Config{}}
}

func (s *MemStore) Load(presetID, layerID string) (preset.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.data[presetID+"/"+layerID]
	if !ok {
		return nil, nil
	}
	return cfg.Clone(), nil
}

func (s *MemStore) Save(presetID, layerID string, cfg preset.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[presetID+"/"+layerID] = cfg.Clone()
	return nil
}
