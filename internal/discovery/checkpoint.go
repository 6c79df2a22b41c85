package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StateStore persists per-factory discovery progress.
type StateStore interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, value uint64) error
}

// Checkpoint is the on-disk form of FileStateStore.
type Checkpoint struct {
	Progress  map[string]uint64 `json:"progress"`
	UpdatedAt string            `json:"updated_at"`
}

// FileStateStore keeps discovery progress in a JSON file.
type FileStateStore struct {
	path string
	mu   sync.Mutex
}

var _ StateStore = (*FileStateStore)(nil)

func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

func (c *FileStateStore) LoadState(_ context.Context, name string) (uint64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp, err := c.load()
	if err != nil {
		return 0, false, err
	}
	value, ok := cp.Progress[name]
	return value, ok, nil
}

func (c *FileStateStore) SaveState(_ context.Context, name string, value uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp, err := c.load()
	if err != nil {
		return err
	}
	cp.Progress[name] = value
	cp.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	return nil
}

func (c *FileStateStore) load() (Checkpoint, error) {
	cp := Checkpoint{Progress: make(map[string]uint64)}

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return cp, nil
		}
		return cp, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return cp, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return cp, fmt.Errorf("read checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, &cp); err != nil {
		return cp, fmt.Errorf("parse checkpoint: %w", err)
	}
	if cp.Progress == nil {
		cp.Progress = make(map[string]uint64)
	}
	return cp, nil
}

// NopStateStore never remembers progress, so every run starts from scratch.
type NopStateStore struct{}

func (NopStateStore) LoadState(context.Context, string) (uint64, bool, error) { return 0, false, nil }

func (NopStateStore) SaveState(context.Context, string, uint64) error { return nil }
