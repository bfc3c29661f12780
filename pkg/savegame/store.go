package savegame

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/zurustar/scumm-et/pkg/logger"
)

// Store keeps framed save files by slot number.
type Store interface {
	Save(slot int, data []byte) error
	Load(slot int) ([]byte, error)
	Exists(slot int) bool
}

// DirStore keeps one file per slot in a directory, named
// "<prefix>.sNN" like the original games' save files.
type DirStore struct {
	dir    string
	prefix string
}

// NewDirStore returns a store writing into dir.
func NewDirStore(dir, prefix string) *DirStore {
	return &DirStore{dir: dir, prefix: prefix}
}

func (d *DirStore) path(slot int) string {
	return filepath.Join(d.dir, fmt.Sprintf("%s.s%02d", d.prefix, slot))
}

func (d *DirStore) Save(slot int, data []byte) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}
	p := d.path(slot)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write save slot %d: %w", slot, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("commit save slot %d: %w", slot, err)
	}
	logger.Channel("save").Debug("Saved", "slot", slot, "path", p, "bytes", len(data))
	return nil
}

func (d *DirStore) Load(slot int) ([]byte, error) {
	data, err := os.ReadFile(d.path(slot))
	if err != nil {
		return nil, fmt.Errorf("read save slot %d: %w", slot, err)
	}
	return data, nil
}

func (d *DirStore) Exists(slot int) bool {
	_, err := os.Stat(d.path(slot))
	return err == nil
}

// MemStore keeps saves in memory.
type MemStore struct {
	mu    sync.Mutex
	slots map[int][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{slots: make(map[int][]byte)}
}

func (m *MemStore) Save(slot int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = append([]byte(nil), data...)
	return nil
}

func (m *MemStore) Load(slot int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.slots[slot]
	if !ok {
		return nil, fmt.Errorf("save slot %d: %w", slot, fs.ErrNotExist)
	}
	return data, nil
}

func (m *MemStore) Exists(slot int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.slots[slot]
	return ok
}
