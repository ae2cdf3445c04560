package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"sync"

	"dp-go/internal/dp"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// Directories exist once an object has been put below them, mirroring
// FileSystemVault. This implementation is safe for concurrent use.
type MemoryVault struct {
	objects map[string][]byte
	dirs    map[string]struct{}
	mu      sync.RWMutex
}

// NewMemoryVault creates a new, empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		objects: make(map[string][]byte),
		dirs:    map[string]struct{}{"": {}},
	}
}

// Put stores an object under key.
func (m *MemoryVault) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[cleaned] = data
	for dir := path.Dir(cleaned); dir != "."; dir = path.Dir(dir) {
		m.dirs[dir] = struct{}{}
	}
	return nil
}

// Get writes the object stored under key to w.
func (m *MemoryVault) Get(ctx context.Context, key string, w io.Writer) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}

	m.mu.RLock()
	data, ok := m.objects[cleaned]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", dp.ErrNotFound, key)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

// List returns the sorted names of objects directly under dir.
func (m *MemoryVault) List(ctx context.Context, dir string) ([]string, error) {
	cleaned, err := cleanDir(dir)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.dirs[cleaned]; !ok {
		return nil, fmt.Errorf("%w: %s", dp.ErrNotFound, dir)
	}

	names := []string{}
	for key := range m.objects {
		parent := path.Dir(key)
		if parent == "." {
			parent = ""
		}
		if parent == cleaned {
			names = append(names, path.Base(key))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the object stored under key.
func (m *MemoryVault) Delete(ctx context.Context, key string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, cleaned)
	return nil
}

// Len returns the number of stored objects.
func (m *MemoryVault) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(ctx context.Context) error {
	return nil
}

// Compile-time check that MemoryVault implements dp.Vault interface
var _ dp.Vault = (*MemoryVault)(nil)
