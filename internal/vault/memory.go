package vault

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"sync"

	"notes-go/internal/backup"
)

// MemoryVault keeps snapshots in memory. It is safe for concurrent use and
// intended for tests and the "memory" vault type.
type MemoryVault struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// NewMemoryVault creates an empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{snapshots: make(map[string][]byte)}
}

func (m *MemoryVault) PutSnapshot(name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[name] = data
	return nil
}

func (m *MemoryVault) GetSnapshot(name string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.snapshots[name]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%s: %w", name, backup.ErrSnapshotNotFound)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (m *MemoryVault) ListSnapshots() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.snapshots))
	for name := range m.snapshots {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements backup.Vault
var _ backup.Vault = (*MemoryVault)(nil)
