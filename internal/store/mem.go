package store

import (
	"context"
	"sync"
)

// MemStore is an in-memory LineStore.
type MemStore struct {
	mu    sync.Mutex
	files map[string][]string
}

var _ LineStore = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{files: make(map[string][]string)}
}

func (m *MemStore) AppendLine(_ context.Context, file, line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[file] = append(m.files[file], line)
	return nil
}

func (m *MemStore) ReadLines(_ context.Context, file string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.files[file]...), nil
}

func (m *MemStore) DeleteFile(_ context.Context, file string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, file)
	return nil
}

// Exists reports whether file holds any lines.
func (m *MemStore) Exists(file string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files[file]) > 0
}
