package store

import (
	"path/filepath"
	"testing"
)

// createTestStore opens a SQLite store in a temp dir.
func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// backends returns one instance of every LineStore implementation.
func backends(t *testing.T) map[string]LineStore {
	t.Helper()
	dir, err := OpenDir(filepath.Join(t.TempDir(), "sd"))
	if err != nil {
		t.Fatalf("OpenDir() failed: %v", err)
	}
	return map[string]LineStore{
		"sqlite": createTestStore(t),
		"dir":    dir,
		"mem":    NewMemStore(),
	}
}
