package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirStore keeps each file as a regular text file under Root.
type DirStore struct {
	Root string
}

var _ LineStore = (*DirStore)(nil)

// OpenDir prepares root for use, creating it if needed, and verifies it is
// writable.
func OpenDir(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	probe, err := os.CreateTemp(root, ".probe-*")
	if err != nil {
		return nil, fmt.Errorf("storage dir not writable: %w", err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return &DirStore{Root: root}, nil
}

func (d *DirStore) path(file string) (string, error) {
	if file == "" || strings.ContainsAny(file, `/\`) || file == "." || file == ".." {
		return "", fmt.Errorf("invalid file name %q", file)
	}
	return filepath.Join(d.Root, file), nil
}

// AppendLine appends line and a newline to file.
func (d *DirStore) AppendLine(ctx context.Context, file, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := d.path(file)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("append line to %s: %w", file, err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("append line to %s: %w", file, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("append line to %s: %w", file, err)
	}
	return nil
}

// ReadLines returns the lines of file without their terminators. Blank
// lines are skipped. A missing file reads as empty.
func (d *DirStore) ReadLines(ctx context.Context, file string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := d.path(file)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return out, nil
}

// DeleteFile removes file. Removing a missing file succeeds.
func (d *DirStore) DeleteFile(ctx context.Context, file string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := d.path(file)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", file, err)
	}
	return nil
}
