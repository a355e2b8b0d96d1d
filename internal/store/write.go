package store

import (
	"context"
	"fmt"
)

// AppendLine inserts line at the end of file.
func (s *SQLiteStore) AppendLine(ctx context.Context, file, line string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO lines (file, line) VALUES (?, ?)`, file, line)
	if err != nil {
		return fmt.Errorf("append line to %s: %w", file, err)
	}
	return nil
}

// DeleteFile removes every line of file.
func (s *SQLiteStore) DeleteFile(ctx context.Context, file string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM lines WHERE file = ?`, file); err != nil {
		return fmt.Errorf("delete %s: %w", file, err)
	}
	return nil
}
