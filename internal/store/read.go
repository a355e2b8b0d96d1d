package store

import (
	"context"
	"fmt"
)

// ReadLines returns the lines of file in insertion order. A file that was
// never written reads as empty.
func (s *SQLiteStore) ReadLines(ctx context.Context, file string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT line FROM lines
		WHERE file = ?
		ORDER BY seq ASC
	`, file)
	if err != nil {
		return nil, fmt.Errorf("query lines of %s: %w", file, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scan line of %s: %w", file, err)
		}
		out = append(out, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lines of %s: %w", file, err)
	}
	return out, nil
}

// Files lists the names that currently hold at least one line.
func (s *SQLiteStore) Files(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT file FROM lines ORDER BY file ASC`)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
