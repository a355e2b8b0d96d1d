package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/smartscale/internal/mealog"
	"github.com/roach88/smartscale/internal/store"
)

// Default backlog file names.
const (
	DefaultBacklogFile = "pending.txt"
	DefaultAuxFile     = "pending-aux.txt"
)

// SendFunc delivers one meal. A non-nil error keeps the meal pending.
type SendFunc func(ctx context.Context, meal mealog.MealLines) error

// DrainStats summarizes one drain.
type DrainStats struct {
	Sent      int `json:"sent"`
	Pending   int `json:"pending"`
	Discarded int `json:"discarded"`
}

// Backlog is the durable list of meals that still have to be delivered.
//
// The store cannot delete a record in the middle of a file, so a drain
// writes the meals that fail again to an auxiliary file as it goes and
// then replaces the backlog with it wholesale. The auxiliary file is
// sealed with a FIN-TRANSMISION line before the backlog is deleted; from
// then on it is the authoritative copy until it has been moved back.
type Backlog struct {
	store  store.LineStore
	file   string
	aux    string
	logger *slog.Logger
}

// NewBacklog creates a backlog kept in file, using aux while draining.
func NewBacklog(s store.LineStore, file, aux string, logger *slog.Logger) *Backlog {
	if file == "" {
		file = DefaultBacklogFile
	}
	if aux == "" {
		aux = DefaultAuxFile
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backlog{store: s, file: file, aux: aux, logger: logger}
}

// Append adds a meal's lines to the backlog.
func (b *Backlog) Append(ctx context.Context, lines []mealog.Line) error {
	return appendLines(ctx, b.store, b.file, lines)
}

// Lines returns the pending lines.
func (b *Backlog) Lines(ctx context.Context) ([]mealog.Line, error) {
	raw, err := b.store.ReadLines(ctx, b.file)
	if err != nil {
		return nil, fmt.Errorf("read backlog: %w", err)
	}
	lines, err := mealog.ParseAll(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backlog: %w", err)
	}
	return lines, nil
}

// Meals returns the pending complete meals.
func (b *Backlog) Meals(ctx context.Context) ([]mealog.MealLines, error) {
	lines, err := b.Lines(ctx)
	if err != nil {
		return nil, err
	}
	meals, _ := mealog.SplitMeals(lines)
	return meals, nil
}

// Drain offers every pending meal to send, in order. Meals send accepts
// leave the backlog; the rest stay, in their original order. Lines that
// do not form a complete meal are discarded.
//
// A previous interrupted drain is resolved first; see recover.
func (b *Backlog) Drain(ctx context.Context, send SendFunc) (DrainStats, error) {
	var stats DrainStats
	if err := b.recover(ctx); err != nil {
		return stats, err
	}

	lines, err := b.Lines(ctx)
	if err != nil {
		return stats, err
	}
	meals, tail := mealog.SplitMeals(lines)
	if len(tail) > 0 {
		stats.Discarded = len(tail)
		b.logger.Warn("discarding incomplete meal in backlog", "lines", len(tail))
	}
	if len(meals) == 0 {
		if len(tail) > 0 {
			return stats, b.deleteFile(ctx, b.file)
		}
		return stats, nil
	}

	for _, m := range meals {
		if err := send(ctx, m); err != nil {
			b.logger.Info("meal still pending", "at", m.At(), "error", err)
			if err := appendLines(ctx, b.store, b.aux, m.Lines); err != nil {
				return stats, err
			}
			stats.Pending++
			continue
		}
		stats.Sent++
	}

	if stats.Pending == 0 {
		return stats, b.deleteFile(ctx, b.file)
	}
	if err := b.store.AppendLine(ctx, b.aux, mealog.TokenEndTransmission); err != nil {
		return stats, fmt.Errorf("seal %s: %w", b.aux, err)
	}
	return stats, b.promote(ctx)
}

// recover resolves an auxiliary file left by an interrupted drain.
//
// A sealed auxiliary file outlived the backlog deletion, so the backlog
// may be missing or a partial copy: it is rebuilt from the auxiliary
// file. An unsealed one was cut short while meals were still being
// offered; the backlog was not touched yet and stays authoritative.
func (b *Backlog) recover(ctx context.Context) error {
	aux, err := b.store.ReadLines(ctx, b.aux)
	if err != nil {
		return fmt.Errorf("read backlog aux: %w", err)
	}
	if len(aux) == 0 {
		return nil
	}
	primary, err := b.store.ReadLines(ctx, b.file)
	if err != nil {
		return fmt.Errorf("read backlog: %w", err)
	}
	if sealed(aux) || len(primary) == 0 {
		b.logger.Warn("restoring backlog from interrupted drain", "lines", len(aux))
		return b.promote(ctx)
	}
	return b.deleteFile(ctx, b.aux)
}

// promote replaces the backlog with the auxiliary file. Every step can be
// repeated after a crash.
func (b *Backlog) promote(ctx context.Context) error {
	if err := b.deleteFile(ctx, b.file); err != nil {
		return err
	}
	if err := b.copyFile(ctx, b.aux, b.file); err != nil {
		return err
	}
	return b.deleteFile(ctx, b.aux)
}

func sealed(lines []string) bool {
	return len(lines) > 0 && lines[len(lines)-1] == mealog.TokenEndTransmission
}

func (b *Backlog) copyFile(ctx context.Context, from, to string) error {
	raw, err := b.store.ReadLines(ctx, from)
	if err != nil {
		return fmt.Errorf("read %s: %w", from, err)
	}
	if sealed(raw) {
		raw = raw[:len(raw)-1]
	}
	for _, l := range raw {
		if err := b.store.AppendLine(ctx, to, l); err != nil {
			return fmt.Errorf("write %s: %w", to, err)
		}
	}
	return nil
}

func (b *Backlog) deleteFile(ctx context.Context, file string) error {
	if err := b.store.DeleteFile(ctx, file); err != nil {
		return fmt.Errorf("delete %s: %w", file, err)
	}
	return nil
}

func appendLines(ctx context.Context, s store.LineStore, file string, lines []mealog.Line) error {
	for _, l := range lines {
		if err := s.AppendLine(ctx, file, l.String()); err != nil {
			return fmt.Errorf("append to %s: %w", file, err)
		}
	}
	return nil
}
