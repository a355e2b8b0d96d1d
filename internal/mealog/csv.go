package mealog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/smartscale/internal/nutrition"
	"github.com/roach88/smartscale/internal/store"
)

// CSVHeader is the first line of the daily nutrition log.
const CSVHeader = "date;time;carb;carb_servings;fat;fat_servings;protein;protein_servings;kcal;weight"

const csvFields = 10

// Row is one saved meal in the daily nutrition log.
type Row struct {
	At       time.Time
	Values   nutrition.Values
	Servings nutrition.Servings
	Weight   float64
}

// DailyCSV is the persisted per-meal nutrition log.
type DailyCSV struct {
	store store.LineStore
	file  string
	loc   *time.Location
}

// NewDailyCSV returns a log stored as file in s. Timestamps are written and
// read in loc; nil means UTC.
func NewDailyCSV(s store.LineStore, file string, loc *time.Location) *DailyCSV {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyCSV{store: s, file: file, loc: loc}
}

// Append writes one row for a saved meal, writing the header first if the
// log is empty.
func (c *DailyCSV) Append(ctx context.Context, at time.Time, weight float64, v nutrition.Values) error {
	existing, err := c.store.ReadLines(ctx, c.file)
	if err != nil {
		return fmt.Errorf("append csv row: %w", err)
	}
	if len(existing) == 0 {
		if err := c.store.AppendLine(ctx, c.file, CSVHeader); err != nil {
			return fmt.Errorf("append csv header: %w", err)
		}
	}
	row := Row{At: at.In(c.loc), Values: v, Servings: v.Servings(), Weight: weight}
	line, err := formatRow(row)
	if err != nil {
		return fmt.Errorf("append csv row: %w", err)
	}
	if err := c.store.AppendLine(ctx, c.file, line); err != nil {
		return fmt.Errorf("append csv row: %w", err)
	}
	return nil
}

// Rows returns every row of the log.
func (c *DailyCSV) Rows(ctx context.Context) ([]Row, error) {
	lines, err := c.store.ReadLines(ctx, c.file)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(lines) > 0 && lines[0] == CSVHeader {
		lines = lines[1:]
	}
	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	r.Comma = ';'
	r.FieldsPerRecord = csvFields

	var rows []Row
	for n := 1; ; n++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", n, err)
		}
		row, err := c.parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", n, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RebuildDay adds every row dated on day's calendar date to log and returns
// how many were added.
func (c *DailyCSV) RebuildDay(ctx context.Context, day time.Time, log *nutrition.DailyLog) (int, error) {
	rows, err := c.Rows(ctx)
	if err != nil {
		return 0, err
	}
	y, m, d := day.In(c.loc).Date()
	log.Rollover(day.In(c.loc))
	n := 0
	for _, row := range rows {
		ry, rm, rd := row.At.Date()
		if ry != y || rm != m || rd != d {
			continue
		}
		log.AddTotals(row.At, row.Weight, row.Values)
		n++
	}
	return n, nil
}

// Reset deletes every row, leaving only the header.
func (c *DailyCSV) Reset(ctx context.Context) error {
	if err := c.store.DeleteFile(ctx, c.file); err != nil {
		return fmt.Errorf("reset csv: %w", err)
	}
	if err := c.store.AppendLine(ctx, c.file, CSVHeader); err != nil {
		return fmt.Errorf("reset csv: %w", err)
	}
	return nil
}

func formatRow(r Row) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Comma = ';'
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	rec := []string{
		r.At.Format(DateLayout),
		r.At.Format(TimeLayout),
		f(r.Values.Carb), f(r.Servings.Carb),
		f(r.Values.Fat), f(r.Servings.Fat),
		f(r.Values.Protein), f(r.Servings.Protein),
		f(r.Values.Kcal),
		f(r.Weight),
	}
	if err := w.Write(rec); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (c *DailyCSV) parseRow(rec []string) (Row, error) {
	at, err := time.ParseInLocation(DateLayout+" "+TimeLayout, rec[0]+" "+rec[1], c.loc)
	if err != nil {
		return Row{}, err
	}
	nums := make([]float64, 0, csvFields-2)
	for _, s := range rec[2:] {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Row{}, fmt.Errorf("parse %q: %w", s, err)
		}
		nums = append(nums, v)
	}
	return Row{
		At:       at,
		Values:   nutrition.Values{Carb: nums[0], Fat: nums[2], Protein: nums[4], Kcal: nums[6]},
		Servings: nutrition.Servings{Carb: nums[1], Fat: nums[3], Protein: nums[5]},
		Weight:   nums[7],
	}, nil
}
