package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/smartscale/internal/mealog"
	"github.com/roach88/smartscale/internal/nutrition"
	"github.com/roach88/smartscale/internal/store"
)

// DailyOptions holds flags for the daily command.
type DailyOptions struct {
	*RootOptions
	Date string
}

// NewDailyCommand creates the daily command.
func NewDailyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DailyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "daily <csv-file>",
		Short: "Show one day's totals from the daily CSV",
		Long: `Show one day's totals from the daily CSV.

Rows dated on --date (DD.MM.YYYY, default today in the configured
timezone) are added up the way the scale does after a restart.

Examples:
  smartscale daily data/daily.csv
  smartscale daily data/daily.csv --date 03.07.2024`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaily(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "day to show, DD.MM.YYYY")

	return cmd
}

func runDaily(opts *DailyOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "invalid timezone", err)
	}

	day := time.Now().In(loc)
	if opts.Date != "" {
		day, err = time.ParseInLocation(mealog.DateLayout, opts.Date, loc)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeInvalidInput, fmt.Sprintf("invalid date %q", opts.Date), err)
		}
	}

	ds, err := store.OpenDir(filepath.Dir(path))
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStorage, "failed to open directory", err)
	}
	csv := mealog.NewDailyCSV(ds, filepath.Base(path), loc)

	var log nutrition.DailyLog
	if _, err := csv.RebuildDay(cmd.Context(), day, &log); err != nil {
		return out.Fail(ExitFailure, ErrCodeInvalidInput, "failed to read daily csv", err)
	}

	totals := totalsOf(&log)
	if opts.Format == "json" {
		return out.Success(totals)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Day:      %s\n", day.Format(mealog.DateLayout))
	printTotals(cmd, totals)
	return nil
}
