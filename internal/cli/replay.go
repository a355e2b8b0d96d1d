package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/smartscale/internal/mealog"
	"github.com/roach88/smartscale/internal/nutrition"
)

// TotalsResult summarizes a rebuilt daily log.
type TotalsResult struct {
	Meals    int                `json:"meals"`
	Weight   float64            `json:"weight"`
	Values   nutrition.Values   `json:"values"`
	Servings nutrition.Servings `json:"servings"`
}

func totalsOf(log *nutrition.DailyLog) TotalsResult {
	return TotalsResult{
		Meals:    log.Len(),
		Weight:   log.Weight(),
		Values:   log.Values(),
		Servings: log.Values().Servings(),
	}
}

func printTotals(cmd *cobra.Command, t TotalsResult) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Meals:    %d\n", t.Meals)
	fmt.Fprintf(w, "Weight:   %.1f g\n", t.Weight)
	fmt.Fprintf(w, "Kcal:     %.1f\n", t.Values.Kcal)
	fmt.Fprintf(w, "Carb:     %.1f g (%.1f servings)\n", t.Values.Carb, t.Servings.Carb)
	fmt.Fprintf(w, "Fat:      %.1f g (%.1f servings)\n", t.Values.Fat, t.Servings.Fat)
	fmt.Fprintf(w, "Protein:  %.1f g (%.1f servings)\n", t.Values.Protein, t.Servings.Protein)
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <log-file>",
		Short: "Recompute nutrition totals from a meal log",
		Long: `Recompute nutrition totals from a meal log.

Every complete meal in the file is rebuilt against the food group
table and added up. Meals without ingredients are skipped.

Examples:
  smartscale replay data/pending.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			lines, err := readLogFile(args[0])
			if err != nil {
				return failRead(out, args[0], err)
			}
			var log nutrition.DailyLog
			if _, err := mealog.Replay(&log, nutrition.DefaultTable(), lines, nil); err != nil {
				return out.Fail(ExitFailure, ErrCodeInvalidInput, "failed to replay meals", err)
			}
			totals := totalsOf(&log)
			if rootOpts.Format == "json" {
				return out.Success(totals)
			}
			printTotals(cmd, totals)
			return nil
		},
	}
}
