package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/smartscale/internal/nutrition"
)

// GroupRow is one food group as printed by the groups command.
type GroupRow struct {
	ID       int              `json:"id"`
	BaseID   int              `json:"base_id"`
	Name     string           `json:"name"`
	Type     string           `json:"type"`
	State    string           `json:"state"`
	Examples string           `json:"examples,omitempty"`
	PerGram  nutrition.Values `json:"per_gram"`
}

// NewGroupsCommand creates the groups command.
func NewGroupsCommand(rootOpts *RootOptions) *cobra.Command {
	var cooked bool

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List the food group table",
		Long: `List the food group table the scale computes nutrition from.

Values are per gram. With --cooked only type A groups are listed, under
their cooked wire id.

Examples:
  smartscale groups
  smartscale groups --cooked --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl := nutrition.DefaultTable()
			var rows []GroupRow
			for _, g := range tbl.Groups() {
				if cooked {
					if g.Type != nutrition.TypeA {
						continue
					}
					c, err := tbl.Lookup(g.BaseID, nutrition.Cooked)
					if err != nil {
						return err
					}
					g = c
				}
				rows = append(rows, GroupRow{
					ID:       g.ID,
					BaseID:   g.BaseID,
					Name:     g.Name,
					Type:     string(g.Type),
					State:    g.State.String(),
					Examples: g.Examples,
					PerGram:  g.PerGram,
				})
			}

			if rootOpts.Format == "json" {
				return newFormatter(rootOpts, cmd).Success(rows)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tNAME\tKCAL\tCARB\tFAT\tPROTEIN")
			for _, r := range rows {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\t%.3f\t%.3f\t%.3f\n",
					r.ID, r.Type, r.Name, r.PerGram.Kcal, r.PerGram.Carb, r.PerGram.Fat, r.PerGram.Protein)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&cooked, "cooked", false, "list cooked rows instead of raw ones")

	return cmd
}
