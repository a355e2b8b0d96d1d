package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/smartscale/internal/delivery"
)

// UploadOptions holds flags for the upload command.
type UploadOptions struct {
	*RootOptions
	Metrics bool
}

// NewUploadCommand creates the upload command.
func NewUploadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UploadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Deliver meals waiting in the backlog",
		Long: `Deliver meals waiting in the backlog.

Opens the configured storage, uploads every pending meal to the gateway
within one session and keeps the meals that fail for the next run. When
an archive bucket is configured each delivered document is also copied
there.

Exit codes:
  0 - Backlog empty
  1 - Meals remain pending
  2 - Command error (bad config, storage not available)

Examples:
  smartscale upload --config scale.yaml
  SMARTSCALE_GATEWAY_URL=http://localhost:8080 smartscale upload --metrics`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print delivery metrics after the run")

	return cmd
}

func runUpload(opts *UploadOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if cfg.GatewayURL == "" {
		return out.Fail(ExitCommandError, ErrCodeConfig, "gateway_url is not set", nil)
	}

	st, closeStore, err := cfg.OpenStore()
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStorage, "failed to open storage", err)
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	pipeline, err := newPipeline(ctx, cfg, reg, out)
	if err != nil {
		return err
	}
	backlog := delivery.NewBacklog(st, cfg.Storage.Backlog, cfg.Storage.BacklogAux, nil)

	stats, err := pipeline.DrainBacklog(ctx, backlog)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStorage, "failed to drain backlog", err)
	}

	if opts.Format == "json" {
		if err := out.Success(stats); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Sent: %d\nPending: %d\n", stats.Sent, stats.Pending)
	}

	if opts.Metrics {
		if err := writeMetrics(cmd.ErrOrStderr(), reg); err != nil {
			return err
		}
	}

	if stats.Pending > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d meal(s) still pending", stats.Pending))
	}
	return nil
}
