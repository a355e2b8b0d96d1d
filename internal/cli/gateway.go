package cli

import (
	"context"
	"errors"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/smartscale/internal/delivery"
)

// GatewayOptions holds flags for the gateway command.
type GatewayOptions struct {
	*RootOptions
	Device  string
	Metrics bool
}

// NewGatewayCommand creates the gateway command.
func NewGatewayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GatewayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Answer the scale's link requests",
		Long: `Answer the scale's link requests.

Serves the gateway end of the serial link: answers pings and network
checks, receives saved meals and uploads each one to the server, then
reports the server's verdict back to the scale. Without --device the
link is read from stdin and answered on stdout.

Exit codes:
  0 - Link closed
  2 - Command error (bad config, device not available)

Examples:
  smartscale gateway --device /dev/ttyUSB0 --config gateway.yaml
  socat PTY,link=/tmp/scale - | smartscale gateway`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Device, "device", "", "serial device of the link (default stdin/stdout)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print delivery metrics when the link closes")

	return cmd
}

func runGateway(opts *GatewayOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if cfg.GatewayURL == "" {
		return out.Fail(ExitCommandError, ErrCodeConfig, "gateway_url is not set", nil)
	}

	reg := prometheus.NewRegistry()
	pipeline, err := newPipeline(ctx, cfg, reg, out)
	if err != nil {
		return err
	}

	var rw io.ReadWriter = stdio{cmd.InOrStdin(), cmd.OutOrStdout()}
	if opts.Device != "" {
		dev, err := openDevice(opts.Device)
		if err != nil {
			return out.Fail(ExitCommandError, ErrCodeNotFound, "failed to open device", err)
		}
		rw = dev
	}
	conn := newConn(cfg, rw)
	if opts.Device != "" {
		// Closing the device unblocks the framer; stdin cannot be unblocked.
		defer conn.Close()
	}
	out.VerboseLog("Serving link for %s, uploading to %s", cfg.MAC, cfg.GatewayURL)

	gw := delivery.NewGateway(conn, pipeline, delivery.GatewayConfig{})
	if err := gw.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitCommandError, "link failed", err)
	}

	if opts.Metrics {
		return writeMetrics(cmd.ErrOrStderr(), reg)
	}
	return nil
}
