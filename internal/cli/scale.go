package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/smartscale/internal/config"
	"github.com/roach88/smartscale/internal/delivery"
	"github.com/roach88/smartscale/internal/fsm"
	"github.com/roach88/smartscale/internal/link"
	"github.com/roach88/smartscale/internal/mealog"
)

// ScaleOptions holds flags for the scale command.
type ScaleOptions struct {
	*RootOptions
	Device  string
	Input   string
	Metrics bool
}

// ScaleNotice is one notice shown on the display.
type ScaleNotice struct {
	Kind  string `json:"kind"`
	State string `json:"state"`
	Event string `json:"event"`
	Error string `json:"error,omitempty"`
}

// ScaleResult summarises a console run.
type ScaleResult struct {
	State   string        `json:"state"`
	Notices []ScaleNotice `json:"notices"`
	Pending int           `json:"pending"`
}

// consoleStep is one parsed console line.
type consoleStep struct {
	weight *float64
	wait   time.Duration
	press  *fsm.Event
}

// NewScaleCommand creates the scale command.
func NewScaleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScaleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Run the scale's control loop from a console script",
		Long: `Run the scale's control loop from a console script.

Drives the live control loop: a sampler reads the load cell, the weight
detector turns readings into events and button presses go through the
debouncer. Saved meals are logged to the daily CSV and sent over the link;
unconfirmed meals stay in the backlog, which is drained at start.

The script is read from --input or stdin, one command per line:
  weight <grams>          set the load-cell reading
  press <Event> [group]   press a button, e.g. "press SelectGroupB 2"
  wait <duration>         let the loop run, e.g. "wait 300ms"

Without --device the gateway runs in-process and uploads to gateway_url.

Exit codes:
  0 - Script finished
  2 - Command error (bad config, bad script, device not available)

Examples:
  smartscale scale --device /dev/ttyAMA0 --input breakfast.txt
  smartscale scale --config scale.yaml < breakfast.txt`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScale(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Device, "device", "", "serial device of the link to the gateway")
	cmd.Flags().StringVar(&opts.Input, "input", "", "console script (default stdin)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print control-loop and delivery metrics after the run")

	return cmd
}

func runScale(opts *ScaleOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	windows, err := cfg.DebounceWindows()
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "invalid debounce windows", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "invalid timezone", err)
	}

	steps, err := readScript(opts.Input, cmd.InOrStdin())
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeInvalidInput, "invalid console script", err)
	}

	st, closeStore, err := cfg.OpenStore()
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStorage, "failed to open storage", err)
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	conn, stopLink, err := scaleLink(ctx, opts, cfg, reg, out)
	if err != nil {
		return err
	}
	defer stopLink()

	backlog := delivery.NewBacklog(st, cfg.Storage.Backlog, cfg.Storage.BacklogAux, nil)
	fwd := delivery.NewForwarder(conn, backlog, mealog.NewDailyCSV(st, cfg.Storage.DailyCSV, loc), nil)
	if stats, err := fwd.DrainBacklog(ctx); err != nil {
		out.VerboseLog("Backlog not drained: %v", err)
	} else if stats.Sent > 0 || stats.Pending > 0 {
		out.VerboseLog("Backlog: %d sent, %d pending", stats.Sent, stats.Pending)
	}

	var load atomic.Uint32
	metrics := fsm.NewMetrics(reg)
	queue := fsm.NewQueue(cfg.Input.QueueSize, metrics)
	detector := fsm.NewWeightDetector(fsm.DefaultDetectorConfig())
	sampler := fsm.NewSampler(func() float32 { return math.Float32frombits(load.Load()) }, cfg.Input.SampleInterval)

	result := ScaleResult{Notices: []ScaleNotice{}}
	text := opts.Format != "json"
	notifier := fsm.NotifierFunc(func(n fsm.Notice) {
		sn := ScaleNotice{Kind: string(n.Kind), State: n.State.String(), Event: n.Event.String()}
		if n.Err != nil {
			sn.Error = n.Err.Error()
		}
		result.Notices = append(result.Notices, sn)
		if text {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", sn.State, sn.Kind, sn.Event)
		}
	})

	machine := fsm.NewMachine(fsm.NewSession(""),
		fsm.WithSink(fwd),
		fsm.WithTarer(detector),
		fsm.WithNotifier(notifier),
		fsm.WithMetrics(metrics),
	)
	ctrl := fsm.NewController(machine, fsm.ControllerConfig{
		Queue:        queue,
		Debouncer:    fsm.NewDebouncer(cfg.Input.Debounce, windows),
		Detector:     detector,
		Sampler:      sampler,
		PollInterval: cfg.Input.PollInterval,
	})

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	if err := playScript(ctx, steps, ctrl, &load); err != nil {
		queue.Close()
		<-done
		return WrapExitError(ExitCommandError, "console script interrupted", err)
	}
	queue.Close()
	if err := <-done; err != nil {
		return WrapExitError(ExitCommandError, "control loop failed", err)
	}

	// The loop has stopped; the machine and result are ours again.
	result.State = machine.State().String()
	pending, err := backlog.Meals(ctx)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeStorage, "failed to read backlog", err)
	}
	result.Pending = len(pending)

	if text {
		fmt.Fprintf(cmd.OutOrStdout(), "State: %s\nPending: %d\n", result.State, result.Pending)
	} else if err := out.Success(result); err != nil {
		return err
	}

	if opts.Metrics {
		return writeMetrics(cmd.ErrOrStderr(), reg)
	}
	return nil
}

// scaleLink opens the scale end of the link. Without a device it serves
// the gateway end in-process over a pipe.
func scaleLink(ctx context.Context, opts *ScaleOptions, cfg config.Config, reg prometheus.Registerer, out *OutputFormatter) (*link.Conn, func(), error) {
	if opts.Device != "" {
		dev, err := openDevice(opts.Device)
		if err != nil {
			return nil, nil, out.Fail(ExitCommandError, ErrCodeNotFound, "failed to open device", err)
		}
		conn := newConn(cfg, dev)
		return conn, func() { _ = conn.Close() }, nil
	}

	if cfg.GatewayURL == "" {
		return nil, nil, out.Fail(ExitCommandError, ErrCodeConfig, "gateway_url is not set and no --device given", nil)
	}
	pipeline, err := newPipeline(ctx, cfg, reg, out)
	if err != nil {
		return nil, nil, err
	}

	scaleEnd, gatewayEnd := net.Pipe()
	conn := newConn(cfg, scaleEnd)
	gwConn := newConn(cfg, gatewayEnd)
	gw := delivery.NewGateway(gwConn, pipeline, delivery.GatewayConfig{})

	gwCtx, cancel := context.WithCancel(ctx)
	served := make(chan struct{})
	go func() {
		defer close(served)
		_ = gw.Serve(gwCtx)
	}()
	stop := func() {
		cancel()
		<-served
		_ = conn.Close()
		_ = gwConn.Close()
	}
	return conn, stop, nil
}

func readScript(path string, stdin io.Reader) ([]consoleStep, error) {
	r := stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var steps []consoleStep
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		step, err := parseConsoleLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		steps = append(steps, step)
	}
	return steps, sc.Err()
}

func parseConsoleLine(line string) (consoleStep, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "weight":
		if len(fields) != 2 {
			return consoleStep{}, errors.New("usage: weight <grams>")
		}
		g, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || g < 0 {
			return consoleStep{}, fmt.Errorf("invalid weight %q", fields[1])
		}
		return consoleStep{weight: &g}, nil

	case "wait":
		if len(fields) != 2 {
			return consoleStep{}, errors.New("usage: wait <duration>")
		}
		d, err := time.ParseDuration(fields[1])
		if err != nil || d < 0 {
			return consoleStep{}, fmt.Errorf("invalid duration %q", fields[1])
		}
		return consoleStep{wait: d}, nil

	case "press":
		if len(fields) < 2 || len(fields) > 3 {
			return consoleStep{}, errors.New("usage: press <Event> [group]")
		}
		kind, err := fsm.ParseEventKind(fields[1])
		if err != nil {
			return consoleStep{}, err
		}
		ev := fsm.Event{Kind: kind}
		if len(fields) == 3 {
			if ev.GroupID, err = strconv.Atoi(fields[2]); err != nil {
				return consoleStep{}, fmt.Errorf("invalid group %q", fields[2])
			}
		}
		return consoleStep{press: &ev}, nil
	}
	return consoleStep{}, fmt.Errorf("unknown command %q", fields[0])
}

// playScript feeds steps to the running controller.
func playScript(ctx context.Context, steps []consoleStep, ctrl *fsm.Controller, load *atomic.Uint32) error {
	for _, s := range steps {
		switch {
		case s.weight != nil:
			load.Store(math.Float32bits(float32(*s.weight)))
		case s.press != nil:
			if err := ctrl.Press(*s.press, time.Now()); err != nil {
				slog.Warn("press dropped", "event", *s.press, "error", err)
			}
		default:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.wait):
			}
		}
	}
	return nil
}
