package fsm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultPollInterval is how often the control loop looks at the load cell
// and runs pending entry actions.
const DefaultPollInterval = 50 * time.Millisecond

// Controller is the scale's control loop. It owns the Machine and is the
// only goroutine that touches the Session.
type Controller struct {
	machine   *Machine
	queue     *Queue
	debouncer *Debouncer
	detector  *WeightDetector
	sampler   *Sampler
	poll      time.Duration
	logger    *slog.Logger
}

// ControllerConfig wires a Controller. Sampler and Detector are optional;
// without them weight events must be pushed by the caller.
type ControllerConfig struct {
	Queue        *Queue
	Debouncer    *Debouncer
	Detector     *WeightDetector
	Sampler      *Sampler
	PollInterval time.Duration
	Logger       *slog.Logger
}

// NewController creates a control loop around m.
func NewController(m *Machine, cfg ControllerConfig) *Controller {
	c := &Controller{
		machine:   m,
		queue:     cfg.Queue,
		debouncer: cfg.Debouncer,
		detector:  cfg.Detector,
		sampler:   cfg.Sampler,
		poll:      cfg.PollInterval,
		logger:    cfg.Logger,
	}
	if c.queue == nil {
		c.queue = NewQueue(DefaultQueueSize, nil)
	}
	if c.debouncer == nil {
		c.debouncer = NewDebouncer(DefaultDebounce, nil)
	}
	if c.poll <= 0 {
		c.poll = DefaultPollInterval
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Machine returns the controlled machine.
func (c *Controller) Machine() *Machine { return c.machine }

// Press submits a button event pressed at at. Bounces are dropped silently;
// a full queue is reported.
func (c *Controller) Press(ev Event, at time.Time) error {
	if !c.debouncer.Accept(ev, at) {
		return nil
	}
	return c.queue.Push(ev)
}

// Run processes events until ctx is cancelled or the queue is closed.
//
// ERROR HANDLING: rejected and refused events are reported through the
// machine's notifier and logged; they never stop the loop.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("control loop starting", "state", c.machine.State())
	if c.sampler != nil {
		c.sampler.Start()
		defer c.sampler.Stop()
	}

	tk := time.NewTicker(c.poll)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("control loop stopping: context cancelled")
			return ctx.Err()

		case ev, ok := <-c.queue.C():
			if !ok {
				c.logger.Info("control loop stopping: queue closed")
				return nil
			}
			c.handle(ctx, ev)

		case <-tk.C:
			c.sample()
			c.machine.Poll(ctx)
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	err := c.machine.Handle(ctx, ev)
	var re *RuntimeError
	if err != nil && !errors.As(err, &re) {
		c.logger.Error("event failed", "event", ev, "error", err)
	}
}

func (c *Controller) sample() {
	if c.sampler == nil || c.detector == nil {
		return
	}
	w, ok := c.sampler.Take()
	if !ok {
		return
	}
	for _, ev := range c.detector.Observe(float64(w)) {
		if err := c.queue.Push(ev); err != nil {
			c.logger.Warn("weight event dropped", "event", ev, "error", err)
		}
	}
}
