package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultSendDelay is the pause after each write that lets the receiver
// drain its input buffer. The link has no hardware flow control.
const DefaultSendDelay = 50 * time.Millisecond

// Timeouts bounds each kind of exchange.
type Timeouts struct {
	// Ping, WiFi and Save are liveness checks; they fail open to
	// "unavailable".
	Ping time.Duration
	WiFi time.Duration
	Save time.Duration
	// Upload bounds the wait for the result of a meal upload.
	Upload time.Duration
	// Barcode is bounded by a person scanning a product.
	Barcode time.Duration
	// Product is bounded by the gateway's lookup on the network.
	Product time.Duration
}

// DefaultTimeouts returns the deadlines used by the scale.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Ping:    3 * time.Second,
		WiFi:    3 * time.Second,
		Save:    3 * time.Second,
		Upload:  12 * time.Second,
		Barcode: 30 * time.Second,
		Product: 15 * time.Second,
	}
}

// Conn is one end of the link.
type Conn struct {
	framer   *Framer
	w        io.Writer
	delay    time.Duration
	timeouts Timeouts
	logger   *slog.Logger

	mu sync.Mutex // serializes writes

	// owed counts replies to requests that gave up waiting. The gateway
	// answers every request once, so that many frames still to come
	// belong to earlier requests.
	owedMu sync.Mutex
	owed   int
}

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithSendDelay sets the pause after each write.
func WithSendDelay(d time.Duration) ConnOption {
	return func(c *Conn) { c.delay = d }
}

// WithTimeouts sets the exchange deadlines.
func WithTimeouts(t Timeouts) ConnOption {
	return func(c *Conn) { c.timeouts = t }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) ConnOption {
	return func(c *Conn) { c.logger = l }
}

// NewConn starts framing rw.
func NewConn(rw io.ReadWriter, opts ...ConnOption) *Conn {
	c := &Conn{
		w:        rw,
		delay:    DefaultSendDelay,
		timeouts: DefaultTimeouts(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.framer = NewFramer(rw)
	return c
}

// Timeouts returns the configured deadlines.
func (c *Conn) Timeouts() Timeouts { return c.timeouts }

// Send writes line followed by the delimiter, then pauses.
func (c *Conn) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := io.WriteString(c.w, line+"\n"); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	c.logger.Debug("link tx", "frame", line)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return nil
}

// ReadFrame waits up to timeout for the next frame.
func (c *Conn) ReadFrame(ctx context.Context, timeout time.Duration) (string, error) {
	frame, err := c.framer.ReadFrame(ctx, timeout)
	if err != nil {
		return "", err
	}
	c.logger.Debug("link rx", "frame", frame)
	return frame, nil
}

// Request sends req and waits for its reply.
//
// Replies owed to earlier requests that missed their deadline are
// discarded first, whether they are already buffered or arrive while
// this request waits, so a late reply never answers the wrong request.
func (c *Conn) Request(ctx context.Context, req string, timeout time.Duration) (string, error) {
	if n := c.framer.Drain(); n > 0 {
		c.settle(n)
		c.logger.Debug("link dropped stale frames", "count", n, "request", req)
	}
	if err := c.Send(req); err != nil {
		return "", err
	}
	return c.awaitReply(ctx, req, timeout)
}

// awaitReply reads the reply to req, skipping frames owed to earlier
// requests. On failure the reply becomes owed itself.
func (c *Conn) awaitReply(ctx context.Context, req string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		frame, err := c.ReadFrame(ctx, time.Until(deadline))
		if err != nil {
			if !errors.Is(err, ErrClosed) {
				c.owe()
			}
			return "", err
		}
		if c.settle(1) == 0 {
			return frame, nil
		}
		c.logger.Debug("link dropped late reply", "frame", frame, "request", req)
	}
}

func (c *Conn) owe() {
	c.owedMu.Lock()
	defer c.owedMu.Unlock()
	c.owed++
}

// settle marks up to n received frames as owed replies and returns how
// many were.
func (c *Conn) settle(n int) int {
	c.owedMu.Lock()
	defer c.owedMu.Unlock()
	m := min(n, c.owed)
	c.owed -= m
	return m
}

// Owed returns the number of late replies still expected.
func (c *Conn) Owed() int {
	c.owedMu.Lock()
	defer c.owedMu.Unlock()
	return c.owed
}

// Close stops the reader and closes the stream if it is closable.
func (c *Conn) Close() error { return c.framer.Close() }
