package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/smartscale/internal/mealog"
	"github.com/roach88/smartscale/internal/serializer"
)

// Pipeline uploads meals to the server, one document per meal.
type Pipeline struct {
	client   *Client
	mac      string
	builder  *serializer.Builder
	archiver Archiver
	metrics  *Metrics
	logger   *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithArchiver keeps a copy of every delivered document.
func WithArchiver(a Archiver) PipelineOption {
	return func(p *Pipeline) { p.archiver = a }
}

// WithMetrics records upload outcomes.
func WithMetrics(m *Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithCapacity sets the document memory budget.
func WithCapacity(n int) PipelineOption {
	return func(p *Pipeline) {
		p.builder = serializer.NewBuilder(p.mac, serializer.WithCapacity(n), serializer.WithMaxMeals(1))
	}
}

// NewPipeline creates a pipeline uploading as device mac.
func NewPipeline(client *Client, mac string, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		client:  client,
		mac:     mac,
		builder: serializer.NewBuilder(mac, serializer.WithMaxMeals(1)),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Session is one authenticated delivery session. The token is fetched on
// the first upload and reused until Close.
type Session struct {
	p     *Pipeline
	token string
}

// Open starts a session.
func (p *Pipeline) Open() *Session { return &Session{p: p} }

// Upload delivers one complete meal.
func (s *Session) Upload(ctx context.Context, meal mealog.MealLines) error {
	p := s.p
	res, err := p.builder.Build(meal.Lines, 0)
	if err != nil && !serializer.IsNoCapacity(err) {
		return fmt.Errorf("build document: %w", err)
	}
	if res.Meals != 1 {
		return fmt.Errorf("build document: got %d meals, want 1", res.Meals)
	}
	doc, err := res.Document.Encode()
	if err != nil {
		return err
	}

	if s.token == "" {
		token, err := p.client.Token(ctx, p.mac)
		if err != nil {
			p.metrics.count(err)
			return fmt.Errorf("acquire token: %w", err)
		}
		s.token = token
	}

	start := time.Now()
	err = p.client.Upload(ctx, s.token, doc)
	p.metrics.observe(err, time.Since(start))
	if err != nil {
		return err
	}
	p.logger.Info("meal delivered", "at", meal.At(), "bytes", len(doc))

	if p.archiver != nil {
		if err := p.archiver.Archive(ctx, p.mac, meal.At(), doc); err != nil {
			p.logger.Warn("archive failed", "at", meal.At(), "error", err)
		}
	}
	return nil
}

// Close releases the token. Failure is logged only: logout is cleanup,
// not part of delivery.
func (s *Session) Close(ctx context.Context) {
	if s.token == "" {
		return
	}
	if err := s.p.client.Logout(ctx, s.token); err != nil {
		s.p.logger.Warn("logout failed", "error", err)
	}
	s.token = ""
}

// Report is the outcome of delivering a batch of meals.
type Report struct {
	Delivered int
	Failed    []mealog.MealLines
}

// Deliver uploads every complete meal in lines, in order, within one
// session. Meals that fail are returned for the caller to keep.
func (p *Pipeline) Deliver(ctx context.Context, lines []mealog.Line) Report {
	meals, tail := mealog.SplitMeals(lines)
	if len(tail) > 0 {
		p.logger.Warn("ignoring incomplete meal", "lines", len(tail))
	}

	var rep Report
	s := p.Open()
	defer s.Close(ctx)
	for _, m := range meals {
		if err := s.Upload(ctx, m); err != nil {
			p.logger.Warn("meal not delivered", "at", m.At(), "error", err)
			rep.Failed = append(rep.Failed, m)
			continue
		}
		rep.Delivered++
	}
	return rep
}

// DrainBacklog delivers the backlog within one session and rewrites it
// with the meals that failed.
func (p *Pipeline) DrainBacklog(ctx context.Context, b *Backlog) (DrainStats, error) {
	s := p.Open()
	defer s.Close(ctx)
	stats, err := b.Drain(ctx, s.Upload)
	p.metrics.setPending(stats.Pending)
	if err != nil {
		return stats, fmt.Errorf("drain backlog: %w", err)
	}
	p.logger.Info("backlog drained", "sent", stats.Sent, "pending", stats.Pending)
	return stats, nil
}
