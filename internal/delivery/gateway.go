package delivery

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/smartscale/internal/link"
	"github.com/roach88/smartscale/internal/mealog"
	"github.com/roach88/smartscale/internal/nutrition"
)

// ProductSource resolves barcodes. Implementations return link.ErrNoProduct
// for unknown codes, link.ErrRemoteTimeout or a *link.HTTPError for
// lookup failures.
type ProductSource interface {
	LookupProduct(ctx context.Context, barcode string) (nutrition.Product, error)
}

// StaticProducts is a ProductSource backed by a map.
type StaticProducts map[string]nutrition.Product

// LookupProduct implements ProductSource.
func (s StaticProducts) LookupProduct(_ context.Context, barcode string) (nutrition.Product, error) {
	p, ok := s[barcode]
	if !ok {
		return nutrition.Product{}, link.ErrNoProduct
	}
	return p, nil
}

// Scanner reads one barcode. It returns link.ErrNoBarcode when nothing
// was scanned and link.ErrTimeout when the wait ran out.
type Scanner interface {
	Scan(ctx context.Context) (string, error)
}

// DefaultIdlePoll is how long Serve waits for a frame before checking
// whether it should stop.
const DefaultIdlePoll = time.Second

// Gateway answers the scale's requests on the gateway end of the link.
type Gateway struct {
	conn     *link.Conn
	pipeline *Pipeline
	online   func() bool
	products ProductSource
	scanner  Scanner
	idle     time.Duration
	logger   *slog.Logger

	session   *Session
	receiving bool
	lines     []mealog.Line
}

// GatewayConfig wires a Gateway. Online defaults to always online;
// Products and Scanner are optional.
type GatewayConfig struct {
	Online   func() bool
	Products ProductSource
	Scanner  Scanner
	IdlePoll time.Duration
	Logger   *slog.Logger
}

// NewGateway creates a responder uploading through p.
func NewGateway(conn *link.Conn, p *Pipeline, cfg GatewayConfig) *Gateway {
	g := &Gateway{
		conn:     conn,
		pipeline: p,
		online:   cfg.Online,
		products: cfg.Products,
		scanner:  cfg.Scanner,
		idle:     cfg.IdlePoll,
		logger:   cfg.Logger,
	}
	if g.online == nil {
		g.online = func() bool { return true }
	}
	if g.idle <= 0 {
		g.idle = DefaultIdlePoll
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Serve answers requests until ctx is cancelled or the link closes.
func (g *Gateway) Serve(ctx context.Context) error {
	defer g.closeSession(context.Background())
	for {
		frame, err := g.conn.ReadFrame(ctx, g.idle)
		switch {
		case link.IsTimeout(err):
			continue
		case errors.Is(err, link.ErrClosed):
			return nil
		case err != nil:
			return err
		}
		if err := g.handle(ctx, frame); err != nil {
			return err
		}
	}
}

func (g *Gateway) handle(ctx context.Context, frame string) error {
	switch {
	case frame == link.MsgPing:
		return g.conn.Send(link.MsgPong)

	case frame == link.MsgCheckWiFi:
		if g.online() {
			return g.conn.Send(link.MsgWiFiOK)
		}
		return g.conn.Send(link.MsgNoWiFi)

	case frame == link.MsgSave:
		if !g.online() {
			return g.conn.Send(link.MsgNoWiFi)
		}
		g.receiving, g.lines = true, nil
		return g.conn.Send(link.MsgWaitingForData)

	case frame == link.MsgGetBarcode:
		return g.conn.Send(g.scan(ctx))

	case strings.HasPrefix(frame, link.MsgGetProduct):
		return g.conn.Send(g.product(ctx, strings.TrimPrefix(frame, link.MsgGetProduct)))
	}

	l, err := mealog.Parse(frame)
	if err != nil {
		g.logger.Warn("unknown frame", "frame", frame)
		return nil
	}
	if l.Kind == mealog.KindEndTransmission {
		g.receiving, g.lines = false, nil
		g.closeSession(ctx)
		return nil
	}
	if !g.receiving {
		g.logger.Warn("meal line outside a save", "frame", frame)
		return nil
	}
	g.lines = append(g.lines, l)
	if l.Kind != mealog.KindEndMeal {
		return nil
	}

	meal := mealog.MealLines{End: len(g.lines), Lines: g.lines}
	g.receiving, g.lines = false, nil
	return g.conn.Send(saveResult(g.upload(ctx, meal)).Frame())
}

func (g *Gateway) upload(ctx context.Context, meal mealog.MealLines) error {
	if !g.online() {
		return ErrNoNetwork
	}
	if g.session == nil {
		g.session = g.pipeline.Open()
	}
	return g.session.Upload(ctx, meal)
}

func (g *Gateway) closeSession(ctx context.Context) {
	if g.session != nil {
		g.session.Close(ctx)
		g.session = nil
	}
}

func (g *Gateway) scan(ctx context.Context) string {
	if g.scanner == nil {
		return link.MsgNoBarcode
	}
	code, err := g.scanner.Scan(ctx)
	switch {
	case err == nil && code != "":
		return link.MsgBarcode + code
	case link.IsTimeout(err):
		return link.MsgTimeout
	}
	return link.MsgNoBarcode
}

func (g *Gateway) product(ctx context.Context, barcode string) string {
	if g.products == nil {
		return link.MsgNoProduct
	}
	p, err := g.products.LookupProduct(ctx, barcode)
	var he *link.HTTPError
	switch {
	case err == nil:
		p.Barcode = barcode
		return link.FormatProduct(p)
	case errors.As(err, &he):
		return link.MsgHTTPError + strconv.Itoa(he.Status)
	case errors.Is(err, link.ErrRemoteTimeout):
		return link.MsgProductTimeout
	}
	return link.MsgNoProduct
}
