package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/smartscale/internal/fsm"
	"github.com/roach88/smartscale/internal/link"
	"github.com/roach88/smartscale/internal/mealog"
)

// Forwarder is the scale's meal sink. Every saved meal is written to the
// daily CSV log, then sent to the gateway; a meal the gateway does not
// confirm is kept in the backlog.
type Forwarder struct {
	conn    *link.Conn
	backlog *Backlog
	csv     *mealog.DailyCSV
	logger  *slog.Logger
}

// NewForwarder creates a forwarder. csv may be nil.
func NewForwarder(conn *link.Conn, backlog *Backlog, csv *mealog.DailyCSV, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{conn: conn, backlog: backlog, csv: csv, logger: logger}
}

var _ fsm.MealSink = (*Forwarder)(nil)

// SaveMeal implements fsm.MealSink. It returns an error when the meal was
// not confirmed by the server; the meal is then in the backlog. A failure
// writing the CSV log does not stop delivery and is joined to the result.
func (f *Forwarder) SaveMeal(ctx context.Context, m fsm.SavedMeal) error {
	var csvErr error
	if f.csv != nil {
		if err := f.csv.Append(ctx, m.At, m.Meal.Weight(), m.Meal.Values()); err != nil {
			f.logger.Error("daily log not written", "session", m.SessionID, "at", m.At, "error", err)
			csvErr = fmt.Errorf("write daily log: %w", err)
		}
	}

	meal := mealog.MealLines{End: len(m.Lines), Lines: m.Lines}
	err := f.deliver(ctx, meal)
	f.finish()
	if err == nil {
		f.logger.Info("meal confirmed", "session", m.SessionID, "at", m.At)
		return csvErr
	}

	f.logger.Warn("meal kept for retry", "session", m.SessionID, "at", m.At, "error", err)
	if berr := f.backlog.Append(ctx, m.Lines); berr != nil {
		return errors.Join(csvErr, err, fmt.Errorf("keep meal for retry: %w", berr))
	}
	return errors.Join(csvErr, fmt.Errorf("meal kept for retry: %w", err))
}

// DrainBacklog sends the backlog to the gateway, meal by meal.
func (f *Forwarder) DrainBacklog(ctx context.Context) (DrainStats, error) {
	meals, err := f.backlog.Meals(ctx)
	if err != nil {
		return DrainStats{}, err
	}
	if len(meals) == 0 {
		return DrainStats{}, nil
	}
	defer f.finish()
	return f.backlog.Drain(ctx, f.deliver)
}

// deliver checks the gateway's network, then sends one meal and waits for
// the server's verdict.
func (f *Forwarder) deliver(ctx context.Context, meal mealog.MealLines) error {
	online, err := f.conn.CheckWiFi(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoNetwork, err)
	}
	if !online {
		return ErrNoNetwork
	}
	if err := f.conn.StartSave(ctx); err != nil {
		return fmt.Errorf("start save: %w", err)
	}
	for _, l := range meal.Lines {
		if err := f.conn.Send(l.String()); err != nil {
			return err
		}
	}
	res, err := f.conn.AwaitSaveResult(ctx)
	if err != nil {
		if link.IsTimeout(err) {
			return fmt.Errorf("%w: %v", ErrRemoteTimeout, err)
		}
		return err
	}
	return resultErr(res)
}

// finish tells the gateway the transmission is over so it can log out.
func (f *Forwarder) finish() {
	if err := f.conn.Send(mealog.EndTransmission().String()); err != nil {
		f.logger.Debug("end of transmission not sent", "error", err)
	}
}

func resultErr(r link.SaveResult) error {
	switch {
	case r.OK:
		return nil
	case r.NoWiFi:
		return ErrNoNetwork
	case r.TimedOut:
		return ErrRemoteTimeout
	}
	return &UploadError{Op: "upload", Status: r.Status}
}

func saveResult(err error) link.SaveResult {
	var ue *UploadError
	switch {
	case err == nil:
		return link.SaveResult{OK: true}
	case errors.As(err, &ue):
		return link.SaveResult{Status: ue.Status}
	case IsNoNetwork(err):
		return link.SaveResult{NoWiFi: true}
	case errors.Is(err, ErrRemoteTimeout):
		return link.SaveResult{TimedOut: true}
	}
	return link.SaveResult{Status: 500}
}
