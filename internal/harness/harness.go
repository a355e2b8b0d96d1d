package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/smartscale/internal/delivery"
	"github.com/roach88/smartscale/internal/fsm"
	"github.com/roach88/smartscale/internal/mealog"
	"github.com/roach88/smartscale/internal/store"
	"github.com/roach88/smartscale/internal/testutil"
)

// ErrDeliveryUnavailable is what the scenario sink reports when the
// scenario sets sink_fails.
var ErrDeliveryUnavailable = errors.New("delivery unavailable")

const dailyCSVFile = "daily.csv"

// Harness runs one scenario.
type Harness struct {
	machine *fsm.Machine
	clock   *testutil.FakeClock
	sink    *scenarioSink
	notices []string
	logger  *slog.Logger
}

// Option configures a run.
type Option func(*Harness)

// WithLogger sets the logger the machine logs to. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// scenarioSink keeps saved meals the way the scale does: a CSV row for
// every meal, and the meal's lines in the backlog when delivery fails.
type scenarioSink struct {
	fail    bool
	csv     *mealog.DailyCSV
	backlog *delivery.Backlog
	saved   [][]string
}

func (s *scenarioSink) SaveMeal(ctx context.Context, m fsm.SavedMeal) error {
	s.saved = append(s.saved, mealog.Strings(m.Lines))
	if err := s.csv.Append(ctx, m.At, m.Meal.Weight(), m.Meal.Values()); err != nil {
		return err
	}
	if !s.fail {
		return nil
	}
	if err := s.backlog.Append(ctx, m.Lines); err != nil {
		return err
	}
	return ErrDeliveryUnavailable
}

// Run executes a scenario and returns the result.
//
// Each run uses a fresh in-memory store, a fake clock starting at
// scenario.Start and, unless the scenario names one, the session id
// "session-0001".
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		clock:  testutil.NewFakeClock(scenario.Start),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	mem := store.NewMemStore()
	h.sink = &scenarioSink{
		fail:    scenario.SinkFails,
		csv:     mealog.NewDailyCSV(mem, dailyCSVFile, nil),
		backlog: delivery.NewBacklog(mem, "", "", h.logger),
	}

	id := scenario.Session
	if id == "" {
		id = testutil.NewSequentialIDs("session").Next()
	}
	h.machine = fsm.NewMachine(fsm.NewSession(id),
		fsm.WithClock(h.clock.Now),
		fsm.WithSink(h.sink),
		fsm.WithNotifier(fsm.NotifierFunc(func(n fsm.Notice) {
			h.notices = append(h.notices, string(n.Kind))
		})),
		fsm.WithLogger(h.logger),
	)

	ctx := context.Background()
	result := NewResult()
	result.Session = id
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
	}

	if err := h.finish(ctx, result); err != nil {
		return nil, err
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep applies one event and checks its expectation.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	ev, err := step.toEvent()
	if err != nil {
		return err
	}
	if step.Advance > 0 {
		h.clock.Advance(step.Advance)
	}

	from := h.machine.State()
	h.notices = nil
	outcome := OutcomeApplied
	if err := h.machine.Handle(ctx, ev); err != nil {
		outcome = OutcomeRefused
		if fsm.IsEventRejected(err) {
			outcome = OutcomeRejected
		}
	}

	te := TraceEvent{
		Seq:     i + 1,
		Event:   ev.String(),
		From:    from.String(),
		To:      h.machine.State().String(),
		Outcome: outcome,
		Notices: h.notices,
	}
	result.Trace = append(result.Trace, te)

	if e := step.Expect; e != nil {
		if e.State != "" && e.State != te.To {
			result.AddError(fmt.Sprintf("step %d (%s): expected state %s, got %s", te.Seq, te.Event, e.State, te.To))
		}
		if e.Outcome != "" && e.Outcome != te.Outcome {
			result.AddError(fmt.Sprintf("step %d (%s): expected outcome %s, got %s", te.Seq, te.Event, e.Outcome, te.Outcome))
		}
	}
	return nil
}

// finish captures the final session and the persisted files.
func (h *Harness) finish(ctx context.Context, result *Result) error {
	s := h.machine.Session()
	result.Saved = h.sink.saved

	pending, err := h.sink.backlog.Lines(ctx)
	if err != nil {
		return err
	}
	rows, err := h.sink.csv.Rows(ctx)
	if err != nil {
		return err
	}

	result.Final = FinalState{
		State:        h.machine.State().String(),
		MealWeight:   round2(s.Meal.Weight()),
		MealDishes:   s.Meal.DishCount(),
		DailyMeals:   s.Daily.Len(),
		DailyWeight:  round2(s.Daily.Weight()),
		DailyKcal:    round2(s.Daily.Values().Kcal),
		PendingLines: len(pending),
		CSVRows:      len(rows),
	}
	return nil
}
