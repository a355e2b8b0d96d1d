package fsm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/smartscale/internal/nutrition"
)

// Machine applies events to a Session according to a RuleTable.
//
// Thread-safety model: a Machine belongs to one goroutine. Handle,
// Dispatch and Poll must not be called concurrently.
//
// INVARIANTS:
//   - A rejected or refused event changes neither the state nor the session
//   - Each transition runs its target's entry action exactly once
type Machine struct {
	rules    RuleTable
	table    *nutrition.Table
	session  *Session
	notifier Notifier
	sink     MealSink
	tarer    Tarer
	now      func() time.Time
	logger   *slog.Logger
	metrics  *Metrics

	state   State
	prev    State
	cause   Event
	entered bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithRules replaces the default transition table.
func WithRules(rules RuleTable) Option {
	return func(m *Machine) { m.rules = append(RuleTable(nil), rules...) }
}

// WithTable sets the food-group table used to resolve selections.
func WithTable(t *nutrition.Table) Option {
	return func(m *Machine) { m.table = t }
}

// WithNotifier sets the receiver of user-visible notices.
func WithNotifier(n Notifier) Option {
	return func(m *Machine) { m.notifier = n }
}

// WithSink sets where saved meals are handed off.
func WithSink(s MealSink) Option {
	return func(m *Machine) { m.sink = s }
}

// WithTarer sets the scale to tare when a new group is selected.
func WithTarer(t Tarer) Option {
	return func(m *Machine) { m.tarer = t }
}

// WithClock sets the time source used to stamp saved meals.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithMetrics records event outcomes.
func WithMetrics(mt *Metrics) Option {
	return func(m *Machine) { m.metrics = mt }
}

// NewMachine creates a machine in Idle working on session.
func NewMachine(session *Session, opts ...Option) *Machine {
	m := &Machine{
		rules:   DefaultRules(),
		table:   nutrition.DefaultTable(),
		session: session,
		now:     time.Now,
		logger:  slog.Default(),
		state:   Idle,
		prev:    Idle,
		entered: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Session returns the session the machine mutates.
func (m *Machine) Session() *Session { return m.session }

// Handle dispatches ev and runs the resulting entry action.
func (m *Machine) Handle(ctx context.Context, ev Event) error {
	if err := m.Dispatch(ctx, ev); err != nil {
		return err
	}
	m.Poll(ctx)
	return nil
}

// Dispatch applies the transition for ev without running the entry action.
// An entry action still pending from a previous transition runs first.
func (m *Machine) Dispatch(ctx context.Context, ev Event) error {
	m.Poll(ctx)

	next, ok := m.rules.Next(m.state, ev.Kind)
	if !ok {
		err := NewRejectedError(m.state, ev)
		m.logger.Debug("event rejected", "state", m.state, "event", ev)
		m.notify(Notice{Kind: NoticeRejected, State: m.state, Event: ev, Err: err})
		m.metrics.observe(ev.Kind, outcomeRejected)
		return err
	}

	if err := m.guard(next, ev); err != nil {
		kind := NoticeNothingToCommit
		if IsInvalidGroup(err) {
			kind = NoticeInvalidGroup
		}
		m.logger.Debug("event refused", "state", m.state, "event", ev, "error", err)
		m.notify(Notice{Kind: kind, State: m.state, Event: ev, Err: err})
		m.metrics.observe(ev.Kind, outcomeRefused)
		return err
	}

	m.logger.Debug("transition", "from", m.state, "to", next, "event", ev)
	m.prev, m.state, m.cause, m.entered = m.state, next, ev, false
	m.metrics.observe(ev.Kind, outcomeApplied)
	return nil
}

// Poll runs the current state's entry action if it has not run since the
// last transition. It reports whether an action ran.
func (m *Machine) Poll(ctx context.Context) bool {
	if m.entered {
		return false
	}
	m.entered = true
	m.enter(ctx)
	return true
}

// guard checks preconditions that a matching rule alone cannot express.
func (m *Machine) guard(next State, ev Event) error {
	s := m.session
	switch ev.Kind {
	case SelectGroupA, SelectGroupB:
		g, err := m.table.Lookup(ev.GroupID, nutrition.Raw)
		if err != nil {
			return NewInvalidGroupError(m.state, ev, err)
		}
		want := nutrition.TypeA
		if ev.Kind == SelectGroupB {
			want = nutrition.TypeB
		}
		if g.Type != want {
			return NewInvalidGroupError(m.state, ev,
				fmt.Errorf("group %d is type %s, not %s", g.ID, g.Type, want))
		}
	case CommitDish:
		if next == DishCommitted && !s.dishHasFood() {
			return NewNothingToCommitError(m.state, ev, "dish")
		}
	case DeleteDish:
		if next == DishDeleted && !s.dishHasFood() {
			return NewNothingToCommitError(m.state, ev, "dish")
		}
	case CommitMeal:
		if next == MealSaved && !s.mealHasFood() {
			return NewNothingToCommitError(m.state, ev, "meal")
		}
	}
	return nil
}

func (m *Machine) enter(ctx context.Context) {
	s := m.session
	ev := m.cause

	switch m.state {
	case Idle:
		if m.prev == Idle {
			return
		}
		s.clearPending()
		if !s.Meal.OpenDish().IsEmpty() {
			removed := s.Meal.DiscardDish()
			s.List.DropLastDish()
			m.logger.Info("open dish discarded", "ingredients", removed.Len(), "weight", removed.Weight())
			m.notify(Notice{Kind: NoticeDishDiscarded, State: m.state, Event: ev})
		} else {
			s.List.TrimEmptyDish()
		}
		s.clearGroup()
		s.container = 0

	case ContainerPlaced:
		if m.prev == Idle {
			s.List.StartDish()
		}

	case GroupASelected, GroupBSelected:
		if ev.Kind != SelectGroupA && ev.Kind != SelectGroupB {
			return
		}
		switch m.prev {
		case ContainerPlaced:
			s.container = roundWeight(ev.Weight)
		case Weighed:
			s.foldPending()
		}
		if s.Meal.OpenDish().IsEmpty() {
			s.List.StartDish()
		}
		// Lookup cannot fail here: guard already resolved the group.
		g, _ := m.table.Lookup(ev.GroupID, nutrition.Raw)
		s.group, s.hasGroup, s.mode = g, true, nutrition.Raw
		if m.tarer != nil {
			m.tarer.Tare()
		}

	case Raw:
		s.mode = nutrition.Raw
	case Cooked:
		s.mode = nutrition.Cooked

	case Weighed:
		if ev.Kind != WeightIncreased && ev.Kind != WeightDecreased {
			return
		}
		w := roundWeight(ev.Weight)
		if w <= 0 || !s.hasGroup {
			s.clearPending()
			return
		}
		mode := s.mode
		if s.group.Type == nutrition.TypeB {
			mode = nutrition.Raw
		}
		g, err := m.table.Lookup(s.group.BaseID, mode)
		if err != nil {
			m.logger.Error("resolve weighed group", "group", s.group.BaseID, "error", err)
			return
		}
		s.pending, s.hasPending = nutrition.NewIngredient(g, w), true

	case DishCommitted:
		if ev.Kind != CommitDish {
			return
		}
		s.foldPending()
		if err := s.Meal.CommitDish(); err != nil {
			m.logger.Error("commit dish", "error", err)
			return
		}
		s.clearGroup()
		m.notify(Notice{Kind: NoticeDishCommitted, State: m.state, Event: ev})

	case DishDeleted:
		if ev.Kind != DeleteDish {
			return
		}
		s.foldPending()
		removed := s.Meal.DiscardDish()
		s.List.DropLastDish()
		s.toRemove = s.container + removed.Weight()
		s.clearGroup()
		m.logger.Info("dish deleted", "ingredients", removed.Len(), "weight_to_remove", s.toRemove)
		m.notify(Notice{Kind: NoticeDishDeleted, State: m.state, Event: ev})

	case MealSaved:
		if ev.Kind != CommitMeal {
			return
		}
		m.saveMeal(ctx, ev)
	}
}

func (m *Machine) saveMeal(ctx context.Context, ev Event) {
	s := m.session
	s.foldPending()
	at := m.now()
	meal, err := s.Meal.Take()
	if err != nil {
		m.logger.Error("take meal", "error", err)
		return
	}
	s.List.FinishMeal(at)
	lines := s.List.Lines()
	s.List.Reset()
	s.Daily.Add(meal, at)
	s.clearGroup()

	m.logger.Info("meal saved",
		"session", s.ID,
		"dishes", meal.DishCount(),
		"weight", meal.Weight(),
		"kcal", meal.Values().Kcal,
	)
	m.notify(Notice{Kind: NoticeMealSaved, State: m.state, Event: ev})

	if m.sink == nil {
		return
	}
	saved := SavedMeal{SessionID: s.ID, At: at, Meal: meal, Lines: lines}
	if err := m.sink.SaveMeal(ctx, saved); err != nil {
		m.logger.Warn("meal hand-off failed", "session", s.ID, "error", err)
		m.notify(Notice{Kind: NoticeSaveFailed, State: m.state, Event: ev, Err: err})
	}
}

func (m *Machine) notify(n Notice) {
	if m.notifier != nil {
		m.notifier.Notify(n)
	}
}
