package fsm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/smartscale/internal/nutrition"
)

var testStamp = time.Date(2024, 7, 3, 8, 55, 36, 0, time.UTC)

type recordingNotifier struct {
	notices []Notice
}

func (r *recordingNotifier) Notify(n Notice) { r.notices = append(r.notices, n) }

func (r *recordingNotifier) count(kind NoticeKind) int {
	n := 0
	for _, notice := range r.notices {
		if notice.Kind == kind {
			n++
		}
	}
	return n
}

type recordingSink struct {
	saved []SavedMeal
	err   error
}

func (r *recordingSink) SaveMeal(_ context.Context, m SavedMeal) error {
	r.saved = append(r.saved, m)
	return r.err
}

type countingTarer struct{ n int }

func (c *countingTarer) Tare() { c.n++ }

type fixture struct {
	m        *Machine
	notifier *recordingNotifier
	sink     *recordingSink
	tarer    *countingTarer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		notifier: &recordingNotifier{},
		sink:     &recordingSink{},
		tarer:    &countingTarer{},
	}
	f.m = NewMachine(NewSession("test-session"),
		WithNotifier(f.notifier),
		WithSink(f.sink),
		WithTarer(f.tarer),
		WithClock(func() time.Time { return testStamp }),
	)
	return f
}

func (f *fixture) do(t *testing.T, events ...Event) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, f.m.Handle(context.Background(), ev), "event %s in %s", ev, f.m.State())
	}
}

func up(w float64) Event   { return Event{Kind: WeightIncreased, Weight: w} }
func down(w float64) Event { return Event{Kind: WeightDecreased, Weight: w} }
func groupA(id int) Event  { return Event{Kind: SelectGroupA, GroupID: id} }
func groupB(id int) Event  { return Event{Kind: SelectGroupB, GroupID: id} }

var (
	raw        = Event{Kind: MarkRaw}
	cooked     = Event{Kind: MarkCooked}
	tare       = Event{Kind: TareDone}
	removed    = Event{Kind: ContainerRemoved}
	commitDish = Event{Kind: CommitDish}
	deleteDish = Event{Kind: DeleteDish}
	commitMeal = Event{Kind: CommitMeal}
)

// snapshot captures everything an event may mutate.
type snapshot struct {
	State      State
	MealWeight float64
	MealValues nutrition.Values
	Dishes     int
	Open       []nutrition.Ingredient
	Pending    nutrition.Ingredient
	HasPending bool
	Group      nutrition.FoodGroup
	Mode       nutrition.ProcessingState
	Daily      nutrition.Values
	DailyLen   int
	Lines      []string
}

func takeSnapshot(m *Machine) snapshot {
	s := m.Session()
	open := s.Meal.OpenDish()
	p, hasP := s.Pending()
	g, _ := s.SelectedGroup()
	return snapshot{
		State:      m.State(),
		MealWeight: s.Meal.Weight(),
		MealValues: s.Meal.Values(),
		Dishes:     s.Meal.DishCount(),
		Open:       open.Ingredients(),
		Pending:    p,
		HasPending: hasP,
		Group:      g,
		Mode:       s.Mode(),
		Daily:      s.Daily.Values(),
		DailyLen:   s.Daily.Len(),
		Lines:      s.List.Strings(),
	}
}

func isRuntimeError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}
