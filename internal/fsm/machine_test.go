package fsm

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/smartscale/internal/nutrition"
)

func TestMachine_StartsIdle(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, Idle, f.m.State())
	assert.False(t, f.m.Poll(context.Background()), "no entry action pending at start")
}

func TestNewSession_GeneratesID(t *testing.T) {
	a, b := NewSession(""), NewSession("")
	assert.Len(t, a.ID, 36)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "kitchen-1", NewSession("kitchen-1").ID)
}

func TestMachine_WeighAndSaveMeal(t *testing.T) {
	f := newFixture(t)

	f.do(t,
		up(300),
		groupA(7), raw, up(53.5),
		groupA(9), raw, up(23.5),
		commitMeal,
	)

	assert.Equal(t, MealSaved, f.m.State())
	require.Len(t, f.sink.saved, 1)
	saved := f.sink.saved[0]
	assert.Equal(t, "test-session", saved.SessionID)
	assert.Equal(t, testStamp, saved.At)
	assert.Equal(t, []string{
		"INICIO-COMIDA",
		"INICIO-PLATO",
		"ALIMENTO,7,53.5",
		"ALIMENTO,9,23.5",
		"FIN-COMIDA,03.07.2024,08:55:36",
	}, stringsOf(saved))
	assert.Equal(t, 1, saved.Meal.DishCount())
	assert.InDelta(t, 77.0, saved.Meal.Weight(), 1e-9)

	s := f.m.Session()
	assert.True(t, s.Meal.IsEmpty(), "meal reset after save")
	assert.True(t, s.List.IsEmpty(), "list reset after save")
	assert.Equal(t, 1, s.Daily.Len())
	assert.InDelta(t, saved.Meal.Values().Kcal, s.Daily.Values().Kcal, 1e-9)
	assert.Equal(t, 2, f.tarer.n, "tare once per group selection")
	assert.Equal(t, 1, f.notifier.count(NoticeMealSaved))

	f.do(t, removed)
	assert.Equal(t, Idle, f.m.State())
}

func TestMachine_CookedModeUsesCookedValues(t *testing.T) {
	f := newFixture(t)
	f.do(t, up(250), groupA(8), cooked, up(100))

	p, ok := f.m.Session().Pending()
	require.True(t, ok)
	assert.Equal(t, 28, p.GroupID)
	assert.Equal(t, nutrition.Cooked, p.State)

	g, err := nutrition.DefaultTable().Lookup(8, nutrition.Cooked)
	require.NoError(t, err)
	assert.InDelta(t, g.PerGram.Kcal*100, p.Values.Kcal, 1e-9)
}

func TestMachine_TypeBWeighsWithoutMode(t *testing.T) {
	f := newFixture(t)
	f.do(t, up(200), groupB(6), up(120.04))

	assert.Equal(t, Weighed, f.m.State())
	p, ok := f.m.Session().Pending()
	require.True(t, ok)
	assert.Equal(t, 6, p.GroupID)
	assert.Equal(t, 120.0, p.Weight, "rounded to 0.1 g")
}

func TestMachine_ReweighReplacesPending(t *testing.T) {
	f := newFixture(t)
	f.do(t, up(200), groupB(6), up(120), up(150), down(140))

	p, ok := f.m.Session().Pending()
	require.True(t, ok)
	assert.Equal(t, 140.0, p.Weight)
	assert.True(t, f.m.Session().Meal.IsEmpty(), "pending is not folded by reweighing")
}

func TestMachine_RecordsContainerWeight(t *testing.T) {
	f := newFixture(t)
	f.do(t, up(312.34), Event{Kind: SelectGroupB, GroupID: 1, Weight: 312.34})
	assert.Equal(t, 312.3, f.m.Session().ContainerWeight())
}

func TestMachine_CommitDishThenSecondDish(t *testing.T) {
	f := newFixture(t)
	f.do(t,
		up(300), groupB(1), up(200), commitDish,
		removed,
		up(280), groupA(16), cooked, up(90), commitMeal,
	)

	require.Len(t, f.sink.saved, 1)
	saved := f.sink.saved[0]
	assert.Equal(t, 2, saved.Meal.DishCount())
	assert.Equal(t, []string{
		"INICIO-COMIDA",
		"INICIO-PLATO",
		"ALIMENTO,1,200",
		"INICIO-PLATO",
		"ALIMENTO,36,90",
		"FIN-COMIDA,03.07.2024,08:55:36",
	}, stringsOf(saved))
	assert.Equal(t, 1, f.notifier.count(NoticeDishCommitted))
}

func TestMachine_DeleteDishKeepsCommittedDishes(t *testing.T) {
	f := newFixture(t)
	f.do(t, up(300), groupB(1), up(200), commitDish)
	committed := f.m.Session().Meal.Values()
	f.do(t,
		removed,
		Event{Kind: WeightIncreased, Weight: 250}, Event{Kind: SelectGroupB, GroupID: 6, Weight: 250}, up(80),
	)

	f.do(t, deleteDish)

	s := f.m.Session()
	assert.Equal(t, DishDeleted, f.m.State())
	assert.Equal(t, 1, s.Meal.DishCount())
	assert.InDelta(t, 200.0, s.Meal.Weight(), 1e-9)
	got := s.Meal.Values()
	assert.InDelta(t, committed.Kcal, got.Kcal, 1e-9)
	assert.InDelta(t, committed.Carb, got.Carb, 1e-9)
	assert.InDelta(t, committed.Fat, got.Fat, 1e-9)
	assert.InDelta(t, committed.Protein, got.Protein, 1e-9)
	assert.Equal(t, s.Meal.Dishes()[0].Values(), committed)
	assert.Equal(t, 330.0, s.WeightToRemove(), "container plus dish contents")
	assert.Equal(t, []string{"INICIO-COMIDA", "INICIO-PLATO", "ALIMENTO,1,200"}, s.List.Strings())
	assert.Equal(t, 1, f.notifier.count(NoticeDishDeleted))
}

func TestMachine_ContainerRemovedDiscardsOpenDish(t *testing.T) {
	f := newFixture(t)
	f.do(t, up(300), groupB(1), up(200), groupB(6), up(50))
	// one ingredient folded, one pending
	f.do(t, removed)

	s := f.m.Session()
	assert.Equal(t, Idle, f.m.State())
	assert.True(t, s.Meal.IsEmpty())
	assert.InDelta(t, 0, s.Meal.Weight(), 1e-9)
	_, pending := s.Pending()
	assert.False(t, pending)
	assert.Equal(t, []string{"INICIO-COMIDA"}, s.List.Strings())
	assert.Equal(t, 1, f.notifier.count(NoticeDishDiscarded))
}

func TestMachine_ContainerRemovedBeforeWeighingTrimsHeader(t *testing.T) {
	f := newFixture(t)
	f.do(t, up(300), groupA(7), removed)

	assert.Equal(t, Idle, f.m.State())
	assert.Equal(t, []string{"INICIO-COMIDA"}, f.m.Session().List.Strings())
	assert.Equal(t, 0, f.notifier.count(NoticeDishDiscarded))
}

func TestMachine_SaveFromIdleAfterCommittedDish(t *testing.T) {
	f := newFixture(t)
	f.do(t, up(300), groupB(2), up(250), commitDish, removed, commitMeal)

	assert.Equal(t, MealSaved, f.m.State())
	require.Len(t, f.sink.saved, 1)
	assert.Equal(t, []string{
		"INICIO-COMIDA",
		"INICIO-PLATO",
		"ALIMENTO,2,250",
		"FIN-COMIDA,03.07.2024,08:55:36",
	}, stringsOf(f.sink.saved[0]))
}

func TestMachine_SinkFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.sink.err = errors.New("link down")
	f.do(t, up(300), groupB(2), up(250), commitMeal)

	assert.Equal(t, MealSaved, f.m.State())
	assert.Equal(t, 1, f.m.Session().Daily.Len(), "meal is kept locally even if hand-off fails")
	assert.Equal(t, 1, f.notifier.count(NoticeSaveFailed))
}

func TestMachine_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		setup []Event
		ev    Event
	}{
		{"group in idle", nil, groupA(7)},
		{"weight before mode", []Event{up(300), groupA(7)}, up(50)},
		{"commit dish in idle", nil, commitDish},
		{"mode in container placed", []Event{up(300)}, raw},
		{"mode after weighing", []Event{up(300), groupB(1), up(50)}, cooked},
		{"delete after commit", []Event{up(300), groupB(1), up(50), commitDish}, deleteDish},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.do(t, tt.setup...)
			before := takeSnapshot(f.m)
			noticesBefore := len(f.notifier.notices)

			err := f.m.Handle(context.Background(), tt.ev)

			require.Error(t, err)
			assert.True(t, IsEventRejected(err))
			assert.Equal(t, before, takeSnapshot(f.m))
			require.Len(t, f.notifier.notices, noticesBefore+1)
			last := f.notifier.notices[len(f.notifier.notices)-1]
			assert.Equal(t, NoticeRejected, last.Kind)
			assert.Equal(t, before.State, last.State)
			assert.Equal(t, tt.ev, last.Event)
		})
	}
}

func TestMachine_Refusals(t *testing.T) {
	tests := []struct {
		name   string
		setup  []Event
		ev     Event
		check  func(error) bool
		notice NoticeKind
	}{
		{"unknown group", []Event{up(300)}, groupA(42), IsInvalidGroup, NoticeInvalidGroup},
		{"type B button for type A group", []Event{up(300)}, groupB(7), IsInvalidGroup, NoticeInvalidGroup},
		{"type A button for type B group", []Event{up(300)}, groupA(1), IsInvalidGroup, NoticeInvalidGroup},
		{"commit empty dish", []Event{up(300), groupA(7)}, commitDish, IsNothingToCommit, NoticeNothingToCommit},
		{"delete empty dish", []Event{up(300), groupA(7), raw}, deleteDish, IsNothingToCommit, NoticeNothingToCommit},
		{"save empty meal from idle", nil, commitMeal, IsNothingToCommit, NoticeNothingToCommit},
		{"save empty meal with group", []Event{up(300), groupB(3)}, commitMeal, IsNothingToCommit, NoticeNothingToCommit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.do(t, tt.setup...)
			before := takeSnapshot(f.m)

			err := f.m.Handle(context.Background(), tt.ev)

			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error %v", err)
			assert.Equal(t, before, takeSnapshot(f.m))
			require.NotEmpty(t, f.notifier.notices)
			assert.Equal(t, tt.notice, f.notifier.notices[len(f.notifier.notices)-1].Kind)
			assert.Empty(t, f.sink.saved)
		})
	}
}

func TestMachine_EntryActionRunsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.m.Dispatch(ctx, up(300)))
	require.NoError(t, f.m.Dispatch(ctx, groupB(2)))
	assert.Equal(t, 0, f.tarer.n, "entry deferred until Poll")

	assert.True(t, f.m.Poll(ctx))
	assert.False(t, f.m.Poll(ctx))
	assert.False(t, f.m.Poll(ctx))
	assert.Equal(t, 1, f.tarer.n)

	require.NoError(t, f.m.Handle(ctx, up(250)))
	require.NoError(t, f.m.Dispatch(ctx, commitMeal))
	for i := 0; i < 5; i++ {
		f.m.Poll(ctx)
	}
	assert.Len(t, f.sink.saved, 1)
	assert.Equal(t, 1, f.m.Session().Daily.Len())
}

func TestMachine_SelfLoopDoesNotReenterSideEffects(t *testing.T) {
	f := newFixture(t)
	f.do(t, up(300), groupB(2), up(250), commitMeal)
	f.do(t, up(5), down(2), tare)

	assert.Len(t, f.sink.saved, 1)
	assert.Equal(t, 1, f.m.Session().Daily.Len())
}

func TestMachine_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	mt := NewMetrics(reg)
	m := NewMachine(NewSession("s"), WithMetrics(mt))
	ctx := context.Background()

	require.NoError(t, m.Handle(ctx, up(100)))
	assert.Error(t, m.Handle(ctx, raw))
	assert.Error(t, m.Handle(ctx, groupA(99)))

	assert.Equal(t, 1.0, testutil.ToFloat64(mt.events.WithLabelValues("WeightIncreased", outcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.events.WithLabelValues("MarkRaw", outcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.events.WithLabelValues("SelectGroupA", outcomeRefused)))
}

// Random event streams must keep the aggregates consistent: the meal equals
// its committed dishes plus the open dish, and the day equals its meals.
func TestMachine_RandomStreamsKeepAggregatesConsistent(t *testing.T) {
	kinds := []EventKind{
		TareDone, WeightIncreased, WeightDecreased, ContainerRemoved,
		SelectGroupA, SelectGroupB, MarkRaw, MarkCooked,
		CommitDish, DeleteDish, CommitMeal,
	}
	groups := []int{1, 6, 7, 8, 9, 16, 17, 18, 20, 42}

	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		f := newFixture(t)
		ctx := context.Background()

		for i := 0; i < 400; i++ {
			ev := Event{Kind: kinds[rng.Intn(len(kinds))]}
			switch ev.Kind {
			case SelectGroupA, SelectGroupB:
				ev.GroupID = groups[rng.Intn(len(groups))]
			case WeightIncreased, WeightDecreased:
				ev.Weight = float64(rng.Intn(5000)) / 10
			}

			before := takeSnapshot(f.m)
			err := f.m.Handle(ctx, ev)
			if err != nil {
				require.True(t, isRuntimeError(err), "seed %d step %d: %v", seed, i, err)
				require.Equal(t, before, takeSnapshot(f.m), "seed %d step %d: %s mutated state", seed, i, ev)
			}
			checkAggregates(t, f.m.Session())
		}
	}
}

func checkAggregates(t *testing.T, s *Session) {
	t.Helper()
	var w float64
	var v nutrition.Values
	for _, d := range s.Meal.Dishes() {
		w += d.Weight()
		v = v.Add(d.Values())
	}
	open := s.Meal.OpenDish()
	w += open.Weight()
	v = v.Add(open.Values())

	assert.InDelta(t, w, s.Meal.Weight(), 1e-6)
	assert.InDelta(t, v.Kcal, s.Meal.Values().Kcal, 1e-6)
	assert.InDelta(t, v.Carb, s.Meal.Values().Carb, 1e-6)

	var dw, dk float64
	for _, rec := range s.Daily.Meals() {
		dw += rec.Weight
		dk += rec.Values.Kcal
	}
	assert.InDelta(t, dw, s.Daily.Weight(), 1e-6)
	assert.InDelta(t, dk, s.Daily.Values().Kcal, 1e-6)
}

func stringsOf(m SavedMeal) []string {
	out := make([]string, len(m.Lines))
	for i, l := range m.Lines {
		out[i] = l.String()
	}
	return out
}

func TestMachine_TypeBIgnoresCookedMode(t *testing.T) {
	f := newFixture(t)
	f.do(t, up(200), groupB(6), cooked, up(90))

	p, ok := f.m.Session().Pending()
	require.True(t, ok)
	assert.Equal(t, 6, p.GroupID)
	assert.Equal(t, nutrition.Raw, p.State)
}
