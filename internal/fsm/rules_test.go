package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleTable_FirstMatchWins(t *testing.T) {
	rules := RuleTable{
		{Idle, TareDone, ContainerPlaced},
		{Idle, TareDone, MealSaved},
	}
	next, ok := rules.Next(Idle, TareDone)
	assert.True(t, ok)
	assert.Equal(t, ContainerPlaced, next)

	next, ok = rules.Next(Idle, CommitMeal)
	assert.False(t, ok)
	assert.Equal(t, Idle, next)
}

func TestDefaultRules_NoDuplicateKeys(t *testing.T) {
	seen := map[[2]int]bool{}
	for _, r := range DefaultRules() {
		key := [2]int{int(r.From), int(r.Event)}
		assert.False(t, seen[key], "duplicate rule %s/%s", r.From, r.Event)
		seen[key] = true
	}
}

func TestDefaultRules_Transitions(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		from State
		ev   EventKind
		to   State
		ok   bool
	}{
		{Idle, WeightIncreased, ContainerPlaced, true},
		{Idle, CommitMeal, MealSaved, true},
		{Idle, SelectGroupA, Idle, false},
		{ContainerPlaced, SelectGroupB, GroupBSelected, true},
		{ContainerPlaced, CommitDish, ContainerPlaced, false},
		{GroupASelected, WeightIncreased, GroupASelected, false},
		{GroupASelected, MarkCooked, Cooked, true},
		{GroupBSelected, WeightIncreased, Weighed, true},
		{Raw, MarkCooked, Cooked, true},
		{Cooked, WeightIncreased, Weighed, true},
		{Weighed, SelectGroupA, GroupASelected, true},
		{Weighed, MarkRaw, Weighed, false},
		{Weighed, CommitMeal, MealSaved, true},
		{DishCommitted, ContainerRemoved, Idle, true},
		{DishDeleted, CommitDish, DishDeleted, false},
		{MealSaved, WeightIncreased, MealSaved, true},
	}
	for _, tt := range tests {
		next, ok := rules.Next(tt.from, tt.ev)
		assert.Equal(t, tt.ok, ok, "%s/%s", tt.from, tt.ev)
		assert.Equal(t, tt.to, next, "%s/%s", tt.from, tt.ev)
	}
}

func TestStateAndEventNames_RoundTrip(t *testing.T) {
	for s := Idle; s <= MealSaved; s++ {
		got, err := ParseState(s.String())
		assert.NoError(t, err)
		assert.Equal(t, s, got)
	}
	for k := TareDone; k <= CommitMeal; k++ {
		got, err := ParseEventKind(k.String())
		assert.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseState("Nope")
	assert.Error(t, err)
}
