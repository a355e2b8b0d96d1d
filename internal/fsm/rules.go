package fsm

// Rule is one row of the transition table.
type Rule struct {
	From  State
	Event EventKind
	To    State
}

// RuleTable is an ordered transition table. Lookup returns the first rule
// matching (state, event).
type RuleTable []Rule

// Next returns the target state of the first matching rule.
func (t RuleTable) Next(from State, ev EventKind) (State, bool) {
	for _, r := range t {
		if r.From == from && r.Event == ev {
			return r.To, true
		}
	}
	return from, false
}

// groupRules are shared by every state in which a group is selected and
// the dish can be committed, deleted or saved.
func groupRules(from State) []Rule {
	return []Rule{
		{from, ContainerRemoved, Idle},
		{from, WeightDecreased, from},
		{from, TareDone, from},
		{from, SelectGroupA, GroupASelected},
		{from, SelectGroupB, GroupBSelected},
		{from, CommitDish, DishCommitted},
		{from, DeleteDish, DishDeleted},
		{from, CommitMeal, MealSaved},
	}
}

// settledRules are the states reached after a dish or meal action. The
// operator lifts the dish off; scale noise in between is absorbed.
func settledRules(from State) []Rule {
	return []Rule{
		{from, TareDone, from},
		{from, WeightIncreased, from},
		{from, WeightDecreased, from},
		{from, ContainerRemoved, Idle},
	}
}

// DefaultRules returns the scale's transition table.
func DefaultRules() RuleTable {
	var t RuleTable
	add := func(rules ...Rule) { t = append(t, rules...) }

	add(
		Rule{Idle, TareDone, Idle},
		Rule{Idle, WeightDecreased, Idle},
		Rule{Idle, WeightIncreased, ContainerPlaced},
		Rule{Idle, CommitMeal, MealSaved},
	)
	add(
		Rule{ContainerPlaced, WeightIncreased, ContainerPlaced},
		Rule{ContainerPlaced, WeightDecreased, ContainerPlaced},
		Rule{ContainerPlaced, TareDone, ContainerPlaced},
		Rule{ContainerPlaced, ContainerRemoved, Idle},
		Rule{ContainerPlaced, SelectGroupA, GroupASelected},
		Rule{ContainerPlaced, SelectGroupB, GroupBSelected},
	)

	// Type-A groups need a processing mode before anything is weighed.
	add(groupRules(GroupASelected)...)
	add(
		Rule{GroupASelected, MarkRaw, Raw},
		Rule{GroupASelected, MarkCooked, Cooked},
	)

	// Type-B groups ignore the mode and accept food straight away.
	add(groupRules(GroupBSelected)...)
	add(
		Rule{GroupBSelected, WeightIncreased, Weighed},
		Rule{GroupBSelected, MarkRaw, Raw},
		Rule{GroupBSelected, MarkCooked, Cooked},
	)

	for _, mode := range []State{Raw, Cooked} {
		add(groupRules(mode)...)
		add(
			Rule{mode, MarkRaw, Raw},
			Rule{mode, MarkCooked, Cooked},
			Rule{mode, WeightIncreased, Weighed},
		)
	}

	add(groupRules(Weighed)...)
	add(Rule{Weighed, WeightIncreased, Weighed})

	add(settledRules(DishCommitted)...)
	add(settledRules(DishDeleted)...)
	add(settledRules(MealSaved)...)
	return t
}
