package fsm

import "fmt"

// State is a control state of the scale.
type State int

const (
	Idle State = iota
	ContainerPlaced
	GroupASelected
	GroupBSelected
	Raw
	Cooked
	Weighed
	DishCommitted
	DishDeleted
	MealSaved
)

var stateNames = [...]string{
	Idle:            "Idle",
	ContainerPlaced: "ContainerPlaced",
	GroupASelected:  "GroupASelected",
	GroupBSelected:  "GroupBSelected",
	Raw:             "Raw",
	Cooked:          "Cooked",
	Weighed:         "Weighed",
	DishCommitted:   "DishCommitted",
	DishDeleted:     "DishDeleted",
	MealSaved:       "MealSaved",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", name)
}

// EventKind is the kind of a hardware-derived event.
type EventKind int

const (
	TareDone EventKind = iota + 1
	WeightIncreased
	WeightDecreased
	ContainerRemoved
	SelectGroupA
	SelectGroupB
	MarkRaw
	MarkCooked
	CommitDish
	DeleteDish
	CommitMeal
)

var eventNames = map[EventKind]string{
	TareDone:         "TareDone",
	WeightIncreased:  "WeightIncreased",
	WeightDecreased:  "WeightDecreased",
	ContainerRemoved: "ContainerRemoved",
	SelectGroupA:     "SelectGroupA",
	SelectGroupB:     "SelectGroupB",
	MarkRaw:          "MarkRaw",
	MarkCooked:       "MarkCooked",
	CommitDish:       "CommitDish",
	DeleteDish:       "DeleteDish",
	CommitMeal:       "CommitMeal",
}

func (k EventKind) String() string {
	if n, ok := eventNames[k]; ok {
		return n
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// ParseEventKind is the inverse of EventKind.String.
func ParseEventKind(name string) (EventKind, error) {
	for k, n := range eventNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event %q", name)
}

// Event is one logical hardware event.
//
// GroupID is set for SelectGroupA/SelectGroupB. Weight is the net scale
// reading in grams when the event was produced.
type Event struct {
	Kind    EventKind
	GroupID int
	Weight  float64
}

func (e Event) String() string {
	switch e.Kind {
	case SelectGroupA, SelectGroupB:
		return fmt.Sprintf("%s(%d)", e.Kind, e.GroupID)
	case WeightIncreased, WeightDecreased:
		return fmt.Sprintf("%s(%g)", e.Kind, e.Weight)
	}
	return e.Kind.String()
}
