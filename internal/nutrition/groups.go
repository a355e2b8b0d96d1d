package nutrition

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed groups.cue
var groupsSource []byte

// BarcodeGroupID is the group id written for ingredients identified by a
// scanned product instead of a food group.
const BarcodeGroupID = 50

// ProcessingState is how an ingredient was prepared when it was weighed.
type ProcessingState int

const (
	// Raw is the default state.
	Raw ProcessingState = iota
	// Cooked selects the cooked nutrition profile for groups that have one.
	Cooked
)

func (s ProcessingState) String() string {
	if s == Cooked {
		return "cooked"
	}
	return "raw"
}

// GroupType classifies a food group by whether cooking changes its values.
type GroupType string

const (
	// TypeA groups have distinct raw and cooked profiles.
	TypeA GroupType = "A"
	// TypeB groups ignore the processing state.
	TypeB GroupType = "B"
)

// FoodGroup is one resolved row of the reference table.
//
// ID is the wire id: the raw id, or the legacy cooked id for a cooked
// type-A group. BaseID is always the raw id.
type FoodGroup struct {
	ID       int
	BaseID   int
	Name     string
	Examples string
	Type     GroupType
	State    ProcessingState
	PerGram  Values
}

// ErrUnknownGroup is returned when a group id is not in the table.
var ErrUnknownGroup = errors.New("unknown food group")

type perGram struct {
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fat"`
	Carb    float64 `json:"carb"`
}

func (p perGram) values() Values {
	return Values{Carb: p.Carb, Fat: p.Fat, Protein: p.Protein, Kcal: p.Kcal}
}

type groupEntry struct {
	ID       int          `json:"id"`
	Name     string       `json:"name"`
	Examples string       `json:"examples"`
	Type     GroupType    `json:"type"`
	Raw      perGram      `json:"raw"`
	Cooked   *cookedEntry `json:"cooked,omitempty"`
}

type cookedEntry struct {
	ID      int     `json:"id"`
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fat"`
	Carb    float64 `json:"carb"`
}

type groupKey struct {
	base  int
	state ProcessingState
}

// Table is the immutable food-group lookup.
type Table struct {
	byKey map[groupKey]FoodGroup
	byID  map[int]FoodGroup
	base  []int
}

// ParseTable compiles CUE source describing the food groups.
//
// The source must define a concrete "groups" list that satisfies the
// #Group schema declared alongside it.
func ParseTable(src []byte) (*Table, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile food groups: %w", err)
	}
	groupsVal := v.LookupPath(cue.ParsePath("groups"))
	if !groupsVal.Exists() {
		return nil, errors.New("compile food groups: missing groups list")
	}
	if err := groupsVal.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate food groups: %w", err)
	}
	var entries []groupEntry
	if err := groupsVal.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode food groups: %w", err)
	}

	t := &Table{
		byKey: make(map[groupKey]FoodGroup, len(entries)*2),
		byID:  make(map[int]FoodGroup, len(entries)*2),
	}
	for _, e := range entries {
		if _, dup := t.byID[e.ID]; dup {
			return nil, fmt.Errorf("food group %d: duplicate id", e.ID)
		}
		raw := FoodGroup{
			ID:       e.ID,
			BaseID:   e.ID,
			Name:     e.Name,
			Examples: e.Examples,
			Type:     e.Type,
			State:    Raw,
			PerGram:  e.Raw.values(),
		}
		t.byID[raw.ID] = raw
		t.byKey[groupKey{e.ID, Raw}] = raw
		t.base = append(t.base, e.ID)

		cooked := raw
		cooked.State = Cooked
		if e.Cooked != nil {
			if _, dup := t.byID[e.Cooked.ID]; dup {
				return nil, fmt.Errorf("food group %d: cooked id %d collides", e.ID, e.Cooked.ID)
			}
			cooked.ID = e.Cooked.ID
			cooked.PerGram = Values{Carb: e.Cooked.Carb, Fat: e.Cooked.Fat, Protein: e.Cooked.Protein, Kcal: e.Cooked.Kcal}
			t.byID[cooked.ID] = cooked
		}
		t.byKey[groupKey{e.ID, Cooked}] = cooked
	}
	sort.Ints(t.base)
	return t, nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// DefaultTable returns the table compiled from the embedded groups.cue.
// It panics if the embedded source is invalid, which is a build defect.
func DefaultTable() *Table {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = ParseTable(groupsSource)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("nutrition: embedded food groups: %v", defaultErr))
	}
	return defaultTable
}

// Lookup resolves a raw group id and a processing state. Type-B groups
// return their raw profile for either state.
func (t *Table) Lookup(baseID int, state ProcessingState) (FoodGroup, error) {
	g, ok := t.byKey[groupKey{baseID, state}]
	if !ok {
		return FoodGroup{}, fmt.Errorf("group %d (%s): %w", baseID, state, ErrUnknownGroup)
	}
	return g, nil
}

// ByID resolves a wire id, which may be a legacy cooked id.
func (t *Table) ByID(id int) (FoodGroup, error) {
	g, ok := t.byID[id]
	if !ok {
		return FoodGroup{}, fmt.Errorf("group %d: %w", id, ErrUnknownGroup)
	}
	return g, nil
}

// Groups returns the raw rows in id order.
func (t *Table) Groups() []FoodGroup {
	out := make([]FoodGroup, 0, len(t.base))
	for _, id := range t.base {
		out = append(out, t.byID[id])
	}
	return out
}
