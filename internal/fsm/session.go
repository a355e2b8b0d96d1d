package fsm

import (
	"math"

	"github.com/google/uuid"

	"github.com/roach88/smartscale/internal/mealog"
	"github.com/roach88/smartscale/internal/nutrition"
)

// Session is the mutable context the machine works on: everything that
// would otherwise be global "current dish/meal/day" state.
type Session struct {
	ID    string
	Meal  nutrition.Meal
	Daily nutrition.DailyLog
	List  mealog.List

	group      nutrition.FoodGroup
	hasGroup   bool
	mode       nutrition.ProcessingState
	pending    nutrition.Ingredient
	hasPending bool
	container  float64
	toRemove   float64
}

// NewSession returns an empty session. An empty id gets a random one.
func NewSession(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{ID: id}
}

// Pending returns the ingredient on the scale that has not been folded
// into the dish yet.
func (s *Session) Pending() (nutrition.Ingredient, bool) {
	return s.pending, s.hasPending
}

// SelectedGroup returns the raw group the operator picked last.
func (s *Session) SelectedGroup() (nutrition.FoodGroup, bool) {
	return s.group, s.hasGroup
}

// Mode is the processing state applied to the next weighed ingredient.
func (s *Session) Mode() nutrition.ProcessingState { return s.mode }

// ContainerWeight is the weight of the empty container.
func (s *Session) ContainerWeight() float64 { return s.container }

// WeightToRemove is what must leave the scale after a dish was deleted:
// the container plus everything weighed into the dish.
func (s *Session) WeightToRemove() float64 { return s.toRemove }

func (s *Session) dishHasFood() bool {
	return !s.Meal.OpenDish().IsEmpty() || s.hasPending
}

func (s *Session) mealHasFood() bool {
	return !s.Meal.IsEmpty() || s.hasPending
}

// foldPending moves the pending ingredient into the open dish, the meal
// and the line list.
func (s *Session) foldPending() {
	if !s.hasPending {
		return
	}
	s.Meal.AddIngredient(s.pending)
	s.List.AddIngredient(s.pending.GroupID, s.pending.Weight, s.pending.Barcode)
	s.clearPending()
}

func (s *Session) clearPending() {
	s.pending = nutrition.Ingredient{}
	s.hasPending = false
}

func (s *Session) clearGroup() {
	s.group = nutrition.FoodGroup{}
	s.hasGroup = false
	s.mode = nutrition.Raw
}

// roundWeight rounds to the load cell's 0.1 g resolution.
func roundWeight(w float64) float64 {
	return math.Round(w*10) / 10
}
