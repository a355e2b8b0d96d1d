package nutrition

import (
	"errors"
	"time"
)

var (
	// ErrEmptyDish is returned when committing a dish with no ingredients.
	ErrEmptyDish = errors.New("dish is empty")
	// ErrEmptyMeal is returned when committing a meal with no dishes.
	ErrEmptyMeal = errors.New("meal is empty")
)

// Ingredient is one weighed food item. Values is derived once, at creation,
// from the per-gram profile and the weight.
type Ingredient struct {
	GroupID int             `json:"group_id"`
	State   ProcessingState `json:"state"`
	Weight  float64         `json:"weight"`
	Barcode string          `json:"barcode,omitempty"`
	Values  Values          `json:"values"`
}

// NewIngredient weighs weight grams of a resolved food group.
func NewIngredient(g FoodGroup, weight float64) Ingredient {
	return Ingredient{
		GroupID: g.ID,
		State:   g.State,
		Weight:  weight,
		Values:  g.PerGram.Scale(weight),
	}
}

// NewProductIngredient weighs weight grams of a scanned product. Products
// aggregate exactly like group ingredients, using the product's own
// per-gram profile.
func NewProductIngredient(p Product, weight float64) Ingredient {
	return Ingredient{
		GroupID: BarcodeGroupID,
		Weight:  weight,
		Barcode: p.Barcode,
		Values:  p.PerGram.Scale(weight),
	}
}

// Dish is the open, append-only list of ingredients on the scale.
type Dish struct {
	ingredients []Ingredient
	weight      float64
	values      Values
}

// Add appends ing and folds its weight and values into the aggregate.
func (d *Dish) Add(ing Ingredient) {
	d.ingredients = append(d.ingredients, ing)
	d.weight += ing.Weight
	d.values = d.values.Add(ing.Values)
}

// Ingredients returns a copy of the ingredient list.
func (d Dish) Ingredients() []Ingredient {
	return append([]Ingredient(nil), d.ingredients...)
}

func (d Dish) Len() int        { return len(d.ingredients) }
func (d Dish) IsEmpty() bool   { return len(d.ingredients) == 0 }
func (d Dish) Weight() float64 { return d.weight }
func (d Dish) Values() Values  { return d.values }

// Reset clears the dish for reuse. The backing array is kept.
func (d *Dish) Reset() {
	d.ingredients = d.ingredients[:0]
	d.weight = 0
	d.values = Values{}
}

func (d *Dish) clone() Dish {
	return Dish{
		ingredients: d.Ingredients(),
		weight:      d.weight,
		values:      d.values,
	}
}

// Meal is the open meal: committed dishes plus the dish currently being
// built. The meal aggregate includes the open dish, because ingredients are
// folded into both levels as they are weighed.
type Meal struct {
	dishes []Dish
	open   Dish
	weight float64
	values Values
}

// AddIngredient folds ing into the open dish and the meal aggregate.
func (m *Meal) AddIngredient(ing Ingredient) {
	m.open.Add(ing)
	m.weight += ing.Weight
	m.values = m.values.Add(ing.Values)
}

// CommitDish closes the open dish and starts a new empty one.
func (m *Meal) CommitDish() error {
	if m.open.IsEmpty() {
		return ErrEmptyDish
	}
	m.dishes = append(m.dishes, m.open.clone())
	m.open.Reset()
	return nil
}

// DiscardDish removes the open dish from the meal, subtracting exactly the
// weight and values that were added for it, and returns what was removed.
func (m *Meal) DiscardDish() Dish {
	removed := m.open.clone()
	m.weight -= m.open.weight
	m.values = m.values.Sub(m.open.values)
	m.open.Reset()
	return removed
}

// OpenDish returns a copy of the dish being built.
func (m *Meal) OpenDish() Dish { return m.open.clone() }

// Dishes returns copies of the committed dishes.
func (m *Meal) Dishes() []Dish {
	out := make([]Dish, len(m.dishes))
	for i := range m.dishes {
		out[i] = m.dishes[i].clone()
	}
	return out
}

// DishCount is the number of committed dishes.
func (m *Meal) DishCount() int  { return len(m.dishes) }
func (m *Meal) Weight() float64 { return m.weight }
func (m *Meal) Values() Values  { return m.values }

// IsEmpty reports whether the meal has nothing to save: no committed dishes
// and an empty open dish.
func (m *Meal) IsEmpty() bool {
	return len(m.dishes) == 0 && m.open.IsEmpty()
}

// Take commits a non-empty open dish, returns a detached copy of the meal
// and resets the receiver.
func (m *Meal) Take() (Meal, error) {
	if m.IsEmpty() {
		return Meal{}, ErrEmptyMeal
	}
	if !m.open.IsEmpty() {
		if err := m.CommitDish(); err != nil {
			return Meal{}, err
		}
	}
	out := Meal{dishes: m.Dishes(), weight: m.weight, values: m.values}
	m.Reset()
	return out, nil
}

// Reset clears the meal for reuse.
func (m *Meal) Reset() {
	m.dishes = m.dishes[:0]
	m.open.Reset()
	m.weight = 0
	m.values = Values{}
}

// MealRecord is a committed meal as stored in the daily log. Dishes is nil
// for records rebuilt from persisted totals.
type MealRecord struct {
	At     time.Time
	Weight float64
	Values Values
	Dishes []Dish
}

// DailyLog accumulates the meals saved on one calendar day.
type DailyLog struct {
	day    time.Time
	meals  []MealRecord
	weight float64
	values Values
}

// Add appends a committed meal. A meal dated on a different day than the
// log starts a new day first.
func (l *DailyLog) Add(m Meal, at time.Time) {
	l.append(MealRecord{At: at, Weight: m.weight, Values: m.values, Dishes: m.Dishes()})
}

// AddTotals appends a meal known only by its totals, as read back from
// persisted daily records.
func (l *DailyLog) AddTotals(at time.Time, weight float64, values Values) {
	l.append(MealRecord{At: at, Weight: weight, Values: values})
}

func (l *DailyLog) append(rec MealRecord) {
	l.Rollover(rec.At)
	l.meals = append(l.meals, rec)
	l.weight += rec.Weight
	l.values = l.values.Add(rec.Values)
}

// Rollover resets the log if now falls on a different day than the one the
// log holds. It reports whether a reset happened.
func (l *DailyLog) Rollover(now time.Time) bool {
	day := truncateDay(now)
	if l.day.Equal(day) {
		return false
	}
	had := !l.day.IsZero()
	l.Reset()
	l.day = day
	return had
}

// Meals returns a copy of the records.
func (l *DailyLog) Meals() []MealRecord {
	return append([]MealRecord(nil), l.meals...)
}

func (l *DailyLog) Len() int        { return len(l.meals) }
func (l *DailyLog) Day() time.Time  { return l.day }
func (l *DailyLog) Weight() float64 { return l.weight }
func (l *DailyLog) Values() Values  { return l.values }

// Reset empties the log and forgets its day.
func (l *DailyLog) Reset() {
	l.day = time.Time{}
	l.meals = l.meals[:0]
	l.weight = 0
	l.values = Values{}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
