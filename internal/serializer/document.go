package serializer

import "fmt"

// DefaultCapacity is the memory budget of one document in bytes.
const DefaultCapacity = 4096

// Memory accounting. Every array element and object member takes one
// slot; strings are copied into the pool with a terminator.
const (
	slotSize       = 16
	rootCost       = slotSize     // "comidas"
	mealCost       = 2 * slotSize // meal object, "platos"
	dishCost       = 2 * slotSize // dish object, "alimentos"
	ingredientCost = 3 * slotSize // ingredient object, "grupo", "peso"
	dateCost       = slotSize     // "fecha"
)

func stringCost(s string) int { return slotSize + len(s) + 1 }

type openState int

const (
	openNone openState = iota
	openOK
	openFailed
)

// Document is an upload document under construction with a fixed memory
// budget.
//
// Appends that do not fit are dropped without error; a dropped meal or
// dish header also drops everything nested under it until the next header.
// Callers detect exhaustion by comparing Footprint before and after an
// append.
type Document struct {
	capacity int
	used     int
	mac      string
	meals    []WireMeal
	meal     openState
	dish     openState
}

// NewDocument creates an empty document identified by mac. The root and
// the trailing identity field are allocated up front.
func NewDocument(capacity int, mac string) (*Document, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	d := &Document{capacity: capacity, mac: mac}
	d.used = d.baseCost()
	if d.used > capacity {
		return nil, fmt.Errorf("capacity %d below fixed cost %d", capacity, d.used)
	}
	return d, nil
}

func (d *Document) baseCost() int { return rootCost + stringCost(d.mac) }

// Capacity returns the memory budget in bytes.
func (d *Document) Capacity() int { return d.capacity }

// Footprint returns the bytes allocated so far.
func (d *Document) Footprint() int { return d.used }

// MAC returns the identity the document is sent under.
func (d *Document) MAC() string { return d.mac }

// Len returns the number of meals, including one still being written.
func (d *Document) Len() int { return len(d.meals) }

func (d *Document) alloc(n int) bool {
	if d.used+n > d.capacity {
		return false
	}
	d.used += n
	return true
}

// StartMeal opens a new meal.
func (d *Document) StartMeal() {
	d.dish = openNone
	if !d.alloc(mealCost) {
		d.meal = openFailed
		return
	}
	d.meals = append(d.meals, WireMeal{Dishes: []WireDish{}})
	d.meal = openOK
}

// StartDish opens a new dish in the open meal, opening a meal first if
// none was started.
func (d *Document) StartDish() {
	if d.meal == openNone {
		d.StartMeal()
	}
	if d.meal == openFailed {
		d.dish = openFailed
		return
	}
	if !d.alloc(dishCost) {
		d.dish = openFailed
		return
	}
	m := &d.meals[len(d.meals)-1]
	m.Dishes = append(m.Dishes, WireDish{Ingredients: []WireIngredient{}})
	d.dish = openOK
}

// AddIngredient appends an ingredient to the open dish, opening a dish
// first if none was started.
func (d *Document) AddIngredient(group int, weight float64, ean string) {
	if d.dish == openNone {
		d.StartDish()
	}
	if d.dish == openFailed {
		return
	}
	cost := ingredientCost
	if ean != "" {
		cost += stringCost(ean)
	}
	if !d.alloc(cost) {
		return
	}
	m := &d.meals[len(d.meals)-1]
	dish := &m.Dishes[len(m.Dishes)-1]
	dish.Ingredients = append(dish.Ingredients, WireIngredient{Group: group, Weight: weight, EAN: ean})
}

// EndMeal stamps the open meal with its unix date and closes it.
func (d *Document) EndMeal(unix int64) {
	state := d.meal
	d.meal, d.dish = openNone, openNone
	if state != openOK || !d.alloc(dateCost) {
		return
	}
	d.meals[len(d.meals)-1].Date = unix
}

func (d *Document) mealOpen() bool { return d.meal == openOK }

// Wire returns a copy of the document content.
func (d *Document) Wire() Wire {
	w := Wire{Meals: make([]WireMeal, len(d.meals)), MAC: d.mac}
	for i, m := range d.meals {
		w.Meals[i] = WireMeal{Date: m.Date, Dishes: make([]WireDish, len(m.Dishes))}
		for j, dish := range m.Dishes {
			w.Meals[i].Dishes[j] = WireDish{
				Ingredients: append([]WireIngredient{}, dish.Ingredients...),
			}
		}
	}
	return w
}

// MarshalJSON encodes the document in its upload form.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Wire())
}

// Encode returns the upload body.
func (d *Document) Encode() ([]byte, error) {
	b, err := json.Marshal(d.Wire())
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

// snapshot serializes the document content. Only closed meals belong in a
// snapshot; callers take one right after a meal boundary.
func (d *Document) snapshot() ([]byte, error) {
	return json.Marshal(d.Wire())
}

// restore replaces the content with a snapshot and recomputes the
// footprint from it.
func (d *Document) restore(snap []byte) error {
	var w Wire
	if err := json.Unmarshal(snap, &w); err != nil {
		return fmt.Errorf("restore checkpoint: %w", err)
	}
	d.meals = w.Meals
	d.meal, d.dish = openNone, openNone
	d.used = d.baseCost() + contentCost(w.Meals)
	return nil
}

func contentCost(meals []WireMeal) int {
	n := 0
	for _, m := range meals {
		n += mealCost + dateCost
		for _, dish := range m.Dishes {
			n += dishCost
			for _, ing := range dish.Ingredients {
				n += ingredientCost
				if ing.EAN != "" {
					n += stringCost(ing.EAN)
				}
			}
		}
	}
	return n
}
