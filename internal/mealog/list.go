package mealog

import "time"

// List accumulates the lines of the meal being weighed.
//
// The list mirrors the Meal in the data model: every ingredient folded
// into the open dish appends a line, and discarding the open dish drops
// the lines written since its INICIO-PLATO.
type List struct {
	lines []Line
}

// StartMeal writes INICIO-COMIDA if the list is empty.
func (l *List) StartMeal() {
	if len(l.lines) == 0 {
		l.lines = append(l.lines, StartMeal())
	}
}

// StartDish writes INICIO-PLATO unless the last line already is one.
// A meal header is written first if missing.
func (l *List) StartDish() {
	l.StartMeal()
	if last, ok := l.last(); ok && last.Kind == KindStartDish {
		return
	}
	l.lines = append(l.lines, StartDish())
}

// AddIngredient writes an ALIMENTO line, opening a dish if none is open.
func (l *List) AddIngredient(groupID int, weight float64, barcode string) {
	if !l.dishOpen() {
		l.StartDish()
	}
	l.lines = append(l.lines, Ingredient(groupID, weight, barcode))
}

// DropLastDish removes the last INICIO-PLATO and everything after it.
// It reports whether anything was removed.
func (l *List) DropLastDish() bool {
	for i := len(l.lines) - 1; i >= 0; i-- {
		if l.lines[i].Kind == KindStartDish {
			l.lines = l.lines[:i]
			return true
		}
	}
	return false
}

// TrimEmptyDish drops a trailing INICIO-PLATO that has no ingredients yet.
func (l *List) TrimEmptyDish() {
	if last, ok := l.last(); ok && last.Kind == KindStartDish {
		l.lines = l.lines[:len(l.lines)-1]
	}
}

// FinishMeal closes the meal with a FIN-COMIDA stamped at. Trailing empty
// dish headers are dropped first.
func (l *List) FinishMeal(at time.Time) {
	for {
		last, ok := l.last()
		if !ok || last.Kind != KindStartDish {
			break
		}
		l.lines = l.lines[:len(l.lines)-1]
	}
	l.StartMeal()
	l.lines = append(l.lines, EndMeal(at))
}

// Lines returns a copy of the lines.
func (l *List) Lines() []Line {
	return append([]Line(nil), l.lines...)
}

// Strings returns the lines in wire form.
func (l *List) Strings() []string { return Strings(l.lines) }

func (l *List) Len() int      { return len(l.lines) }
func (l *List) IsEmpty() bool { return len(l.lines) == 0 }

// Reset clears the list for the next meal.
func (l *List) Reset() { l.lines = l.lines[:0] }

func (l *List) last() (Line, bool) {
	if len(l.lines) == 0 {
		return Line{}, false
	}
	return l.lines[len(l.lines)-1], true
}

// dishOpen reports whether an INICIO-PLATO appears after the last meal
// boundary.
func (l *List) dishOpen() bool {
	for i := len(l.lines) - 1; i >= 0; i-- {
		switch l.lines[i].Kind {
		case KindStartDish:
			return true
		case KindEndMeal, KindStartMeal:
			return false
		}
	}
	return false
}

// MealLines is one complete meal cut from a line sequence.
type MealLines struct {
	// Start and End delimit the meal in the source sequence; End is the
	// index just past its FIN-COMIDA.
	Start int
	End   int
	Lines []Line
}

// At is the meal's FIN-COMIDA stamp.
func (m MealLines) At() time.Time { return m.Lines[len(m.Lines)-1].At }

// SplitMeals cuts lines into complete meals, each ending with FIN-COMIDA.
// A meal starts at INICIO-COMIDA or, if that header is missing, right after
// the previous meal. FIN-TRANSMISION lines are skipped. Lines after the
// last FIN-COMIDA are returned as the incomplete tail.
func SplitMeals(lines []Line) (meals []MealLines, tail []Line) {
	start := -1
	for i, l := range lines {
		switch l.Kind {
		case KindEndTransmission:
			continue
		case KindStartMeal:
			if start < 0 {
				start = i
			}
		case KindEndMeal:
			if start < 0 {
				start = i
			}
			meal := make([]Line, 0, i-start+1)
			for _, ml := range lines[start : i+1] {
				if ml.Kind != KindEndTransmission {
					meal = append(meal, ml)
				}
			}
			meals = append(meals, MealLines{Start: start, End: i + 1, Lines: meal})
			start = -1
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		for _, l := range lines[start:] {
			if l.Kind != KindEndTransmission {
				tail = append(tail, l)
			}
		}
	}
	return meals, tail
}
