package serializer

import (
	"fmt"
	"log/slog"

	"github.com/roach88/smartscale/internal/mealog"
)

// Builder turns log lines into capacity-bounded documents.
type Builder struct {
	mac      string
	capacity int
	maxMeals int
	logger   *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithCapacity sets the per-document memory budget.
func WithCapacity(n int) Option {
	return func(b *Builder) { b.capacity = n }
}

// WithMaxMeals limits how many meals go into one document. Zero means no
// limit; one produces a document per meal.
func WithMaxMeals(n int) Option {
	return func(b *Builder) { b.maxMeals = n }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a builder for documents sent under mac.
func NewBuilder(mac string, opts ...Option) *Builder {
	b := &Builder{mac: mac, capacity: DefaultCapacity, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result is one built document.
type Result struct {
	Document *Document
	// Meals is the number of complete meals in Document.
	Meals int
	// Next is the index of the first line not in Document.
	Next int
	// Ends holds, per meal, the index just past its FIN-COMIDA.
	Ends []int
}

// Build writes lines[from:] into a new document.
//
// After each FIN-COMIDA the document is checkpointed. When an append is
// dropped for lack of space the document is restored to the last
// checkpoint and a *CapacityError wrapping ErrNoCapacity is returned with
// the Result; Result.Next then points at the first line of the meal that
// did not fit. Lines after the last FIN-COMIDA are left uncommitted;
// FIN-TRANSMISION and a FIN-COMIDA with no meal open are skipped.
//
// ErrMealTooLarge is returned if not even the first meal fits.
func (b *Builder) Build(lines []mealog.Line, from int) (Result, error) {
	doc, err := NewDocument(b.capacity, b.mac)
	if err != nil {
		return Result{}, err
	}
	checkpoint, err := doc.snapshot()
	if err != nil {
		return Result{}, fmt.Errorf("checkpoint: %w", err)
	}
	res := Result{Document: doc, Next: from}
	committed := doc.Footprint()

	for i := from; i < len(lines); i++ {
		l := lines[i]
		if l.Kind == mealog.KindEndTransmission || (l.Kind == mealog.KindEndMeal && !doc.mealOpen()) {
			if res.Next == i {
				res.Next = i + 1
			}
			continue
		}

		before := doc.Footprint()
		appendLine(doc, l)
		if doc.Footprint() == before {
			if err := doc.restore(checkpoint); err != nil {
				return Result{}, err
			}
			if res.Meals == 0 {
				return res, fmt.Errorf("line %d: %w", i+1, ErrMealTooLarge)
			}
			b.logger.Debug("document full, rolled back",
				"meals", res.Meals, "cursor", res.Next, "footprint", doc.Footprint())
			return res, &CapacityError{
				Cursor:    res.Next,
				Meals:     res.Meals,
				Footprint: doc.Footprint(),
				err:       ErrNoCapacity,
			}
		}

		if l.Kind != mealog.KindEndMeal || doc.Footprint() == committed {
			continue
		}
		checkpoint, err = doc.snapshot()
		if err != nil {
			return Result{}, fmt.Errorf("checkpoint: %w", err)
		}
		committed = doc.Footprint()
		res.Meals++
		res.Next = i + 1
		res.Ends = append(res.Ends, i+1)
		if b.maxMeals > 0 && res.Meals >= b.maxMeals {
			break
		}
	}

	// Drop a trailing meal that never reached FIN-COMIDA.
	if doc.Len() != res.Meals {
		if err := doc.restore(checkpoint); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

func appendLine(doc *Document, l mealog.Line) {
	switch l.Kind {
	case mealog.KindStartMeal:
		doc.StartMeal()
	case mealog.KindStartDish:
		doc.StartDish()
	case mealog.KindIngredient:
		doc.AddIngredient(l.GroupID, l.Weight, l.Barcode)
	case mealog.KindEndMeal:
		doc.EndMeal(l.At.Unix())
	}
}

// Split builds as many documents as needed to hold every complete meal in
// lines. It returns the documents and the incomplete tail, if any.
func (b *Builder) Split(lines []mealog.Line) ([]Result, []mealog.Line, error) {
	var out []Result
	from := 0
	for from < len(lines) {
		res, err := b.Build(lines, from)
		if err != nil && !IsNoCapacity(err) {
			return out, lines[from:], err
		}
		if res.Meals == 0 {
			break
		}
		out = append(out, res)
		from = res.Next
	}
	_, tail := mealog.SplitMeals(lines[from:])
	return out, tail, nil
}
