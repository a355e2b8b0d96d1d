package mealog

import (
	"errors"
	"fmt"

	"github.com/roach88/smartscale/internal/nutrition"
)

// ProductLookup resolves a scanned barcode to its nutrition profile.
type ProductLookup interface {
	Product(barcode string) (nutrition.Product, bool)
}

// Products is a map-backed ProductLookup.
type Products map[string]nutrition.Product

func (p Products) Product(barcode string) (nutrition.Product, bool) {
	prod, ok := p[barcode]
	return prod, ok
}

// BuildMeal folds the ingredient lines of one meal into a nutrition.Meal.
// Each INICIO-PLATO commits the previous non-empty dish. Barcode lines whose
// product is unknown contribute their weight with zero nutrition.
func BuildMeal(ml MealLines, tbl *nutrition.Table, products ProductLookup) (nutrition.Meal, error) {
	var meal nutrition.Meal
	for _, l := range ml.Lines {
		switch l.Kind {
		case KindStartDish:
			if err := meal.CommitDish(); err != nil && !errors.Is(err, nutrition.ErrEmptyDish) {
				return nutrition.Meal{}, err
			}
		case KindIngredient:
			ing, err := ingredientFor(l, tbl, products)
			if err != nil {
				return nutrition.Meal{}, err
			}
			meal.AddIngredient(ing)
		}
	}
	return meal, nil
}

func ingredientFor(l Line, tbl *nutrition.Table, products ProductLookup) (nutrition.Ingredient, error) {
	if l.GroupID == nutrition.BarcodeGroupID || l.Barcode != "" {
		p := nutrition.Product{Barcode: l.Barcode}
		if products != nil {
			if found, ok := products.Product(l.Barcode); ok {
				p = found
			}
		}
		return nutrition.NewProductIngredient(p, l.Weight), nil
	}
	g, err := tbl.ByID(l.GroupID)
	if err != nil {
		return nutrition.Ingredient{}, fmt.Errorf("replay %s: %w", l, err)
	}
	return nutrition.NewIngredient(g, l.Weight), nil
}

// Replay folds every complete meal in lines into log and returns how many
// meals were added. Meals without ingredients are skipped.
func Replay(log *nutrition.DailyLog, tbl *nutrition.Table, lines []Line, products ProductLookup) (int, error) {
	meals, _ := SplitMeals(lines)
	n := 0
	for _, ml := range meals {
		meal, err := BuildMeal(ml, tbl, products)
		if err != nil {
			return n, err
		}
		taken, err := meal.Take()
		if errors.Is(err, nutrition.ErrEmptyMeal) {
			continue
		}
		if err != nil {
			return n, err
		}
		log.Add(taken, ml.At())
		n++
	}
	return n, nil
}
