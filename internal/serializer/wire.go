package serializer

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/roach88/smartscale/internal/mealog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Wire is the upload document as the server receives it.
type Wire struct {
	Meals []WireMeal `json:"comidas"`
	MAC   string     `json:"mac"`
}

// WireMeal is one meal. Date is the FIN-COMIDA stamp in unix seconds.
type WireMeal struct {
	Dishes []WireDish `json:"platos"`
	Date   int64      `json:"fecha"`
}

// WireDish is one dish.
type WireDish struct {
	Ingredients []WireIngredient `json:"alimentos"`
}

// WireIngredient is one weighed item. EAN is set for scanned products.
type WireIngredient struct {
	Group  int     `json:"grupo"`
	Weight float64 `json:"peso"`
	EAN    string  `json:"ean,omitempty"`
}

// At returns the meal stamp in UTC.
func (m WireMeal) At() time.Time { return time.Unix(m.Date, 0).UTC() }

// Decode parses an upload document.
func Decode(data []byte) (Wire, error) {
	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return Wire{}, fmt.Errorf("decode document: %w", err)
	}
	return w, nil
}

// Lines converts decoded meals back into log lines, one INICIO-COMIDA ...
// FIN-COMIDA block per meal.
func (w Wire) Lines() []mealog.Line {
	var out []mealog.Line
	for _, m := range w.Meals {
		out = append(out, mealog.StartMeal())
		for _, d := range m.Dishes {
			out = append(out, mealog.StartDish())
			for _, ing := range d.Ingredients {
				out = append(out, mealog.Ingredient(ing.Group, ing.Weight, ing.EAN))
			}
		}
		out = append(out, mealog.EndMeal(m.At()))
	}
	return out
}
