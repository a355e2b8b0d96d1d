package nutrition

import "math"

// GramsPerServing is the weight of one serving of carbohydrate, fat or protein.
const GramsPerServing = 10.0

// Values holds the macronutrient content of some amount of food, in grams
// (carb, fat, protein) and kilocalories.
type Values struct {
	Carb    float64 `json:"carb"`
	Fat     float64 `json:"fat"`
	Protein float64 `json:"protein"`
	Kcal    float64 `json:"kcal"`
}

// Add returns the elementwise sum of v and o.
func (v Values) Add(o Values) Values {
	return Values{
		Carb:    v.Carb + o.Carb,
		Fat:     v.Fat + o.Fat,
		Protein: v.Protein + o.Protein,
		Kcal:    v.Kcal + o.Kcal,
	}
}

// Sub returns the elementwise difference v - o.
func (v Values) Sub(o Values) Values {
	return Values{
		Carb:    v.Carb - o.Carb,
		Fat:     v.Fat - o.Fat,
		Protein: v.Protein - o.Protein,
		Kcal:    v.Kcal - o.Kcal,
	}
}

// Scale multiplies every field by grams. Used to turn per-gram values into
// the content of a weighed ingredient.
func (v Values) Scale(grams float64) Values {
	return Values{
		Carb:    v.Carb * grams,
		Fat:     v.Fat * grams,
		Protein: v.Protein * grams,
		Kcal:    v.Kcal * grams,
	}
}

// IsZero reports whether all fields are zero.
func (v Values) IsZero() bool {
	return v == Values{}
}

// Servings expresses carb, fat and protein as servings rounded to the
// nearest half serving.
type Servings struct {
	Carb    float64 `json:"carb"`
	Fat     float64 `json:"fat"`
	Protein float64 `json:"protein"`
}

// Servings converts v into half-serving units.
func (v Values) Servings() Servings {
	return Servings{
		Carb:    RoundServings(v.Carb),
		Fat:     RoundServings(v.Fat),
		Protein: RoundServings(v.Protein),
	}
}

// RoundServings returns grams / GramsPerServing rounded to the nearest 0.5.
func RoundServings(grams float64) float64 {
	return math.Round(2*(grams/GramsPerServing)) / 2
}
