package harness

import "math"

// Step outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeRefused  = "refused"
)

// TraceEvent records one step of a scenario run.
type TraceEvent struct {
	Seq     int      `json:"seq"`
	Event   string   `json:"event"`
	From    string   `json:"from"`
	To      string   `json:"to"`
	Outcome string   `json:"outcome"`
	Notices []string `json:"notices,omitempty"`
}

// FinalState is the session at the end of a run.
type FinalState struct {
	State        string  `json:"state"`
	MealWeight   float64 `json:"meal_weight"`
	MealDishes   int     `json:"meal_dishes"`
	DailyMeals   int     `json:"daily_meals"`
	DailyWeight  float64 `json:"daily_weight"`
	DailyKcal    float64 `json:"daily_kcal"`
	PendingLines int     `json:"pending_lines"`
	CSVRows      int     `json:"csv_rows"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is false when any step expectation or assertion failed.
	Pass bool `json:"pass"`

	Session string       `json:"session"`
	Trace   []TraceEvent `json:"trace"`

	// Saved holds the log lines of every saved meal, in order.
	Saved [][]string `json:"saved,omitempty"`

	Final FinalState `json:"final"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []TraceEvent{}}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Notices returns every notice in trace order.
func (r *Result) Notices() []string {
	var out []string
	for _, ev := range r.Trace {
		out = append(out, ev.Notices...)
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
