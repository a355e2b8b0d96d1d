package harness

import (
	"fmt"
	"math"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s (%s)\n", ev.Seq, ev.Event, ev.From, ev.To, ev.Outcome)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertFinalState:
		return assertFinalState(r, a)
	case AssertNoticeCount:
		return assertNoticeCount(r, a)
	case AssertSavedLines:
		return assertSavedLines(r, a)
	case AssertDaily:
		return assertDaily(r, a)
	case AssertOutcomeCount:
		return assertOutcomeCount(r, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertFinalState(r *Result, a Assertion) error {
	if r.Final.State == a.State {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: a.State,
		Actual:   r.Final.State,
		Trace:    r.Trace,
	}
}

func assertNoticeCount(r *Result, a Assertion) error {
	n := 0
	for _, notice := range r.Notices() {
		if notice == a.Notice {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertNoticeCount,
		Expected: fmt.Sprintf("%d %s", a.Count, a.Notice),
		Actual:   fmt.Sprintf("%d (notices: %v)", n, r.Notices()),
		Trace:    r.Trace,
	}
}

// assertSavedLines compares the lines of saved meal number a.Meal
// (zero-based) exactly.
func assertSavedLines(r *Result, a Assertion) error {
	if a.Meal < 0 || a.Meal >= len(r.Saved) {
		return &AssertionError{
			Type:     AssertSavedLines,
			Expected: fmt.Sprintf("saved meal %d", a.Meal),
			Actual:   fmt.Sprintf("%d meals saved", len(r.Saved)),
		}
	}
	got := r.Saved[a.Meal]
	if strings.Join(got, "\n") == strings.Join(a.Lines, "\n") {
		return nil
	}
	return &AssertionError{
		Type:     AssertSavedLines,
		Expected: strings.Join(a.Lines, " | "),
		Actual:   strings.Join(got, " | "),
	}
}

// assertDaily checks the day's meal count and, when set, its total weight.
func assertDaily(r *Result, a Assertion) error {
	if r.Final.DailyMeals != a.Meals {
		return &AssertionError{
			Type:     AssertDaily,
			Expected: fmt.Sprintf("%d meals", a.Meals),
			Actual:   fmt.Sprintf("%d meals", r.Final.DailyMeals),
		}
	}
	if a.Weight != 0 && math.Abs(r.Final.DailyWeight-a.Weight) > 0.005 {
		return &AssertionError{
			Type:     AssertDaily,
			Expected: fmt.Sprintf("%g g", a.Weight),
			Actual:   fmt.Sprintf("%g g", r.Final.DailyWeight),
		}
	}
	return nil
}

func assertOutcomeCount(r *Result, a Assertion) error {
	n := 0
	for _, ev := range r.Trace {
		if ev.Outcome == a.Outcome {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertOutcomeCount,
		Expected: fmt.Sprintf("%d %s", a.Count, a.Outcome),
		Actual:   fmt.Sprintf("%d %s", n, a.Outcome),
		Trace:    r.Trace,
	}
}
