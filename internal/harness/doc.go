// Package harness replays scripted scale sessions through the state
// machine.
//
// A scenario is a YAML file listing hardware events (container placed,
// group buttons, weight changes, commit buttons) with optional per-step
// expectations and final assertions. Run executes it against a fresh
// Machine with a fake clock and sequential session ids, so the trace is
// reproducible and can be compared with a golden file:
//
//	name: weigh_and_save
//	description: one dish, two ingredients, saved
//	start: 2024-07-03T08:55:36Z
//	steps:
//	  - event: WeightIncreased
//	    weight: 300
//	  - event: SelectGroupA
//	    group: 7
//	  - event: MarkRaw
//	  - event: WeightIncreased
//	    weight: 53.5
//	    expect:
//	      state: Weighed
//	  - event: CommitMeal
//	assertions:
//	  - type: final_state
//	    state: MealSaved
//
// Saved meals go to an in-memory backlog and daily CSV log, the same
// places the scale writes them, so scenarios can assert on both.
package harness
