package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"weigh_and_save", "offline_save"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_IsDeterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "weigh_and_save.yaml"))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := Snapshot(s.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_ExpectationMismatchFails(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong_expectation
description: a group button in Idle is rejected, not applied
steps:
  - event: SelectGroupA
    group: 7
    expect:
      state: GroupASelected
      outcome: applied
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected state GroupASelected, got Idle")
	assert.Contains(t, result.Errors[1], "expected outcome applied, got rejected")
}

func TestRun_RefusedEvents(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: refusals
description: commits with nothing to commit and groups of the wrong type are refused
steps:
  - event: WeightIncreased
    weight: 300
  - event: SelectGroupA
    group: 2
    expect:
      outcome: refused
      state: ContainerPlaced
  - event: SelectGroupB
    group: 2
  - event: CommitDish
    expect:
      outcome: refused
assertions:
  - type: outcome_count
    outcome: refused
    count: 2
  - type: notice_count
    notice: invalid_group
    count: 1
  - type: notice_count
    notice: nothing_to_commit
    count: 1
  - type: final_state
    state: GroupBSelected
  - type: daily
    meals: 0
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_AdvanceStampsLaterMeals(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: two_meals
description: two meals an hour apart
start: 2024-07-03T08:00:00Z
session: kitchen-1
steps:
  - event: WeightIncreased
    weight: 300
  - event: SelectGroupB
    group: 6
  - event: WeightIncreased
    weight: 120
  - event: CommitMeal
  - event: ContainerRemoved
  - event: WeightIncreased
    weight: 300
    advance: 1h
  - event: SelectGroupB
    group: 1
  - event: WeightIncreased
    weight: 200
  - event: CommitMeal
assertions:
  - type: daily
    meals: 2
    weight: 320
  - type: saved_lines
    meal: 1
    lines:
      - INICIO-COMIDA
      - INICIO-PLATO
      - ALIMENTO,1,200
      - FIN-COMIDA,03.07.2024,09:00:00
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "kitchen-1", result.Session)
	assert.Equal(t, 2, result.Final.CSVRows)
	assert.Zero(t, result.Final.PendingLines)
}

func TestRun_FailedAssertionsAreReported(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: failing_assertions
description: every assertion is wrong
steps:
  - event: WeightIncreased
    weight: 300
assertions:
  - type: final_state
    state: Idle
  - type: saved_lines
    meal: 0
    lines: [INICIO-COMIDA]
  - type: daily
    meals: 1
  - type: notice_count
    notice: meal_saved
    count: 1
  - type: outcome_count
    outcome: rejected
    count: 1
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "Assertion failed: final_state")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_DefaultStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: a\ndescription: b\nsteps:\n  - event: TareDone\n"), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), s.Start)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown field", "name: a\ndescription: b\nstep: []\n", "failed to parse YAML"},
		{"missing name", "description: b\nsteps:\n  - event: TareDone\n", "name is required"},
		{"missing description", "name: a\nsteps:\n  - event: TareDone\n", "description is required"},
		{"no steps", "name: a\ndescription: b\n", "steps list is required"},
		{"unknown event", "name: a\ndescription: b\nsteps:\n  - event: Jump\n", `unknown event "Jump"`},
		{"group without id", "name: a\ndescription: b\nsteps:\n  - event: SelectGroupA\n", "requires a group"},
		{"negative advance", "name: a\ndescription: b\nsteps:\n  - event: TareDone\n    advance: -1s\n", "advance must not be negative"},
		{"unknown expected state", "name: a\ndescription: b\nsteps:\n  - event: TareDone\n    expect:\n      state: Sleeping\n", "unknown state"},
		{"unknown outcome", "name: a\ndescription: b\nsteps:\n  - event: TareDone\n    expect:\n      outcome: maybe\n", "unknown outcome"},
		{"unknown assertion", "name: a\ndescription: b\nsteps:\n  - event: TareDone\nassertions:\n  - type: vibes\n", "unknown assertion type"},
		{"notice_count without notice", "name: a\ndescription: b\nsteps:\n  - event: TareDone\nassertions:\n  - type: notice_count\n", "notice is required"},
		{"saved_lines without lines", "name: a\ndescription: b\nsteps:\n  - event: TareDone\nassertions:\n  - type: saved_lines\n", "lines are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertFinalState,
		Expected: "Idle",
		Actual:   "Weighed",
		Trace:    []TraceEvent{{Seq: 1, Event: "WeightIncreased(300)", From: "Idle", To: "ContainerPlaced", Outcome: OutcomeApplied}},
	}
	msg := err.Error()
	assert.Contains(t, msg, "Expected: Idle")
	assert.Contains(t, msg, "[1] WeightIncreased(300) Idle -> ContainerPlaced (applied)")
}
