package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/smartscale/internal/fsm"
)

// Scenario is a scripted scale session.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Start is the clock reading when the run begins. Default:
	// 2024-01-01T00:00:00Z.
	Start time.Time `yaml:"start,omitempty"`

	// Session fixes the session id. If empty, sequential ids are used.
	Session string `yaml:"session,omitempty"`

	// SinkFails makes every meal hand-off fail, as when the gateway
	// cannot be reached.
	SinkFails bool `yaml:"sink_fails,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one hardware event.
type Step struct {
	// Event is an event name such as "WeightIncreased" or "CommitMeal".
	Event string `yaml:"event"`

	// Group is the food group for SelectGroupA/SelectGroupB.
	Group int `yaml:"group,omitempty"`

	// Weight is the net reading in grams for weight events.
	Weight float64 `yaml:"weight,omitempty"`

	// Advance moves the clock forward before the event.
	Advance time.Duration `yaml:"advance,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks the machine right after a step.
type Expect struct {
	State   string `yaml:"state,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`
}

// Assertion checks the run as a whole.
type Assertion struct {
	// Type is one of final_state, notice_count, saved_lines, daily,
	// outcome_count.
	Type string `yaml:"type"`

	State   string   `yaml:"state,omitempty"`
	Notice  string   `yaml:"notice,omitempty"`
	Outcome string   `yaml:"outcome,omitempty"`
	Count   int      `yaml:"count,omitempty"`
	Meal    int      `yaml:"meal,omitempty"`
	Lines   []string `yaml:"lines,omitempty"`
	Meals   int      `yaml:"meals,omitempty"`
	Weight  float64  `yaml:"weight,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState   = "final_state"
	AssertNoticeCount  = "notice_count"
	AssertSavedLines   = "saved_lines"
	AssertDaily        = "daily"
	AssertOutcomeCount = "outcome_count"
)

var defaultStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if scenario.Start.IsZero() {
		scenario.Start = defaultStart
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if _, err := step.toEvent(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if step.Advance < 0 {
			return fmt.Errorf("steps[%d]: advance must not be negative", i)
		}
		if e := step.Expect; e != nil {
			if e.State != "" {
				if _, err := fsm.ParseState(e.State); err != nil {
					return fmt.Errorf("steps[%d].expect: %w", i, err)
				}
			}
			if e.Outcome != "" && !validOutcome(e.Outcome) {
				return fmt.Errorf("steps[%d].expect: unknown outcome %q", i, e.Outcome)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFinalState:
		if _, err := fsm.ParseState(a.State); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertNoticeCount:
		if a.Notice == "" {
			return fmt.Errorf("assertions[%d]: notice is required for notice_count", index)
		}
	case AssertSavedLines:
		if len(a.Lines) == 0 {
			return fmt.Errorf("assertions[%d]: lines are required for saved_lines", index)
		}
	case AssertOutcomeCount:
		if !validOutcome(a.Outcome) {
			return fmt.Errorf("assertions[%d]: unknown outcome %q", index, a.Outcome)
		}
	case AssertDaily:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func validOutcome(o string) bool {
	return o == OutcomeApplied || o == OutcomeRejected || o == OutcomeRefused
}

// toEvent converts the step into a machine event.
func (s Step) toEvent() (fsm.Event, error) {
	kind, err := fsm.ParseEventKind(s.Event)
	if err != nil {
		return fsm.Event{}, err
	}
	ev := fsm.Event{Kind: kind, Weight: s.Weight}
	switch kind {
	case fsm.SelectGroupA, fsm.SelectGroupB:
		if s.Group <= 0 {
			return fsm.Event{}, fmt.Errorf("%s requires a group", s.Event)
		}
		ev.GroupID = s.Group
	}
	return ev, nil
}
