package scenario

import (
	"context"
	"time"
)

// Status classifies the outcome of one step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
)

// Step is one labeled, ordered unit of UI interaction.
type Step struct {
	// Key is a stable identifier, used for screenshot naming and for
	// precondition references from later steps.
	Key string

	// Label is the human-readable name shown in the narrative.
	Label string

	// Optional marks the step's required elements as possibly absent:
	// a bounded-wait miss records a warning instead of a failure.
	Optional bool

	// Screenshot requests a full-page screenshot after the step, unless
	// the step failed or was skipped.
	Screenshot bool

	// Settle is a fixed post-action delay, used only where the UI under
	// test renders asynchronously with no observable completion signal.
	// A known imprecision; keep these named at the scenario definition.
	Settle time.Duration

	// Requires declares an explicit dependency on a prior step's result.
	// When unmet the step is skipped with a warning and Action is never
	// invoked.
	Requires *Precondition

	// Action performs the interaction and returns a detail message for
	// the outcome.
	Action func(ctx context.Context, pg Page, run *RunState) (string, error)
}

// Precondition makes a step's dependency on earlier state explicit data
// instead of an implicit page-state coupling.
type Precondition struct {
	// Step is the key of the prior step whose outcome must be ok.
	Step string

	// Check optionally inspects the run state beyond the prior outcome
	// (e.g. "search produced at least one result").
	Check func(run *RunState) bool

	// Reason is reported when the precondition is unmet.
	Reason string
}

// StepOutcome is the recorded result of executing one Step. Every step
// produces exactly one, even on failure.
type StepOutcome struct {
	Key            string `json:"key"`
	Label          string `json:"label"`
	Status         Status `json:"status"`
	Detail         string `json:"detail"`
	ScreenshotPath string `json:"screenshot_path,omitempty"`
}

// RunState carries values published by earlier steps within one run, plus
// the outcomes recorded so far. Actions write to it; preconditions read it.
type RunState struct {
	values   map[string]interface{}
	outcomes map[string]StepOutcome
}

// NewRunState returns an empty run state.
func NewRunState() *RunState {
	return &RunState{
		values:   make(map[string]interface{}),
		outcomes: make(map[string]StepOutcome),
	}
}

// Put publishes a value for later steps.
func (rs *RunState) Put(key string, value interface{}) {
	rs.values[key] = value
}

// Int reads a previously published integer; missing or mistyped keys read
// as zero.
func (rs *RunState) Int(key string) int {
	if v, ok := rs.values[key].(int); ok {
		return v
	}
	return 0
}

// String reads a previously published string.
func (rs *RunState) String(key string) string {
	if v, ok := rs.values[key].(string); ok {
		return v
	}
	return ""
}

// Outcome returns the recorded outcome of an earlier step.
func (rs *RunState) Outcome(key string) (StepOutcome, bool) {
	o, ok := rs.outcomes[key]
	return o, ok
}

func (rs *RunState) record(o StepOutcome) {
	rs.outcomes[o.Key] = o
}

// met reports whether the precondition holds for the current run state.
func (p *Precondition) met(run *RunState) bool {
	if p.Step != "" {
		o, ok := run.Outcome(p.Step)
		if !ok || o.Status != StatusOK {
			return false
		}
	}
	if p.Check != nil {
		return p.Check(run)
	}
	return true
}
