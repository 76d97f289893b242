package scenario

import "time"

// Fatal describes the condition that aborted a run before (or during)
// navigation, together with whatever evidence could still be captured.
type Fatal struct {
	Kind           string `json:"kind"`
	Message        string `json:"message"`
	ScreenshotPath string `json:"screenshot_path,omitempty"`
	DOMSummary     string `json:"dom_summary,omitempty"`
}

// RunReport is the complete, ordered record of one run: every step's
// outcome plus the session's diagnostic snapshots. Produced once, at the
// end of a run; immutable thereafter.
type RunReport struct {
	RunID      string    `json:"run_id"`
	TargetURL  string    `json:"target_url"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Fatal is non-nil only when the run aborted before executing steps;
	// in that case Outcomes is empty.
	Fatal *Fatal `json:"fatal,omitempty"`

	Outcomes []StepOutcome `json:"outcomes"`

	ConsoleErrors []ConsoleMessage `json:"console_errors"`
	PageErrors    []string         `json:"page_errors"`
}

// Counts tallies outcomes by status.
func (r *RunReport) Counts() (ok, warning, failed int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusOK:
			ok++
		case StatusWarning:
			warning++
		case StatusFailed:
			failed++
		}
	}
	return ok, warning, failed
}

// HasFailures reports whether any step recorded a failed status.
func (r *RunReport) HasFailures() bool {
	_, _, failed := r.Counts()
	return failed > 0
}
