package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner sequences steps against a single page session. Per-step failures
// are contained in their StepOutcome; only launch and navigation failures
// abort a run. The Runner never tears the session down — that is the
// caller's responsibility, so one overall run can span multiple sessions.
type Runner struct {
	logger     *zap.Logger
	shots      ArtifactSink
	navTimeout time.Duration
}

// NewRunner creates a runner. navTimeout bounds the initial navigation;
// shots may be nil when no screenshot evidence is wanted.
func NewRunner(logger *zap.Logger, shots ArtifactSink, navTimeout time.Duration) *Runner {
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	return &Runner{
		logger:     logger.Named("runner"),
		shots:      shots,
		navTimeout: navTimeout,
	}
}

// Run navigates the session to targetURL and executes the steps in order,
// producing exactly one StepOutcome per step. On a fatal navigation failure
// it captures best-effort evidence, returns a report with zero outcomes and
// a non-nil Fatal, and surfaces a *NavigationError.
func (r *Runner) Run(ctx context.Context, pg Page, steps []Step, targetURL string) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.New().String(),
		TargetURL: targetURL,
		StartedAt: time.Now().UTC(),
	}

	r.logger.Info("Starting scenario run",
		zap.String("run_id", report.RunID),
		zap.String("target", targetURL),
		zap.Int("steps", len(steps)),
	)

	navCtx, cancel := context.WithTimeout(ctx, r.navTimeout)
	err := pg.Navigate(navCtx, targetURL)
	cancel()
	if err != nil {
		navErr := &NavigationError{URL: targetURL, Err: err}
		report.Fatal = r.captureFatalEvidence(ctx, pg, "navigation", navErr)
		r.finalize(pg, report)
		r.logger.Error("Run aborted: navigation failed", zap.Error(navErr))
		return report, navErr
	}

	state := NewRunState()
	for i, step := range steps {
		outcome := r.executeStep(ctx, pg, i, step, state)
		state.record(outcome)
		report.Outcomes = append(report.Outcomes, outcome)

		r.logger.Info("Step finished",
			zap.String("step", step.Key),
			zap.String("status", string(outcome.Status)),
			zap.String("detail", outcome.Detail),
		)
	}

	r.finalize(pg, report)
	ok, warn, failed := report.Counts()
	r.logger.Info("Scenario run complete",
		zap.String("run_id", report.RunID),
		zap.Int("ok", ok),
		zap.Int("warnings", warn),
		zap.Int("failed", failed),
	)
	return report, nil
}

// executeStep runs one step and classifies its outcome. It never returns an
// error: every failure mode ends up inside the StepOutcome.
func (r *Runner) executeStep(ctx context.Context, pg Page, index int, step Step, state *RunState) StepOutcome {
	outcome := StepOutcome{Key: step.Key, Label: step.Label}

	if step.Requires != nil && !step.Requires.met(state) {
		outcome.Status = StatusWarning
		outcome.Detail = "precondition not met"
		if step.Requires.Reason != "" {
			outcome.Detail = "precondition not met: " + step.Requires.Reason
		}
		return outcome
	}

	detail, err := r.invokeAction(ctx, pg, step, state)

	switch {
	case err == nil:
		outcome.Status = StatusOK
		outcome.Detail = detail
	case step.Optional && errors.Is(err, ErrElementAbsent):
		outcome.Status = StatusWarning
		outcome.Detail = err.Error()
	default:
		outcome.Status = StatusFailed
		outcome.Detail = err.Error()
	}

	if step.Settle > 0 && outcome.Status != StatusFailed {
		if serr := pg.Sleep(ctx, step.Settle); serr != nil {
			r.logger.Debug("Settle delay interrupted", zap.String("step", step.Key), zap.Error(serr))
		}
	}

	if step.Screenshot && outcome.Status != StatusFailed && r.shots != nil {
		if path, serr := r.captureStepShot(ctx, pg, index+1, step.Key); serr != nil {
			r.logger.Warn("Failed to capture step screenshot", zap.String("step", step.Key), zap.Error(serr))
		} else {
			outcome.ScreenshotPath = path
		}
	}

	return outcome
}

// invokeAction calls the step's action, containing panics so a misbehaving
// step cannot lose the rest of the run's evidence.
func (r *Runner) invokeAction(ctx context.Context, pg Page, step Step, state *RunState) (detail string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("step panicked: %v", rec)
		}
	}()
	if step.Action == nil {
		return "", fmt.Errorf("step %q has no action", step.Key)
	}
	return step.Action(ctx, pg, state)
}

func (r *Runner) captureStepShot(ctx context.Context, pg Page, ordinal int, key string) (string, error) {
	png, err := pg.CaptureScreenshot(ctx)
	if err != nil {
		return "", err
	}
	return r.shots.SaveStepShot(ordinal, key, png)
}

// captureFatalEvidence takes a best-effort screenshot and DOM summary after
// a fatal condition. Any error here is logged and swallowed: evidence
// capture must never mask the fatal error itself.
func (r *Runner) captureFatalEvidence(ctx context.Context, pg Page, kind string, cause error) *Fatal {
	fatal := &Fatal{Kind: kind, Message: cause.Error()}

	evidenceCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if r.shots != nil {
		if png, err := pg.CaptureScreenshot(evidenceCtx); err != nil {
			r.logger.Warn("Failed to capture error screenshot", zap.Error(err))
		} else if path, err := r.shots.SaveErrorShot(png); err != nil {
			r.logger.Warn("Failed to save error screenshot", zap.Error(err))
		} else {
			fatal.ScreenshotPath = path
		}
	}

	if html, err := pg.HTML(evidenceCtx); err == nil && html != "" {
		if summary, err := SummarizeDOM(html); err == nil {
			fatal.DOMSummary = summary
		}
	}

	return fatal
}

// finalize stamps the report and attaches the session's diagnostic
// snapshots (console-error subset and page errors).
func (r *Runner) finalize(pg Page, report *RunReport) {
	diag := pg.DiagnosticsSnapshot()
	report.ConsoleErrors = diag.ConsoleErrors()
	report.PageErrors = diag.PageErrors
	report.FinishedAt = time.Now().UTC()
}
