package scenario

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakePage is a scriptable Page for engine tests. Zero value behaves like a
// healthy page where every interaction succeeds.
type fakePage struct {
	navErr  error
	shotErr error
	htmlErr error
	html    string
	diag    Diagnostics

	navigated []string
	slept     []time.Duration
	shots     int
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	return p.navErr
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string) error { return nil }
func (p *fakePage) Click(ctx context.Context, selector string) error       { return nil }
func (p *fakePage) Fill(ctx context.Context, selector, value string) error { return nil }
func (p *fakePage) Text(ctx context.Context, selector string) (string, error) {
	return "", nil
}
func (p *fakePage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	return "", false, nil
}
func (p *fakePage) Count(ctx context.Context, selector string) (int, error) { return 0, nil }
func (p *fakePage) Title(ctx context.Context) (string, error)               { return "fake", nil }

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	if p.htmlErr != nil {
		return "", p.htmlErr
	}
	return p.html, nil
}

func (p *fakePage) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	if p.shotErr != nil {
		return nil, p.shotErr
	}
	p.shots++
	return []byte("png-bytes"), nil
}

func (p *fakePage) Sleep(ctx context.Context, d time.Duration) error {
	p.slept = append(p.slept, d)
	return nil
}

func (p *fakePage) DiagnosticsSnapshot() Diagnostics { return p.diag }

// fakeSink records saved screenshots in memory.
type fakeSink struct {
	stepShots  []string
	errorShots int
}

func (s *fakeSink) SaveStepShot(ordinal int, key string, png []byte) (string, error) {
	name := fmt.Sprintf("%02d_%s.png", ordinal, key)
	s.stepShots = append(s.stepShots, name)
	return name, nil
}

func (s *fakeSink) SaveErrorShot(png []byte) (string, error) {
	s.errorShots++
	return "error.png", nil
}

func okStep(key string) Step {
	return Step{
		Key:   key,
		Label: key,
		Action: func(ctx context.Context, pg Page, run *RunState) (string, error) {
			return key + " done", nil
		},
	}
}

func failStep(key string, err error) Step {
	return Step{
		Key:   key,
		Label: key,
		Action: func(ctx context.Context, pg Page, run *RunState) (string, error) {
			return "", err
		},
	}
}

func newTestRunner(t *testing.T, sink ArtifactSink) *Runner {
	t.Helper()
	return NewRunner(zaptest.NewLogger(t), sink, 5*time.Second)
}

func TestRunProducesOneOutcomePerStepInOrder(t *testing.T) {
	pg := &fakePage{}
	r := newTestRunner(t, nil)

	steps := []Step{okStep("first"), okStep("second"), okStep("third")}
	report, err := r.Run(context.Background(), pg, steps, "http://app.local")
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, []string{"http://app.local"}, pg.navigated)
	for i, key := range []string{"first", "second", "third"} {
		assert.Equal(t, key, report.Outcomes[i].Key)
		assert.Equal(t, StatusOK, report.Outcomes[i].Status)
		assert.Equal(t, key+" done", report.Outcomes[i].Detail)
	}
	assert.Nil(t, report.Fatal)
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestRunContinuesAfterFailedStep(t *testing.T) {
	pg := &fakePage{}
	r := newTestRunner(t, nil)

	steps := []Step{
		okStep("a"),
		failStep("b", errors.New("button not clickable")),
		okStep("c"),
	}
	report, err := r.Run(context.Background(), pg, steps, "http://app.local")
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, StatusOK, report.Outcomes[0].Status)
	assert.Equal(t, StatusFailed, report.Outcomes[1].Status)
	assert.Equal(t, "button not clickable", report.Outcomes[1].Detail)
	assert.Equal(t, StatusOK, report.Outcomes[2].Status)
	assert.True(t, report.HasFailures())
}

func TestOptionalStepAbsentElementIsWarning(t *testing.T) {
	pg := &fakePage{}
	r := newTestRunner(t, nil)

	absent := fmt.Errorf("%q: %w", ".notification", ErrElementAbsent)
	steps := []Step{
		{Key: "opt", Label: "opt", Optional: true, Action: func(ctx context.Context, pg Page, run *RunState) (string, error) {
			return "", absent
		}},
		{Key: "req", Label: "req", Action: func(ctx context.Context, pg Page, run *RunState) (string, error) {
			return "", absent
		}},
	}
	report, err := r.Run(context.Background(), pg, steps, "http://app.local")
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, StatusWarning, report.Outcomes[0].Status)
	assert.Equal(t, StatusFailed, report.Outcomes[1].Status)
}

func TestOptionalStepOtherErrorStillFails(t *testing.T) {
	pg := &fakePage{}
	r := newTestRunner(t, nil)

	steps := []Step{
		{Key: "opt", Label: "opt", Optional: true, Action: func(ctx context.Context, pg Page, run *RunState) (string, error) {
			return "", errors.New("evaluate threw")
		}},
	}
	report, err := r.Run(context.Background(), pg, steps, "http://app.local")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, report.Outcomes[0].Status)
}

func TestPreconditionUnmetSkipsActionWithWarning(t *testing.T) {
	pg := &fakePage{}
	r := newTestRunner(t, nil)

	invoked := false
	steps := []Step{
		failStep("search", errors.New("search box missing")),
		{
			Key:      "play",
			Label:    "play",
			Requires: &Precondition{Step: "search", Reason: "search did not succeed"},
			Action: func(ctx context.Context, pg Page, run *RunState) (string, error) {
				invoked = true
				return "played", nil
			},
		},
	}
	report, err := r.Run(context.Background(), pg, steps, "http://app.local")
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 2)
	assert.False(t, invoked)
	assert.Equal(t, StatusWarning, report.Outcomes[1].Status)
	assert.Equal(t, "precondition not met: search did not succeed", report.Outcomes[1].Detail)
}

func TestPreconditionCheckGatesOnRunState(t *testing.T) {
	pg := &fakePage{}
	r := newTestRunner(t, nil)

	steps := []Step{
		{Key: "search", Label: "search", Action: func(ctx context.Context, pg Page, run *RunState) (string, error) {
			run.Put("results", 0)
			return "no results", nil
		}},
		{
			Key:   "play",
			Label: "play",
			Requires: &Precondition{
				Step:   "search",
				Check:  func(run *RunState) bool { return run.Int("results") > 0 },
				Reason: "nothing to play",
			},
			Action: func(ctx context.Context, pg Page, run *RunState) (string, error) {
				return "played", nil
			},
		},
	}
	report, err := r.Run(context.Background(), pg, steps, "http://app.local")
	require.NoError(t, err)

	assert.Equal(t, StatusOK, report.Outcomes[0].Status)
	assert.Equal(t, StatusWarning, report.Outcomes[1].Status)
	assert.Equal(t, "precondition not met: nothing to play", report.Outcomes[1].Detail)
}

func TestFatalNavigationAbortsWithEvidence(t *testing.T) {
	pg := &fakePage{
		navErr: context.DeadlineExceeded,
		html:   `<html><head><title>stuck</title></head><body><a href="/x">x</a></body></html>`,
	}
	sink := &fakeSink{}
	r := newTestRunner(t, sink)

	steps := []Step{okStep("never")}
	report, err := r.Run(context.Background(), pg, steps, "http://down.local")

	var navErr *NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Equal(t, "http://down.local", navErr.URL)

	require.NotNil(t, report.Fatal)
	assert.Equal(t, "navigation", report.Fatal.Kind)
	assert.Empty(t, report.Outcomes)
	assert.Equal(t, 1, sink.errorShots)
	assert.Equal(t, "error.png", report.Fatal.ScreenshotPath)
	assert.Contains(t, report.Fatal.DOMSummary, `title="stuck"`)
	assert.Contains(t, report.Fatal.DOMSummary, "links=1")
}

func TestFatalEvidenceFailuresDoNotMaskNavigationError(t *testing.T) {
	pg := &fakePage{
		navErr:  errors.New("net::ERR_CONNECTION_REFUSED"),
		shotErr: errors.New("no page to screenshot"),
		htmlErr: errors.New("no document"),
	}
	sink := &fakeSink{}
	r := newTestRunner(t, sink)

	report, err := r.Run(context.Background(), pg, nil, "http://down.local")

	var navErr *NavigationError
	require.ErrorAs(t, err, &navErr)
	require.NotNil(t, report.Fatal)
	assert.Empty(t, report.Fatal.ScreenshotPath)
	assert.Empty(t, report.Fatal.DOMSummary)
	assert.Zero(t, sink.errorShots)
}

func TestScreenshotCapturedForOkAndWarningButNotFailed(t *testing.T) {
	pg := &fakePage{}
	sink := &fakeSink{}
	r := newTestRunner(t, sink)

	absent := fmt.Errorf("%q: %w", "#gone", ErrElementAbsent)
	steps := []Step{
		{Key: "ok", Label: "ok", Screenshot: true, Action: func(ctx context.Context, pg Page, run *RunState) (string, error) {
			return "fine", nil
		}},
		{Key: "warn", Label: "warn", Screenshot: true, Optional: true, Action: func(ctx context.Context, pg Page, run *RunState) (string, error) {
			return "", absent
		}},
		{Key: "bad", Label: "bad", Screenshot: true, Action: func(ctx context.Context, pg Page, run *RunState) (string, error) {
			return "", errors.New("boom")
		}},
	}
	report, err := r.Run(context.Background(), pg, steps, "http://app.local")
	require.NoError(t, err)

	assert.Equal(t, []string{"01_ok.png", "02_warn.png"}, sink.stepShots)
	assert.Equal(t, "01_ok.png", report.Outcomes[0].ScreenshotPath)
	assert.Equal(t, "02_warn.png", report.Outcomes[1].ScreenshotPath)
	assert.Empty(t, report.Outcomes[2].ScreenshotPath)
}

func TestScreenshotFailureDoesNotFailStep(t *testing.T) {
	pg := &fakePage{shotErr: errors.New("capture failed")}
	sink := &fakeSink{}
	r := newTestRunner(t, sink)

	steps := []Step{
		{Key: "ok", Label: "ok", Screenshot: true, Action: func(ctx context.Context, pg Page, run *RunState) (string, error) {
			return "fine", nil
		}},
	}
	report, err := r.Run(context.Background(), pg, steps, "http://app.local")
	require.NoError(t, err)

	assert.Equal(t, StatusOK, report.Outcomes[0].Status)
	assert.Empty(t, report.Outcomes[0].ScreenshotPath)
	assert.Empty(t, sink.stepShots)
}

func TestSettleDelayAppliedUnlessFailed(t *testing.T) {
	pg := &fakePage{}
	r := newTestRunner(t, nil)

	steps := []Step{
		{Key: "ok", Label: "ok", Settle: 250 * time.Millisecond, Action: func(ctx context.Context, pg Page, run *RunState) (string, error) {
			return "fine", nil
		}},
		{Key: "bad", Label: "bad", Settle: 9 * time.Second, Action: func(ctx context.Context, pg Page, run *RunState) (string, error) {
			return "", errors.New("boom")
		}},
	}
	_, err := r.Run(context.Background(), pg, steps, "http://app.local")
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{250 * time.Millisecond}, pg.slept)
}

func TestPanickingStepIsContained(t *testing.T) {
	pg := &fakePage{}
	r := newTestRunner(t, nil)

	steps := []Step{
		{Key: "panics", Label: "panics", Action: func(ctx context.Context, pg Page, run *RunState) (string, error) {
			panic("selector logic bug")
		}},
		okStep("after"),
	}
	report, err := r.Run(context.Background(), pg, steps, "http://app.local")
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, StatusFailed, report.Outcomes[0].Status)
	assert.Contains(t, report.Outcomes[0].Detail, "step panicked")
	assert.Equal(t, StatusOK, report.Outcomes[1].Status)
}

func TestStepWithoutActionFails(t *testing.T) {
	pg := &fakePage{}
	r := newTestRunner(t, nil)

	report, err := r.Run(context.Background(), pg, []Step{{Key: "empty", Label: "empty"}}, "http://app.local")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, report.Outcomes[0].Status)
}

func TestReportCarriesDiagnostics(t *testing.T) {
	pg := &fakePage{
		diag: Diagnostics{
			Console: []ConsoleMessage{
				{Level: "log", Text: "booting"},
				{Level: "error", Text: "api request failed"},
			},
			PageErrors: []string{"TypeError: x is undefined"},
		},
	}
	r := newTestRunner(t, nil)

	report, err := r.Run(context.Background(), pg, []Step{okStep("only")}, "http://app.local")
	require.NoError(t, err)

	require.Len(t, report.ConsoleErrors, 1)
	assert.Equal(t, "api request failed", report.ConsoleErrors[0].Text)
	assert.Equal(t, []string{"TypeError: x is undefined"}, report.PageErrors)
}
