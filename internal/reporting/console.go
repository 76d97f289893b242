// Package reporting projects a RunReport into human- and machine-readable
// forms. The narrative is a presentation of the report, not part of the
// engine's contract beyond representing every step outcome.
package reporting

import (
	"fmt"
	"io"

	"github.com/xkilldash9x/encore-e2e/internal/scenario"
)

const divider = "=================================================="

// RenderNarrative writes the ordered per-step progress lines and the final
// diagnostics tally for one run.
func RenderNarrative(w io.Writer, report *scenario.RunReport) {
	fmt.Fprintln(w, divider)
	fmt.Fprintf(w, "Scenario run %s\n", report.RunID)
	fmt.Fprintf(w, "Target: %s\n", report.TargetURL)
	fmt.Fprintln(w, divider)

	if report.Fatal != nil {
		fmt.Fprintf(w, "\n✗ FATAL (%s): %s\n", report.Fatal.Kind, report.Fatal.Message)
		if report.Fatal.ScreenshotPath != "" {
			fmt.Fprintf(w, "  error screenshot: %s\n", report.Fatal.ScreenshotPath)
		}
		if report.Fatal.DOMSummary != "" {
			fmt.Fprintf(w, "  page state: %s\n", report.Fatal.DOMSummary)
		}
	}

	for i, o := range report.Outcomes {
		fmt.Fprintf(w, "\n[%d] %s\n", i+1, o.Label)
		fmt.Fprintf(w, "  %s %s\n", statusMark(o.Status), o.Detail)
		if o.ScreenshotPath != "" {
			fmt.Fprintf(w, "  screenshot: %s\n", o.ScreenshotPath)
		}
	}

	ok, warn, failed := report.Counts()
	fmt.Fprintf(w, "\n%s\n", divider)
	fmt.Fprintf(w, "Steps: %d ok, %d warnings, %d failed\n", ok, warn, failed)

	if len(report.PageErrors) > 0 {
		fmt.Fprintf(w, "⚠ %d page error(s):\n", len(report.PageErrors))
		for i, e := range report.PageErrors {
			if i >= 3 {
				fmt.Fprintf(w, "   ... and %d more\n", len(report.PageErrors)-i)
				break
			}
			fmt.Fprintf(w, "   %d. %s\n", i+1, truncate(e, 100))
		}
	} else {
		fmt.Fprintln(w, "✓ no page errors")
	}

	if len(report.ConsoleErrors) > 0 {
		fmt.Fprintf(w, "⚠ %d console error(s)\n", len(report.ConsoleErrors))
	} else {
		fmt.Fprintln(w, "✓ no console errors")
	}
	fmt.Fprintln(w, divider)
}

func statusMark(s scenario.Status) string {
	switch s {
	case scenario.StatusOK:
		return "✓"
	case scenario.StatusWarning:
		return "⚠"
	default:
		return "✗"
	}
}

// truncate limits s to max runes, never splitting a multi-byte character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
