// Package scenario implements the scenario execution engine: an ordered
// script of best-effort steps driven against a single long-lived page
// session, with passive diagnostics collected throughout and a structured
// report produced at the end.
package scenario

import (
	"context"
	"time"
)

// ConsoleMessage is one entry from the browser console.
type ConsoleMessage struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Diagnostics is an immutable snapshot of a session's passively collected
// signals. The underlying logs keep growing until teardown; a snapshot is
// a copy taken at a point in time.
type Diagnostics struct {
	Console    []ConsoleMessage `json:"console"`
	PageErrors []string         `json:"page_errors"`
}

// ConsoleErrors returns the subset of console messages with error severity.
func (d Diagnostics) ConsoleErrors() []ConsoleMessage {
	var errs []ConsoleMessage
	for _, m := range d.Console {
		if m.Level == "error" {
			errs = append(errs, m)
		}
	}
	return errs
}

// Page is the narrow view of a browser session that steps interact with.
// Implemented by browser.Session; tests substitute a fake.
//
// Methods that wait for elements are bounded by the session's element
// timeout and return an error wrapping ErrElementAbsent when the element
// never appears.
type Page interface {
	// Navigate loads the URL and waits for network quiescence, bounded by
	// the supplied context.
	Navigate(ctx context.Context, url string) error

	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	Text(ctx context.Context, selector string) (string, error)
	Attribute(ctx context.Context, selector, name string) (string, bool, error)
	Count(ctx context.Context, selector string) (int, error)
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)

	CaptureScreenshot(ctx context.Context) ([]byte, error)
	Sleep(ctx context.Context, d time.Duration) error

	DiagnosticsSnapshot() Diagnostics
}

// ArtifactSink persists screenshot evidence. Implemented by
// artifacts.Writer; tests substitute an in-memory fake.
type ArtifactSink interface {
	// SaveStepShot stores a screenshot for the step at the given 1-based
	// ordinal and returns the path it was written to.
	SaveStepShot(ordinal int, key string, png []byte) (string, error)

	// SaveErrorShot stores the best-effort screenshot taken on a fatal
	// abort.
	SaveErrorShot(png []byte) (string, error)
}
