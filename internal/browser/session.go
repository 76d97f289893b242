package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/encore-e2e/internal/config"
	"github.com/xkilldash9x/encore-e2e/internal/scenario"
)

// SessionOptions customizes one session. A nil Viewport uses the configured
// default.
type SessionOptions struct {
	Viewport *config.ViewportConfig
}

// Session is one isolated browser context (tab) with passively collected
// diagnostic logs. It implements scenario.Page.
type Session struct {
	id      string
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
	manager *Manager

	elementTimeout time.Duration
	networkQuiet   time.Duration

	net *NetworkWatcher

	// Diagnostic logs, appended by asynchronous CDP event delivery for the
	// whole session lifetime.
	mu          sync.Mutex
	consoleLogs []scenario.ConsoleMessage
	pageErrors  []string

	closeStatus int32 // 0 = open, 1 = closing
}

var _ scenario.Page = (*Session)(nil)

// NewSession launches an isolated browser context. Diagnostic listeners are
// registered before the bring-up navigation so no early console output or
// page error is lost. Returns *LaunchError when the browser resource cannot
// be acquired; that is fatal to the entire run.
func (m *Manager) NewSession(sessionCtx context.Context, opts SessionOptions) (*Session, error) {
	ctx, cancel := chromedp.NewContext(m.allocatorCtx,
		chromedp.WithLogf(m.logger.Sugar().Debugf),
		chromedp.WithErrorf(m.logger.Sugar().Errorf),
	)

	// Tie the browser context to the lifecycle of the incoming request.
	go func() {
		select {
		case <-sessionCtx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	sessionID := uuid.New().String()
	s := &Session{
		id:             sessionID,
		ctx:            ctx,
		cancel:         cancel,
		logger:         m.logger.Named("session").With(zap.String("session_id", sessionID)),
		manager:        m,
		elementTimeout: m.cfg.Runner.ElementTimeout,
		networkQuiet:   m.cfg.Runner.NetworkQuiet,
		net:            NewNetworkWatcher(),
		consoleLogs:    make([]scenario.ConsoleMessage, 0),
		pageErrors:     make([]string, 0),
	}

	// Listener registration must precede the first navigation.
	s.setupListeners()

	viewport := m.cfg.Browser.Viewport
	if opts.Viewport != nil {
		viewport = *opts.Viewport
	}

	init := chromedp.Tasks{
		network.Enable(),
		runtime.Enable(),
		chromedp.EmulateViewport(int64(viewport.Width), int64(viewport.Height)),
		chromedp.Navigate("about:blank"),
	}
	if err := chromedp.Run(ctx, init); err != nil {
		cancel()
		return nil, &LaunchError{Err: err}
	}

	m.registerSession(s)
	s.logger.Info("Session created",
		zap.Int("viewport_width", viewport.Width),
		zap.Int("viewport_height", viewport.Height),
	)
	return s, nil
}

// setupListeners attaches the passive diagnostic and network listeners.
func (s *Session) setupListeners() {
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			s.handleConsoleAPICalled(ev)
		case *runtime.EventExceptionThrown:
			s.handleExceptionThrown(ev)
		case *network.EventRequestWillBeSent:
			s.net.RequestStarted()
		case *network.EventLoadingFinished:
			s.net.RequestFinished()
		case *network.EventLoadingFailed:
			s.net.RequestFinished()
		}
	})
}

func (s *Session) handleConsoleAPICalled(ev *runtime.EventConsoleAPICalled) {
	parts := make([]string, 0, len(ev.Args))
	for _, arg := range ev.Args {
		parts = append(parts, remoteObjectText(arg))
	}
	msg := scenario.ConsoleMessage{
		Level: ev.Type.String(),
		Text:  strings.Join(parts, " "),
	}

	s.mu.Lock()
	s.consoleLogs = append(s.consoleLogs, msg)
	s.mu.Unlock()

	s.logger.Debug("Console message", zap.String("level", msg.Level), zap.String("text", msg.Text))
}

func (s *Session) handleExceptionThrown(ev *runtime.EventExceptionThrown) {
	text := exceptionText(ev.ExceptionDetails)

	s.mu.Lock()
	s.pageErrors = append(s.pageErrors, text)
	s.mu.Unlock()

	s.logger.Debug("Page error", zap.String("text", text))
}

// remoteObjectText renders a console argument: JSON values are decoded so
// plain strings lose their quotes, everything else falls back to the raw
// representation.
func remoteObjectText(obj *runtime.RemoteObject) string {
	if obj == nil {
		return ""
	}
	if len(obj.Value) > 0 {
		var v interface{}
		if err := json.Unmarshal(obj.Value, &v); err == nil {
			return fmt.Sprint(v)
		}
		return string(obj.Value)
	}
	if obj.Description != "" {
		return obj.Description
	}
	return string(obj.Type)
}

func exceptionText(ed *runtime.ExceptionDetails) string {
	if ed == nil {
		return "unknown page error"
	}
	if ed.Exception != nil && ed.Exception.Description != "" {
		return ed.Exception.Description
	}
	text := ed.Text
	if ed.URL != "" {
		text = fmt.Sprintf("%s (%s:%d)", text, ed.URL, ed.LineNumber)
	}
	return text
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// actionContext derives a context from the session's chromedp context that
// is also canceled when the caller's context is done. chromedp actions must
// run on a descendant of the chromedp context.
func (s *Session) actionContext(opCtx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.ctx)
	go func() {
		select {
		case <-opCtx.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()
	return runCtx, cancel
}

// Navigate loads the URL, waits for the document to become ready and then
// for network quiescence, all bounded by ctx.
func (s *Session) Navigate(ctx context.Context, targetURL string) error {
	s.logger.Debug("Navigating", zap.String("url", targetURL))
	runCtx, cancel := s.actionContext(ctx)
	defer cancel()

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return err
	}
	return s.net.WaitIdle(runCtx, s.networkQuiet)
}

// WaitVisible waits for the first element matching selector, bounded by the
// element timeout. A timeout yields an error wrapping
// scenario.ErrElementAbsent.
func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	runCtx, cancel := s.actionContext(ctx)
	defer cancel()
	waitCtx, waitCancel := context.WithTimeout(runCtx, s.elementTimeout)
	defer waitCancel()

	err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil && s.ctx.Err() == nil {
			return fmt.Errorf("%q: %w", selector, scenario.ErrElementAbsent)
		}
		return err
	}
	return nil
}

// Click waits for the element then clicks its first match.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.WaitVisible(ctx, selector); err != nil {
		return err
	}
	s.logger.Debug("Clicking", zap.String("selector", selector))
	runCtx, cancel := s.actionContext(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

// Fill clears the element and types the value into it.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := s.WaitVisible(ctx, selector); err != nil {
		return err
	}
	s.logger.Debug("Filling", zap.String("selector", selector), zap.Int("length", len(value)))
	runCtx, cancel := s.actionContext(ctx)
	defer cancel()
	return chromedp.Run(runCtx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

// Text returns the visible text content of the first matching element.
func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	if err := s.WaitVisible(ctx, selector); err != nil {
		return "", err
	}
	runCtx, cancel := s.actionContext(ctx)
	defer cancel()
	var text string
	if err := chromedp.Run(runCtx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Attribute returns the attribute value of the first matching element and
// whether the attribute exists.
func (s *Session) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	if err := s.WaitVisible(ctx, selector); err != nil {
		return "", false, err
	}
	runCtx, cancel := s.actionContext(ctx)
	defer cancel()
	var value string
	var ok bool
	if err := chromedp.Run(runCtx, chromedp.AttributeValue(selector, name, &value, &ok, chromedp.ByQuery)); err != nil {
		return "", false, err
	}
	return value, ok, nil
}

// Count returns the number of elements currently matching selector. Zero is
// a normal result, not an error.
func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	runCtx, cancel := s.actionContext(ctx)
	defer cancel()
	var count int
	expr := fmt.Sprintf("document.querySelectorAll(%q).length", selector)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, &count)); err != nil {
		return 0, err
	}
	return count, nil
}

// Title returns the current document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	runCtx, cancel := s.actionContext(ctx)
	defer cancel()
	var title string
	if err := chromedp.Run(runCtx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// HTML returns the full document markup.
func (s *Session) HTML(ctx context.Context) (string, error) {
	runCtx, cancel := s.actionContext(ctx)
	defer cancel()
	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// CaptureScreenshot takes a full-page PNG screenshot.
func (s *Session) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	runCtx, cancel := s.actionContext(ctx)
	defer cancel()
	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Sleep pauses, respecting context cancellation.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// DiagnosticsSnapshot returns copies of the diagnostic logs accumulated so
// far. Events delivered after the snapshot keep appending to the session's
// logs; the returned slices never change.
func (s *Session) DiagnosticsSnapshot() scenario.Diagnostics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scenario.Diagnostics{
		Console:    append([]scenario.ConsoleMessage(nil), s.consoleLogs...),
		PageErrors: append([]string(nil), s.pageErrors...),
	}
}

// Close releases the browser resources held by the session. Safe to call on
// a session in a failed state and safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.closeStatus, 0, 1) {
		s.logger.Debug("Close called on an already closing session")
		return nil
	}
	s.logger.Debug("Closing session")
	if s.manager != nil {
		s.manager.UnregisterSession(s.id)
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}
