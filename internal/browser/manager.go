package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/encore-e2e/internal/config"
)

// Manager owns the browser executable and the creation of isolated
// sessions. It is the only component that spawns or terminates browser
// resources.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	// ChromeDP allocator context manages the underlying browser executable.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// Track active sessions for graceful shutdown.
	sessions map[string]*Session
	mu       sync.Mutex
}

// NewManager creates and initializes the browser manager. The browser
// process itself starts lazily with the first session.
func NewManager(ctx context.Context, logger *zap.Logger, cfg *config.Config) *Manager {
	m := &Manager{
		logger:   logger.Named("browser_manager"),
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}

	opts := m.generateAllocatorOptions()
	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, opts...)

	m.logger.Info("Browser manager initialized",
		zap.Bool("headless", cfg.Browser.Headless),
		zap.Bool("no_sandbox", cfg.Browser.NoSandbox),
	)
	return m
}

// generateAllocatorOptions configures the flags for the browser executable.
func (m *Manager) generateAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	browserCfg := m.cfg.Browser

	if browserCfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if browserCfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	opts = append(opts,
		// Stability flags for containerized/CI environments.
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-extensions", true),

		// GPU often causes issues in headless/containerized environments.
		chromedp.Flag("disable-gpu", browserCfg.Headless),

		chromedp.Flag("ignore-certificate-errors", browserCfg.IgnoreTLSErrors),
	)

	return opts
}

// UnregisterSession removes the session from the tracking map. Called
// internally by Session.Close.
func (m *Manager) UnregisterSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) registerSession(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
}

// Shutdown gracefully terminates all sessions and the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down browser manager")

	m.mu.Lock()
	sessionsToClose := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessionsToClose = append(sessionsToClose, session)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, session := range sessionsToClose {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := s.Close(closeCtx); err != nil {
				m.logger.Warn("Error closing browser session during shutdown",
					zap.String("session_id", s.ID()), zap.Error(err))
			}
		}(session)
	}
	wg.Wait()

	if m.allocatorCancel != nil {
		m.allocatorCancel()
	}

	m.logger.Info("Browser manager shutdown complete")
	return nil
}
