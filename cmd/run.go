package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/encore-e2e/internal/artifacts"
	"github.com/xkilldash9x/encore-e2e/internal/browser"
	"github.com/xkilldash9x/encore-e2e/internal/config"
	"github.com/xkilldash9x/encore-e2e/internal/observability"
	"github.com/xkilldash9x/encore-e2e/internal/reporting"
	"github.com/xkilldash9x/encore-e2e/internal/scenario"
	"github.com/xkilldash9x/encore-e2e/internal/scenario/musicplayer"
	"github.com/xkilldash9x/encore-e2e/internal/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the full music player scenario against the configured target",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd.Context(), loadedConfig)
		},
	}
	return cmd
}

func runScenario(ctx context.Context, cfg *config.Config) error {
	logger := observability.GetLogger()

	writer, err := artifacts.NewWriter(cfg.Runner.ScreenshotDir, logger)
	if err != nil {
		return err
	}

	runStore, pool, err := openStore(ctx, cfg, logger)
	if err != nil {
		// A broken history database should not block the scenario.
		logger.Warn("Run history store unavailable, continuing without persistence", zap.Error(err))
	}
	if pool != nil {
		defer pool.Close()
	}

	manager := browser.NewManager(ctx, logger, cfg)
	defer func() {
		if err := manager.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Browser manager shutdown reported an error", zap.Error(err))
		}
	}()

	runner := scenario.NewRunner(logger, writer, cfg.Runner.NavigationTimeout)

	report, runErr := runInSession(ctx, manager, runner,
		browser.SessionOptions{},
		musicplayer.Steps(cfg.Runner.SearchTerm),
		cfg.Target.BaseURL,
	)
	persistRun(ctx, cfg, writer, runStore, logger, "report.json", report)
	if runErr != nil {
		return runErr
	}

	anyFailed := report.HasFailures()

	// Responsive layout checks run in fresh sessions so each viewport sees
	// a cold page load.
	for _, vp := range cfg.Runner.ResponsiveViewports {
		name := fmt.Sprintf("%dx%d", vp.Width, vp.Height)
		vpReport, vpErr := runInSession(ctx, manager, runner,
			browser.SessionOptions{Viewport: &config.ViewportConfig{Width: vp.Width, Height: vp.Height}},
			musicplayer.ViewportSteps(name),
			cfg.Target.BaseURL,
		)
		persistRun(ctx, cfg, writer, runStore, logger, fmt.Sprintf("report_%s.json", name), vpReport)
		if vpErr != nil {
			return vpErr
		}
		anyFailed = anyFailed || vpReport.HasFailures()
	}

	if cfg.Runner.FailOnStepErrors && anyFailed {
		return errors.New("scenario completed with failed steps")
	}
	return nil
}

// runInSession executes one scenario in a dedicated browser session and
// always tears the session down before returning.
func runInSession(ctx context.Context, manager *browser.Manager, runner *scenario.Runner,
	opts browser.SessionOptions, steps []scenario.Step, targetURL string) (*scenario.RunReport, error) {

	session, err := manager.NewSession(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(context.WithoutCancel(ctx)) }()

	return runner.Run(ctx, session, steps, targetURL)
}

// persistRun renders the narrative, writes the JSON artifact and records the
// run in the history store when one is configured. None of these may change
// the run's outcome.
func persistRun(ctx context.Context, cfg *config.Config, writer *artifacts.Writer,
	runStore *store.Store, logger *zap.Logger, filename string, report *scenario.RunReport) {

	if report == nil {
		return
	}

	reporting.RenderNarrative(os.Stdout, report)

	jsonPath := filepath.Join(writer.Dir(), filename)
	if err := reporting.WriteJSON(jsonPath, report); err != nil {
		logger.Warn("Failed to write JSON report", zap.String("path", jsonPath), zap.Error(err))
	}

	if runStore != nil {
		if err := runStore.SaveRun(ctx, report); err != nil {
			logger.Warn("Failed to persist run report", zap.String("run_id", report.RunID), zap.Error(err))
		}
	}
}

// openStore connects to the run-history database when configured. Returns
// (nil, nil, nil) when no database URL is set.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store.Store, *pgxpool.Pool, error) {
	if cfg.Store.URL == "" {
		return nil, nil, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Store.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	s, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool, nil
}
