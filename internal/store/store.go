// Package store persists run reports to PostgreSQL for history and trend
// analysis. The store is optional: the run command only constructs one when
// a database URL is configured, and persistence failures never change a
// run's outcome.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/encore-e2e/internal/scenario"
)

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ DBPool = (*pgxpool.Pool)(nil)

// Store provides a PostgreSQL-backed run history.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    run_id      text PRIMARY KEY,
    target_url  text NOT NULL,
    started_at  timestamptz NOT NULL,
    finished_at timestamptz NOT NULL,
    fatal       boolean NOT NULL,
    report      jsonb NOT NULL
);`

// New verifies the connection and ensures the schema exists.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to ensure runs schema: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// SaveRun inserts one run report. The full report is stored as jsonb so the
// schema never constrains what a report may carry.
func (s *Store) SaveRun(ctx context.Context, report *scenario.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}

	sql := `
        INSERT INTO runs (run_id, target_url, started_at, finished_at, fatal, report)
        VALUES ($1, $2, $3, $4, $5, $6);
    `
	if _, err := s.pool.Exec(ctx, sql,
		report.RunID, report.TargetURL,
		report.StartedAt, report.FinishedAt,
		report.Fatal != nil, payload,
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", report.RunID, err)
	}

	s.log.Debug("Run report persisted", zap.String("run_id", report.RunID))
	return nil
}
