// Package store persists scoring runs and their per-entity metric rows.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/config"
	"github.com/sells-group/disclosure-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for scoring runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, source string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, entities, failed int) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Metrics
	SaveEntityMetrics(ctx context.Context, runID string, rows []model.EntityMetricRow) error
	ListEntityMetrics(ctx context.Context, runID string) ([]model.EntityMetricRow, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and applies migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "disclosure.db"
		}
		st, err = NewSQLite(dsn)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// metricColumns is the persisted column order shared by both backends.
var metricColumns = []string{
	"run_id", "entity", "period",
	"relate", "spec", "senti", "commit_rate",
	"metrics", "strategy", "governance", "risk",
	"created_at",
}

func metricValues(runID string, r model.EntityMetricRow, now time.Time) []any {
	return []any{
		runID, r.Entity, r.Period,
		r.Relatedness, r.Specificity, r.Severity, r.Commitment,
		r.Categories.Metrics, r.Categories.Strategy, r.Categories.Governance, r.Categories.Risk,
		now,
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanMetric(row scannable) (model.EntityMetricRow, error) {
	var r model.EntityMetricRow
	err := row.Scan(&r.Entity, &r.Period,
		&r.Relatedness, &r.Specificity, &r.Severity, &r.Commitment,
		&r.Categories.Metrics, &r.Categories.Strategy, &r.Categories.Governance, &r.Categories.Risk,
	)
	return r, err
}

const selectMetrics = `SELECT entity, period, relate, spec, senti, commit_rate, metrics, strategy, governance, risk FROM entity_metrics WHERE run_id = `

func listLimit(f RunFilter) int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}
