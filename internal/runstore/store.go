// Package runstore keeps a local SQLite history of simulation runs.
package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/gpe"
)

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	config      TEXT NOT NULL,
	steps       INTEGER NOT NULL,
	sim_time    REAL NOT NULL,
	norm        REAL NOT NULL,
	peak        REAL NOT NULL,
	energy      REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

// Run is one row of history.
type Run struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Config    gpe.Config    `json:"config"`
	Steps     int           `json:"steps"`
	SimTime   float64       `json:"sim_time"`
	Norm      float64       `json:"norm"`
	Peak      float64       `json:"peak"`
	Energy    float64       `json:"energy"`
}

// NewRun starts a history record for cfg with a fresh id.
func NewRun(cfg gpe.Config, started time.Time) Run {
	return Run{
		ID:        uuid.NewString(),
		StartedAt: started.UTC(),
		Config:    cfg,
	}
}

// Complete fills the outcome fields from a finished run.
func (r *Run) Complete(res *gpe.Result, took time.Duration) {
	r.Duration = took
	r.Status = StatusCompleted
	r.Error = ""
	r.Steps = res.Steps
	r.SimTime = res.Time
	r.Norm = res.Norm
	r.Peak = res.Peak
	r.Energy = res.Energy
}

// Fail marks the run as failed. The step reached is taken from a StepError
// when there is one.
func (r *Run) Fail(err error, took time.Duration) {
	r.Duration = took
	r.Status = StatusFailed
	r.Error = err.Error()
	var se *gpe.StepError
	if errors.As(err, &se) {
		r.Steps = se.Step
		r.SimTime = se.Time
	}
}

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts r.
func (s *Store) Record(ctx context.Context, r Run) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	if r.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if r.Status != StatusCompleted && r.Status != StatusFailed {
		return fmt.Errorf("unknown run status %q", r.Status)
	}
	cfg, err := yaml.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("encode run config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO runs (
	id, started_at, duration_ms, status, error, config,
	steps, sim_time, norm, peak, energy
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		r.ID,
		r.StartedAt.UTC().UnixMilli(),
		r.Duration.Milliseconds(),
		r.Status,
		r.Error,
		string(cfg),
		r.Steps,
		r.SimTime,
		r.Norm,
		r.Peak,
		r.Energy,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

// List returns up to limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is not open")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, duration_ms, status, error, config,
	steps, sim_time, norm, peak, energy
FROM runs
ORDER BY started_at DESC, id
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			started    int64
			durationMs int64
			cfg        string
		)
		if err := rows.Scan(
			&r.ID, &started, &durationMs, &r.Status, &r.Error, &cfg,
			&r.Steps, &r.SimTime, &r.Norm, &r.Peak, &r.Energy,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := yaml.Unmarshal([]byte(cfg), &r.Config); err != nil {
			return nil, fmt.Errorf("decode config of run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
