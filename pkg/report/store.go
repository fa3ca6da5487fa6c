// Package report persists run statistics to SQLite. It never stores
// simulation state, so runs cannot be resumed from it.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ardalan-sia/planar-traffic/pkg/simulation"
)

// ErrUnknownRun is returned for a run ID with no row.
var ErrUnknownRun = errors.New("unknown run")

// RunMeta describes a run at start.
type RunMeta struct {
	Seed      uint64
	SpawnSeed uint64
	Nodes     int
	Edges     int
}

// Run is a stored run row.
type Run struct {
	RunMeta

	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt *time.Time
	Arrived    int
	AvgHops    float64
}

// Store implements the statistics database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path. ":memory:" is allowed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and writes serial.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		spawn_seed INTEGER NOT NULL,
		nodes INTEGER NOT NULL,
		edges INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		arrived INTEGER NOT NULL DEFAULT 0,
		avg_hops REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS samples (
		run_id TEXT NOT NULL,
		sim_time REAL NOT NULL,
		live INTEGER NOT NULL,
		spawned INTEGER NOT NULL,
		discarded INTEGER NOT NULL,
		crowded INTEGER NOT NULL,
		arrived INTEGER NOT NULL,
		moving INTEGER NOT NULL,
		jammed INTEGER NOT NULL,
		max_passes INTEGER NOT NULL,
		avg_hops REAL NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS hop_histogram (
		run_id TEXT NOT NULL,
		hops INTEGER NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (run_id, hops),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_samples_run ON samples(run_id, sim_time);
	`
	_, err := s.db.Exec(schema)
	return err
}

// StartRun inserts a run row and returns its new ID.
func (s *Store) StartRun(ctx context.Context, meta RunMeta) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, seed, spawn_seed, nodes, edges, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id.String(), int64(meta.Seed), int64(meta.SpawnSeed), meta.Nodes, meta.Edges, s.now().UTC())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// RecordSample appends one periodic sample to a run.
func (s *Store) RecordSample(ctx context.Context, runID uuid.UUID, sample simulation.Sample) error {
	st := sample.Stats
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO samples (run_id, sim_time, live, spawned, discarded, crowded, arrived, moving, jammed, max_passes, avg_hops)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID.String(), sample.Time, sample.Live, st.Spawned, st.Discarded, st.Crowded, st.Arrived,
		st.MovingSteps, st.JammedSteps, sample.MaxPasses, st.AvgHops())
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}
	return nil
}

// FinishRun stamps the run and stores its final hop histogram.
func (s *Store) FinishRun(ctx context.Context, runID uuid.UUID, st simulation.Stats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, arrived = ?, avg_hops = ? WHERE id = ?
	`, s.now().UTC(), st.Arrived, st.AvgHops(), runID.String())
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO hop_histogram (run_id, hops, count) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare histogram insert: %w", err)
	}
	defer stmt.Close()

	for hops, count := range st.HopHistogram {
		if count == 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, runID.String(), hops, count); err != nil {
			return fmt.Errorf("failed to insert histogram bucket %d: %w", hops, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun loads one run row.
func (s *Store) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var (
		id              string
		seed, spawnSeed int64
		finished        sql.NullTime
		r               Run
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seed, spawn_seed, nodes, edges, started_at, finished_at, arrived, avg_hops
		FROM runs WHERE id = ?
	`, runID.String()).Scan(&id, &seed, &spawnSeed, &r.Nodes, &r.Edges, &r.StartedAt, &finished, &r.Arrived, &r.AvgHops)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	r.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run id: %w", err)
	}
	r.Seed, r.SpawnSeed = uint64(seed), uint64(spawnSeed)
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

// Samples returns a run's samples in time order.
func (s *Store) Samples(ctx context.Context, runID uuid.UUID) ([]simulation.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sim_time, live, spawned, discarded, crowded, arrived, moving, jammed, max_passes
		FROM samples WHERE run_id = ? ORDER BY sim_time
	`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var out []simulation.Sample
	for rows.Next() {
		var smp simulation.Sample
		st := &smp.Stats
		if err := rows.Scan(&smp.Time, &smp.Live, &st.Spawned, &st.Discarded, &st.Crowded,
			&st.Arrived, &st.MovingSteps, &st.JammedSteps, &smp.MaxPasses); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		out = append(out, smp)
	}
	return out, rows.Err()
}

// Histogram returns a run's stored hop histogram.
func (s *Store) Histogram(ctx context.Context, runID uuid.UUID) ([simulation.HistogramBuckets]int, error) {
	var hist [simulation.HistogramBuckets]int
	rows, err := s.db.QueryContext(ctx, `
		SELECT hops, count FROM hop_histogram WHERE run_id = ?
	`, runID.String())
	if err != nil {
		return hist, fmt.Errorf("failed to query histogram: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hops, count int
		if err := rows.Scan(&hops, &count); err != nil {
			return hist, fmt.Errorf("failed to scan histogram: %w", err)
		}
		if hops >= 0 && hops < len(hist) {
			hist[hops] = count
		}
	}
	return hist, rows.Err()
}

// Recorder binds the store to one run so a simulation.Runner can feed it.
func (s *Store) Recorder(runID uuid.UUID) simulation.Recorder {
	return runRecorder{store: s, id: runID}
}

type runRecorder struct {
	store *Store
	id    uuid.UUID
}

func (r runRecorder) RecordSample(ctx context.Context, sample simulation.Sample) error {
	return r.store.RecordSample(ctx, r.id, sample)
}
